package pipeline

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/olekukonko/tablewriter"

	"upc/internal/rewrite"
)

// RenderCompileTable renders one row per emitted module.
func RenderCompileTable(res *CompileResult) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Module", "GUID", "Classes", "Skipped", "Warnings"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	classes := 0
	for i, m := range res.Modules {
		r := res.Reports[i]
		classes += r.Resolved
		table.Append([]string{
			m.Name,
			m.GUID,
			fmt.Sprintf("%d", r.Resolved),
			fmt.Sprintf("%d", r.Skipped),
			fmt.Sprintf("%d", len(r.Warnings)),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Modules %d", len(res.Modules)),
		"",
		fmt.Sprintf("%d", classes),
		"",
		"",
	})

	table.Render()
	return buf.String()
}

// RenderRewriteTable renders one row per patched document, relative to root.
func RenderRewriteTable(report *rewrite.Report, root string) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Document", "Substitutions"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	for _, d := range report.Documents {
		path := d.Path
		if rel, err := filepath.Rel(root, d.Path); err == nil {
			path = filepath.ToSlash(rel)
		}
		table.Append([]string{path, fmt.Sprintf("%d", d.Substitutions)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Scanned %d, Patched %d", report.Scanned, report.Patched),
		fmt.Sprintf("%d", report.Substitutions),
	})

	table.Render()
	return buf.String()
}
