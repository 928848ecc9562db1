package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"upc/internal/errors"
	"upc/internal/pipeline"
	"upc/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// CopyResponseCLI is the output of copy.
type CopyResponseCLI struct {
	Trees []*pipeline.MirrorStats `json:"trees"`
}

// CompileResponseCLI is the output of compile.
type CompileResponseCLI struct {
	Compile *pipeline.CompileResult `json:"compile"`
}

// FixupResponseCLI is the output of fixup.
type FixupResponseCLI struct {
	Dst   string                `json:"dst"`
	Fixup *pipeline.FixupResult `json:"fixup"`
}

// AllResponseCLI is the output of all.
type AllResponseCLI struct {
	Copy    *CopyResponseCLI    `json:"copy"`
	Compile *CompileResponseCLI `json:"compile"`
	Fixup   *FixupResponseCLI   `json:"fixup"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *CopyResponseCLI:
		return formatCopyHuman(v), nil
	case *CompileResponseCLI:
		return pipeline.RenderCompileTable(v.Compile), nil
	case *FixupResponseCLI:
		return formatFixupHuman(v), nil
	case *AllResponseCLI:
		return formatCopyHuman(v.Copy) + "\n" +
			pipeline.RenderCompileTable(v.Compile.Compile) + "\n" +
			formatFixupHuman(v.Fixup), nil
	case *HashResponseCLI:
		return fmt.Sprintf("%s: %d", v.FullName, v.FileID), nil
	case *ResolveResponseCLI:
		return formatResolveHuman(v), nil
	case *LookupResponseCLI:
		return formatLookupHuman(v), nil
	case *LookupListResponseCLI:
		return formatLookupListHuman(v), nil
	case *HistoryResponseCLI:
		return formatHistoryHuman(v), nil
	case *StatusResponseCLI:
		return formatStatusHuman(v), nil
	case *RestoreResponseCLI:
		return fmt.Sprintf("Restored %d documents from %s", len(v.Restored), v.Archive), nil
	case *ModulesResponseCLI:
		return formatModulesHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatCopyHuman(resp *CopyResponseCLI) string {
	var b strings.Builder
	for _, t := range resp.Trees {
		b.WriteString(fmt.Sprintf("%s -> %s: %d copied, %d up to date, %d removed\n",
			t.Src, t.Dst, t.Copied, t.Skipped, t.Purged))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatFixupHuman(resp *FixupResponseCLI) string {
	var b strings.Builder
	b.WriteString(pipeline.RenderRewriteTable(resp.Fixup.Report, resp.Dst))
	if resp.Fixup.Backup != "" {
		b.WriteString(fmt.Sprintf("\nBackup: %s\n", resp.Fixup.Backup))
	}
	return b.String()
}

func formatResolveHuman(resp *ResolveResponseCLI) string {
	var b strings.Builder
	if resp.Skip != "" {
		b.WriteString(fmt.Sprintf("%s: skipped (%s)\n", resp.File, resp.Skip))
	} else {
		b.WriteString(fmt.Sprintf("%s: %s (fileID %d)\n", resp.File, resp.FullName, resp.FileID))
	}
	if len(resp.Declarations) > 0 {
		b.WriteString("\nClasses:\n")
		for _, d := range resp.Declarations {
			b.WriteString(fmt.Sprintf("  %4d  %s\n", d.Line, joinName(d.Namespace, d.Name)))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func joinName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func formatLookupHuman(resp *LookupResponseCLI) string {
	if !resp.Found {
		return fmt.Sprintf("%s: not found in any successful compile", resp.OriginalGUID)
	}
	m := resp.Mapping
	run := m.RunID
	if run == "" {
		run = "(maps)"
	}
	return fmt.Sprintf("%s\n  Module:  %s (%s)\n  Class:   %s\n  FileID:  %d\n  Source:  %s\n  Run:     %s",
		resp.OriginalGUID, m.ModuleName, m.ModuleGUID, m.ClassFullName, m.FileID, m.Path, run)
}

func formatLookupListHuman(resp *LookupListResponseCLI) string {
	if len(resp.Results) == 0 {
		return "No identities in " + resp.Maps
	}
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Original GUID", "Module", "Class", "FileID"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for _, r := range resp.Results {
		m := r.Mapping
		table.Append([]string{r.OriginalGUID, m.ModuleName, m.ClassFullName, fmt.Sprintf("%d", m.FileID)})
	}
	table.Render()
	return strings.TrimSuffix(buf.String(), "\n")
}

func formatHistoryHuman(resp *HistoryResponseCLI) string {
	if len(resp.Runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	for _, r := range resp.Runs {
		detail := ""
		switch {
		case resp.Modules[r.RunID] != nil:
			detail = fmt.Sprintf("%d modules", len(resp.Modules[r.RunID]))
		case r.Kind == storage.RunKindFixup:
			detail = fmt.Sprintf("%d documents", resp.Rewrites[r.RunID])
		}
		b.WriteString(fmt.Sprintf("%s  %-7s  %-9s  %s  %s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Kind, r.Status, r.RunID, detail))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatStatusHuman(resp *StatusResponseCLI) string {
	var b strings.Builder
	m := resp.Last
	b.WriteString(fmt.Sprintf("%s (%s)\n", resp.Manifest, m.Tool))
	if c := m.Compile; c != nil {
		b.WriteString(fmt.Sprintf("\nCompile %s at %s%s\n", c.RunID, c.FinishedAt.Local().Format(time.DateTime), ledgerState(resp, c.RunID)))
		b.WriteString(fmt.Sprintf("  %s -> %s [%s] defines: %s\n", c.Src, c.Dst, c.Configuration, strings.Join(c.Defines, " ")))
		if c.Source != nil {
			b.WriteString(fmt.Sprintf("  source: %s (dirty: %v)\n", c.Source.HeadCommit, c.Source.Dirty))
		}
		for _, mod := range c.Modules {
			b.WriteString(fmt.Sprintf("  - %s %s: %d classes, %d skipped, %d warnings\n",
				mod.Name, mod.GUID, mod.Classes, mod.Skipped, mod.Warnings))
		}
	} else {
		b.WriteString("\nNo compile recorded.\n")
	}
	if f := m.Fixup; f != nil {
		b.WriteString(fmt.Sprintf("\nFixup %s at %s%s\n", f.RunID, f.FinishedAt.Local().Format(time.DateTime), ledgerState(resp, f.RunID)))
		b.WriteString(fmt.Sprintf("  %d maps, %d identities; %d scanned, %d patched, %d substitutions\n",
			f.Maps, f.Identities, f.Scanned, f.Patched, f.Substitutions))
		if f.Backup != "" {
			b.WriteString(fmt.Sprintf("  backup: %s\n", f.Backup))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func ledgerState(resp *StatusResponseCLI, runID string) string {
	if resp.Runs == nil {
		return ""
	}
	if r, ok := resp.Runs[runID]; ok {
		return " [ledger: " + r.Status + "]"
	}
	return " [ledger: missing]"
}

func formatModulesHuman(resp *ModulesResponseCLI) string {
	if len(resp.Modules) == 0 {
		return "No modules under " + resp.ScanRoot
	}
	var b strings.Builder
	for _, m := range resp.Modules {
		missing := ""
		if !m.BinaryPresent {
			missing = " (binary missing)"
		}
		b.WriteString(fmt.Sprintf("%s  %s  %d scripts%s\n", m.Name, m.ScopeDir, len(m.Files), missing))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// formatError renders a command failure. Coded errors carry their
// suggested fixes.
func formatError(err error, format OutputFormat) string {
	var ue *errors.UpcError
	if !stderrors.As(err, &ue) {
		ue = errors.New(errors.InternalError, err.Error(), nil)
	}

	if format == FormatJSON {
		out, jErr := formatJSON(struct {
			Error  *errors.UpcError `json:"error"`
			Detail string           `json:"detail"`
		}{ue, err.Error()})
		if jErr == nil {
			return out
		}
	}

	var b strings.Builder
	b.WriteString("Error: " + err.Error())
	for _, fix := range ue.SuggestedFixes {
		b.WriteString("\n  Suggestion: " + fix.Description)
		if fix.Command != "" {
			b.WriteString("\n    $ " + fix.Command)
		}
	}
	return b.String()
}
