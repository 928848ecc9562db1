package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"upc/internal/config"
	"upc/internal/errors"
	"upc/internal/modules"
	"upc/internal/paths"
	"upc/internal/storage"
)

var (
	ledgerDst      string
	historyLimit   int
	lookupFromMaps bool
	lookupPlugins  string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [guid]",
	Short: "Find where a script identity went",
	Long: `Look up an original script guid in the destination ledger and print the
module and local identifier it was given by the latest successful compile.

With --maps, or when no guid is given, the maps in the destination plugins
directory are read instead of the ledger. Without a guid every identity in
the maps is listed.

Examples:
  upc lookup 3f2a9c0d1e4b5a6f7c8d9e0f1a2b3c4d -d ./Game.Precompiled
  upc lookup --maps -d ./Game.Precompiled --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLookup,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded compile and fixup runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	lookupCmd.Flags().StringVarP(&ledgerDst, "dst", "d", ".", "Destination project directory")
	lookupCmd.Flags().BoolVar(&lookupFromMaps, "maps", false, "Read the emitted maps instead of the ledger")
	lookupCmd.Flags().StringVarP(&lookupPlugins, "plugins", "p", config.DefaultConfig().PluginsDir, "Plugins directory under Assets holding the maps")
	historyCmd.Flags().StringVarP(&ledgerDst, "dst", "d", ".", "Destination project directory")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")

	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(historyCmd)
}

// LookupResponseCLI is the output of lookup for one guid. Mapping.RunID
// is empty when the answer came from the maps.
type LookupResponseCLI struct {
	OriginalGUID string               `json:"originalGuid"`
	Found        bool                 `json:"found"`
	Mapping      *storage.FileMapping `json:"mapping,omitempty"`
}

// LookupListResponseCLI is the output of lookup without a guid.
type LookupListResponseCLI struct {
	Maps    string               `json:"maps"`
	Results []*LookupResponseCLI `json:"results"`
}

// HistoryResponseCLI is the output of history.
type HistoryResponseCLI struct {
	Runs     []*storage.Run                     `json:"runs"`
	Modules  map[string][]*storage.ModuleRecord `json:"modules,omitempty"`
	Rewrites map[string]int                     `json:"rewrites,omitempty"`
}

func openLedger(dst string) (*storage.DB, error) {
	layout := paths.NewLayout(dst)
	if _, err := os.Stat(layout.Ledger()); err != nil {
		return nil, errors.New(errors.IOFailure, "no ledger at "+layout.Ledger(), err)
	}
	db, err := storage.Open(layout.State(), nil)
	if err != nil {
		return nil, errors.New(errors.IOFailure, "open ledger", err)
	}
	return db, nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	if lookupFromMaps || len(args) == 0 {
		return lookupInMaps(cmd.OutOrStdout(), args)
	}

	db, err := openLedger(ledgerDst)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := storage.NewMappingRepository(db).LatestByOriginal(args[0])
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), &LookupResponseCLI{OriginalGUID: args[0], Found: m != nil, Mapping: m})
}

// lookupInMaps answers from the maps of the last compile, which exist
// even when the ledger is disabled.
func lookupInMaps(w io.Writer, guids []string) error {
	dir := paths.NewLayout(ledgerDst).Plugins(lookupPlugins)
	mods, err := modules.LoadMaps(dir)
	if err != nil {
		return err
	}
	table, err := modules.NewIdentityTable(mods)
	if err != nil {
		return err
	}

	list := len(guids) == 0
	if list {
		guids = table.GUIDs()
	}
	results := make([]*LookupResponseCLI, 0, len(guids))
	for _, g := range guids {
		r := &LookupResponseCLI{OriginalGUID: g}
		if e, ok := table.Lookup(g); ok {
			r.Found = true
			r.Mapping = &storage.FileMapping{
				OriginalGUID:  g,
				ModuleName:    e.Module.Name,
				ModuleGUID:    e.Module.GUID,
				Path:          e.File.Path,
				ClassFullName: e.File.FullName,
				FileID:        e.File.FileID,
			}
		}
		results = append(results, r)
	}

	if list {
		return printOutput(w, &LookupListResponseCLI{Maps: dir, Results: results})
	}
	return printOutput(w, results[0])
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openLedger(ledgerDst)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := storage.NewRunRepository(db).List(historyLimit)
	if err != nil {
		return err
	}

	resp := &HistoryResponseCLI{
		Runs:     runs,
		Modules:  map[string][]*storage.ModuleRecord{},
		Rewrites: map[string]int{},
	}
	mappings := storage.NewMappingRepository(db)
	rewrites := storage.NewRewriteRepository(db)
	for _, r := range runs {
		switch r.Kind {
		case storage.RunKindCompile:
			mods, err := mappings.ModulesByRun(r.RunID)
			if err != nil {
				return err
			}
			resp.Modules[r.RunID] = mods
		case storage.RunKindFixup:
			recs, err := rewrites.ListByRun(r.RunID)
			if err != nil {
				return err
			}
			resp.Rewrites[r.RunID] = len(recs)
		}
	}
	return printOutput(cmd.OutOrStdout(), resp)
}
