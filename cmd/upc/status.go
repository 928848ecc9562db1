package main

import (
	"os"

	"github.com/spf13/cobra"

	"upc/internal/errors"
	"upc/internal/paths"
	"upc/internal/pipeline"
	"upc/internal/storage"
)

var statusDst string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last compile and fixup of a destination project",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusDst, "dst", "d", ".", "Destination project directory")
	rootCmd.AddCommand(statusCmd)
}

// StatusResponseCLI is the output of status. Runs holds the ledger state
// of the manifest's runs, keyed by run id, when a ledger exists.
type StatusResponseCLI struct {
	Manifest string                  `json:"manifest"`
	Last     *pipeline.Manifest      `json:"last"`
	Runs     map[string]*storage.Run `json:"runs,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	path := paths.NewLayout(statusDst).Manifest()
	if _, err := os.Stat(path); err != nil {
		return errors.New(errors.IOFailure, "no manifest at "+path+"; run compile first", err)
	}
	m, err := pipeline.ReadManifest(path)
	if err != nil {
		return errors.New(errors.IOFailure, "read manifest", err)
	}
	resp := &StatusResponseCLI{Manifest: path, Last: m}
	runs, err := ledgerRuns(statusDst, m)
	if err != nil && !errors.IsCode(err, errors.IOFailure) {
		return err
	}
	resp.Runs = runs
	return printOutput(cmd.OutOrStdout(), resp)
}

// ledgerRuns fetches the manifest's runs from the ledger. A project
// compiled with the ledger disabled has none; that is IO_FAILURE.
func ledgerRuns(dst string, m *pipeline.Manifest) (map[string]*storage.Run, error) {
	db, err := openLedger(dst)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var ids []string
	if m.Compile != nil {
		ids = append(ids, m.Compile.RunID)
	}
	if m.Fixup != nil {
		ids = append(ids, m.Fixup.RunID)
	}

	repo := storage.NewRunRepository(db)
	out := make(map[string]*storage.Run, len(ids))
	for _, id := range ids {
		r, err := repo.Get(id)
		if err != nil {
			return nil, errors.New(errors.InternalError, "read ledger run "+id, err)
		}
		if r != nil {
			out[id] = r
		}
	}
	return out, nil
}
