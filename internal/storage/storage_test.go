package storage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	stateDir := filepath.Join(t.TempDir(), ".upc")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(stateDir, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	return db, stateDir
}

func createRun(t *testing.T, db *DB, id, kind string, started time.Time) {
	t.Helper()
	run := &Run{
		RunID:     id,
		Kind:      kind,
		Status:    RunStatusRunning,
		Src:       "/src",
		Dst:       "/dst",
		StartedAt: started,
	}
	if err := NewRunRepository(db).Create(run); err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}
}

func TestDatabaseInitialization(t *testing.T) {
	db, stateDir := setupTestDB(t)

	dbPath := filepath.Join(stateDir, FileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", dbPath)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestDatabaseReopen(t *testing.T) {
	stateDir := t.TempDir()

	db, err := Open(stateDir, nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	createRun(t, db, "run-1", RunKindCompile, time.Now())
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(stateDir, nil)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	run, err := NewRunRepository(db).Get("run-1")
	if err != nil || run == nil {
		t.Fatalf("Expected run to survive reopen, got %v, %v", run, err)
	}
}

func TestRunRepository(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewRunRepository(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createRun(t, db, "run-1", RunKindCompile, base)
	createRun(t, db, "run-2", RunKindFixup, base.Add(500*time.Millisecond))
	createRun(t, db, "run-3", RunKindFixup, base.Add(2*time.Second))

	if err := repo.Complete("run-2"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	run, err := repo.Get("run-2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != RunStatusSucceeded || run.FinishedAt == nil {
		t.Errorf("Unexpected completed run: %+v", run)
	}
	if !run.StartedAt.Equal(base.Add(500 * time.Millisecond)) {
		t.Errorf("StartedAt = %v", run.StartedAt)
	}

	if err := repo.Complete("run-2"); err == nil {
		t.Error("Expected error completing a run twice")
	}

	runs, err := repo.List(2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-3" || runs[1].RunID != "run-2" {
		t.Errorf("Expected newest runs first, got %v", runIDs(runs))
	}

	missing, err := repo.Get("nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for missing run, got %v, %v", missing, err)
	}

	if err := repo.Complete("nope"); err == nil {
		t.Error("Expected error completing unknown run")
	}
}

func TestRunRepository_Discard(t *testing.T) {
	db, _ := setupTestDB(t)
	runs := NewRunRepository(db)
	createRun(t, db, "gone", RunKindFixup, time.Now())

	if err := NewRewriteRepository(db).Record([]RewriteRecord{{RunID: "gone", Path: "/a.unity", Substitutions: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := runs.Discard("gone"); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}

	run, err := runs.Get("gone")
	if err != nil || run != nil {
		t.Errorf("Expected run to be gone, got %v, %v", run, err)
	}
	recs, err := NewRewriteRepository(db).ListByRun("gone")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected rewrites to cascade, got %d", len(recs))
	}
}

func TestRunRepository_InvalidKind(t *testing.T) {
	db, _ := setupTestDB(t)
	err := NewRunRepository(db).Create(&Run{RunID: "x", Kind: "deploy", Status: RunStatusRunning, StartedAt: time.Now()})
	if err == nil {
		t.Error("Expected constraint violation for unknown kind")
	}
}

func TestMappingRepository(t *testing.T) {
	db, _ := setupTestDB(t)
	runs := NewRunRepository(db)
	repo := NewMappingRepository(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createRun(t, db, "old", RunKindCompile, base)
	createRun(t, db, "new", RunKindCompile, base.Add(time.Hour))
	createRun(t, db, "broken", RunKindCompile, base.Add(2*time.Hour))

	record := func(runID, moduleGUID string, fileID int32) {
		err := repo.Record(
			[]ModuleRecord{{RunID: runID, Name: "Game", GUID: moduleGUID, BinaryPath: "/b/Game.dll", FileCount: 1}},
			[]FileMapping{{
				RunID: runID, OriginalGUID: "aa01", ModuleName: "Game", ModuleGUID: moduleGUID,
				Path: "/s/Player.cs", ClassFullName: "Game.Player", FileID: fileID,
			}},
		)
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	record("old", "g-old", 1)
	record("new", "g-new", -205)
	record("broken", "g-broken", 3)

	// "broken" stays running: only completed runs are looked up
	for _, id := range []string{"old", "new"} {
		if err := runs.Complete(id); err != nil {
			t.Fatal(err)
		}
	}

	fm, err := repo.LatestByOriginal("aa01")
	if err != nil {
		t.Fatalf("LatestByOriginal failed: %v", err)
	}
	if fm == nil || fm.RunID != "new" || fm.ModuleGUID != "g-new" || fm.FileID != -205 {
		t.Errorf("Expected mapping from latest successful run, got %+v", fm)
	}

	none, err := repo.LatestByOriginal("zz")
	if err != nil || none != nil {
		t.Errorf("Expected nil, nil for unknown identity, got %v, %v", none, err)
	}

	mods, err := repo.ModulesByRun("new")
	if err != nil {
		t.Fatalf("ModulesByRun failed: %v", err)
	}
	if len(mods) != 1 || mods[0].GUID != "g-new" || mods[0].FileCount != 1 {
		t.Errorf("Unexpected modules: %+v", mods)
	}
}

func TestMappingRepository_RollbackOnDuplicate(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewMappingRepository(db)
	createRun(t, db, "r", RunKindCompile, time.Now())

	dup := FileMapping{RunID: "r", OriginalGUID: "aa01", ModuleName: "M", ModuleGUID: "g", Path: "/p", ClassFullName: "C"}
	err := repo.Record([]ModuleRecord{{RunID: "r", Name: "M", GUID: "g", BinaryPath: "/b"}}, []FileMapping{dup, dup})
	if err == nil {
		t.Fatal("Expected duplicate mapping to fail")
	}

	mods, err := repo.ModulesByRun("r")
	if err != nil {
		t.Fatal(err)
	}
	if len(mods) != 0 {
		t.Errorf("Expected transaction rollback, found %d modules", len(mods))
	}
}

func TestRewriteRepository(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewRewriteRepository(db)
	createRun(t, db, "fix", RunKindFixup, time.Now())

	err := repo.Record([]RewriteRecord{
		{RunID: "fix", Path: "/dst/Assets/B.prefab", Substitutions: 2},
		{RunID: "fix", Path: "/dst/Assets/A.unity", Substitutions: 1},
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	recs, err := repo.ListByRun("fix")
	if err != nil {
		t.Fatalf("ListByRun failed: %v", err)
	}
	if len(recs) != 2 || recs[0].Path != "/dst/Assets/A.unity" || recs[1].Substitutions != 2 {
		t.Errorf("Unexpected rewrites: %+v", recs)
	}

	if err := repo.Record([]RewriteRecord{{RunID: "fix", Path: "/x", Substitutions: 0}}); err == nil {
		t.Error("Expected zero substitutions to be rejected")
	}
}

func runIDs(runs []*Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.RunID
	}
	return out
}
