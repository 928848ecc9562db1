package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func lineLogger(w *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(w, &slog.HandlerOptions{Level: level}))
}

func TestHandler_Line(t *testing.T) {
	var buf bytes.Buffer
	lineLogger(&buf, slog.LevelInfo).Info("Discovered modules", "count", 3, "root", "Assets")

	line := buf.String()
	if !strings.HasSuffix(line, " [info] Discovered modules | count=3 root=Assets\n") {
		t.Errorf("unexpected line: %q", line)
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("expected a single line, got %q", line)
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := lineLogger(&buf, slog.LevelWarn)

	logger.Debug("resolving file")
	logger.Info("module done")
	logger.Warn("classless file")
	logger.Error("collision")

	out := buf.String()
	for _, hidden := range []string{"resolving file", "module done"} {
		if strings.Contains(out, hidden) {
			t.Errorf("%q should be filtered:\n%s", hidden, out)
		}
	}
	for _, shown := range []string{"[warn] classless file", "[error] collision"} {
		if !strings.Contains(out, shown) {
			t.Errorf("missing %q:\n%s", shown, out)
		}
	}
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		want      slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{4, false, slog.LevelDebug},
		{2, true, LevelSilent},
	}
	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.want {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.want)
		}
	}
}

func TestForRun(t *testing.T) {
	var buf bytes.Buffer
	logger := ForModule(ForRun(lineLogger(&buf, slog.LevelInfo), "compile", "abc123"), "Game")
	logger.Info("Compiled")

	if !strings.Contains(buf.String(), "step=compile run=abc123 module=Game") {
		t.Errorf("missing run scope: %s", buf.String())
	}
}

func TestTeeHandler_Silent(t *testing.T) {
	h := NewTeeHandler(NewHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: LevelSilent}))
	if h.Enabled(context.Background(), slog.LevelError) {
		t.Error("silent handler should not be enabled at any level")
	}
}

func TestTeeHandler(t *testing.T) {
	var console, file bytes.Buffer
	logger := slog.New(NewTeeHandler(
		NewHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		NewHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))

	logger.Debug("walk", "dir", "Assets/Game")
	logger.Warn("skipped file")

	if strings.Contains(console.String(), "walk") {
		t.Error("console should not get debug records")
	}
	if !strings.Contains(console.String(), "skipped file") {
		t.Error("console should get warnings")
	}
	if !strings.Contains(file.String(), "walk | dir=Assets/Game") || !strings.Contains(file.String(), "skipped file") {
		t.Errorf("file should get everything:\n%s", file.String())
	}
}

func TestHandler_QuotesAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := lineLogger(&buf, slog.LevelInfo)

	logger.WithGroup("module").Info("Compiled",
		"path", "Assets/My Scripts/Player.cs",
		"name", "Game",
		slog.Group("files", "kept", 3, "skipped", 1),
	)

	output := buf.String()
	if !strings.Contains(output, `module.path="Assets/My Scripts/Player.cs"`) {
		t.Errorf("expected quoted path, got: %s", output)
	}
	if !strings.Contains(output, "module.name=Game") {
		t.Errorf("expected unquoted name, got: %s", output)
	}
	if !strings.Contains(output, "module.files.kept=3") || !strings.Contains(output, "module.files.skipped=1") {
		t.Errorf("expected flattened group, got: %s", output)
	}
}

func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := lineLogger(&buf, slog.LevelInfo).With("run", "abc123")

	logger.Info("first")
	logger.Info("second")

	if got := strings.Count(buf.String(), "run=abc123"); got != 2 {
		t.Errorf("run attr appeared %d times, want 2: %s", got, buf.String())
	}
}

func TestNewFormatHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newFormatHandler(&buf, slog.LevelInfo, "JSON")).Info("hello", "k", "v")

	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("expected JSON output, got: %s", buf.String())
	}
}
