package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		verbose    bool
		configured string
		want       zerolog.Level
	}{
		{false, "", zerolog.InfoLevel},
		{true, "", zerolog.DebugLevel},
		{true, "error", zerolog.DebugLevel},
		{false, "warn", zerolog.WarnLevel},
		{false, " TRACE ", zerolog.TraceLevel},
		{false, "chatty", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := Level(tt.verbose, tt.configured); got != tt.want {
			t.Errorf("Level(%v, %q) = %s, want %s", tt.verbose, tt.configured, got, tt.want)
		}
	}
}

func TestEnsureWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := ensureWritable(dir); err != nil {
		t.Fatalf("ensureWritable: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("probe file left behind")
	}
}
