package mirror

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLatestSequenceName(t *testing.T) {
	dir := t.TempDir()

	if got := latestSequenceName(dir); got != "" {
		t.Fatalf("expected empty name for empty dir, got %s", got)
	}

	older := filepath.Join(dir, "sequence_20260115_070000.gif")
	newer := filepath.Join(dir, "sequence_20260115_080000.gif")
	for i, path := range []string{older, newer} {
		if err := os.WriteFile(path, []byte("gif"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		mtime := time.Now().Add(time.Duration(i-2) * time.Minute)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("Chtimes: %v", err)
		}
	}

	if got := latestSequenceName(dir); got != "sequence_20260115_080000.gif" {
		t.Errorf("latestSequenceName = %s, want sequence_20260115_080000.gif", got)
	}
}

func TestIndexHTMLEmbedsSequence(t *testing.T) {
	html := indexHTML("sequence_20260115_080000.gif")

	if !strings.Contains(html, `src="sequence_20260115_080000.gif"`) {
		t.Error("index.html does not embed the sequence")
	}
	if !strings.Contains(html, `http-equiv="refresh"`) {
		t.Error("index.html is missing the auto-refresh meta tag")
	}
}
