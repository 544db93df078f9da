// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package etl

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverFiles(t *testing.T) {
	root := t.TempDir()

	mk := func(rel string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	mk("2018/11/2018-11-13-events.json")
	mk("2018/11/2018-11-12-events.json")
	mk("2018/12/2018-12-01-events.json")
	mk("2018/11/notes.txt") // ignored
	mk("README.md")         // ignored

	files, err := DiscoverFiles(root)
	if err != nil {
		t.Fatalf("DiscoverFiles() error = %v", err)
	}

	want := []string{
		filepath.Join(root, "2018/11/2018-11-12-events.json"),
		filepath.Join(root, "2018/11/2018-11-13-events.json"),
		filepath.Join(root, "2018/12/2018-12-01-events.json"),
	}
	if len(files) != len(want) {
		t.Fatalf("DiscoverFiles() = %d files, want %d", len(files), len(want))
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s (lexical order)", i, files[i], want[i])
		}
	}
}

func TestDiscoverFilesEmpty(t *testing.T) {
	if _, err := DiscoverFiles(t.TempDir()); err == nil {
		t.Error("DiscoverFiles() on empty dir = nil error, want error")
	}
}

func TestDiscoverFilesMissingRoot(t *testing.T) {
	if _, err := DiscoverFiles(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("DiscoverFiles() on missing dir = nil error, want error")
	}
}
