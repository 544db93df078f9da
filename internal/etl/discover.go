// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package etl

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverFiles walks root recursively and returns every *.json file in
// lexical order. Both datasets nest files in subdirectories (song IDs
// split by prefix, logs by year/month); the sorted order makes load
// order and last-write-wins dedup deterministic across runs.
func DiscoverFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no .json files found under %s", root)
	}

	sort.Strings(files)
	return files, nil
}
