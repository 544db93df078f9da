// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package etl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomtom215/astrarium/internal/config"
	"github.com/tomtom215/astrarium/internal/warehouse"
)

// testDBSemaphore serializes DuckDB usage across tests; concurrent CGO
// connections under resource pressure can hang in CI.
var testDBSemaphore = make(chan struct{}, 1)

// Catalog fixture lines, as they appear in song_data NDJSON.
const (
	songSetanta  = `{"num_songs": 1, "artist_id": "AR5KOSW1187FB35FF4", "artist_latitude": 49.80388, "artist_longitude": 15.47491, "artist_location": "Dubai UAE", "artist_name": "Elena", "song_id": "SOZCTXZ12AB0182364", "title": "Setanta matins", "duration": 269.58322, "year": 0}`
	songDompfaff = `{"num_songs": 1, "artist_id": "ARJIE2Y1187B994AB7", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Line Renaud", "song_id": "SOUPIRU12A6D4FA1E1", "title": "Der Kleine Dompfaff", "duration": 152.92036, "year": 0}`
	songSlickers = `{"num_songs": 1, "artist_id": "AR8IEZO1187B99055E", "artist_latitude": null, "artist_longitude": null, "artist_location": "New York, NY", "artist_name": "Marc Shaiman", "song_id": "SOINLJW12A8C13314C", "title": "City Slickers", "duration": 149.86404, "year": 2008}`
)

// Activity fixture lines. The first play's timestamp 1541990217796 is
// 2018-11-12T02:36:57.796Z, a Monday.
const (
	playSetanta   = `{"artist":"Elena","auth":"Logged In","firstName":"Ryan","gender":"M","itemInSession":0,"lastName":"Smith","length":269.58322,"level":"free","location":"San Jose-Sunnyvale-Santa Clara, CA","method":"PUT","page":"NextSong","registration":1541016707796.0,"sessionId":583,"song":"Setanta matins","status":200,"ts":1541990217796,"userAgent":"\"Mozilla/5.0\"","userId":"26"}`
	playUnmatched = `{"artist":"Nobody In Particular","auth":"Logged In","firstName":"Ryan","gender":"M","itemInSession":1,"lastName":"Smith","length":123.45,"level":"paid","location":"San Jose-Sunnyvale-Santa Clara, CA","method":"PUT","page":"NextSong","registration":1541016707796.0,"sessionId":583,"song":"Obscure B-Side","status":200,"ts":1541990500000,"userAgent":"\"Mozilla/5.0\"","userId":"26"}`
	playOtherUser = `{"artist":"Line Renaud","auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":0,"lastName":"Koch","length":152.92036,"level":"paid","location":"Chicago-Naperville-Elgin, IL-IN-WI","method":"PUT","page":"NextSong","registration":1541048010796.0,"sessionId":818,"song":"Der Kleine Dompfaff","status":200,"ts":1542837407796,"userAgent":"\"Mozilla/5.0\"","userId":"15"}`
	pageHome      = `{"artist":null,"auth":"Logged In","firstName":"Walter","gender":"M","itemInSession":0,"lastName":"Frye","length":null,"level":"free","location":"San Francisco-Oakland-Hayward, CA","method":"GET","page":"Home","registration":1540919166796.0,"sessionId":38,"song":null,"status":200,"ts":1541990300000,"userAgent":"\"Mozilla/5.0\"","userId":"39"}`
	malformedLine = `{"artist":"Broken`
)

// writeFixture writes one NDJSON file from the given lines.
func writeFixture(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("Failed to create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
}

// writeStandardInputs lays out the default catalog and log fixtures,
// nested the way the real datasets nest them. The catalog repeats the
// Setanta record in a second file to exercise song_id dedup.
func writeStandardInputs(t *testing.T, songDir, logDir string) {
	t.Helper()
	writeFixture(t, filepath.Join(songDir, "A", "A", "TRAAAAW.json"), songSetanta, songDompfaff)
	writeFixture(t, filepath.Join(songDir, "A", "B", "TRAABJL.json"), songSlickers, songSetanta)
	writeFixture(t, filepath.Join(logDir, "2018", "11", "2018-11-12-events.json"),
		playSetanta, pageHome, playUnmatched, malformedLine, playOtherUser)
}

func newTestConfig(songDir, logDir, outDir string) *config.Config {
	return &config.Config{
		Input: config.InputConfig{SongDir: songDir, LogDir: logDir},
		Warehouse: config.WarehouseConfig{
			MaxMemory:              "512MB",
			Threads:                2,
			PreserveInsertionOrder: true,
		},
		Output: config.OutputConfig{
			Dir:          outDir,
			Compression:  "zstd",
			RowGroupSize: 100_000,
		},
		Pipeline: config.PipelineConfig{
			BatchSize: 2, // small batches exercise flush boundaries
			Tables:    append([]string(nil), config.TableNames...),
		},
	}
}

// setupPipeline opens an in-memory warehouse and builds a pipeline
// around cfg. The warehouse is shared with the test for direct queries.
func setupPipeline(t *testing.T, cfg *config.Config) (*Pipeline, *warehouse.DB) {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := warehouse.New(&cfg.Warehouse)
	if err != nil {
		t.Fatalf("Failed to open test warehouse: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test warehouse: %v", err)
		}
	})

	return New(cfg, db, nil), db
}

func TestPipelineRun(t *testing.T) {
	songDir, logDir, outDir := t.TempDir(), t.TempDir(), filepath.Join(t.TempDir(), "lake")
	writeStandardInputs(t, songDir, logDir)

	cfg := newTestConfig(songDir, logDir, outDir)
	p, db := setupPipeline(t, cfg)
	ctx := context.Background()

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	stats := p.Stats()

	t.Run("load counters", func(t *testing.T) {
		events := stats.Sources[SourceEvents]
		if events.Malformed != 1 {
			t.Errorf("events malformed = %d, want 1", events.Malformed)
		}
		if events.Filtered != 1 {
			t.Errorf("events filtered = %d, want 1 (the Home page view)", events.Filtered)
		}
		if events.Staged != 3 {
			t.Errorf("events staged = %d, want 3", events.Staged)
		}
		if songs := stats.Sources[SourceSongs]; songs.Staged != 4 {
			t.Errorf("songs staged = %d, want 4 (dedup happens in transform)", songs.Staged)
		}
	})

	t.Run("songs dedup by song_id", func(t *testing.T) {
		rows, err := db.Songs(ctx)
		if err != nil {
			t.Fatalf("Songs() error = %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("songs table has %d rows, want 3", len(rows))
		}
		seen := map[string]bool{}
		for _, r := range rows {
			if seen[r.SongID] {
				t.Errorf("duplicate song_id %s", r.SongID)
			}
			seen[r.SongID] = true
		}
	})

	t.Run("one songplay per play event", func(t *testing.T) {
		rows, err := db.Songplays(ctx)
		if err != nil {
			t.Fatalf("Songplays() error = %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("songplays has %d rows, want 3", len(rows))
		}

		// Surrogate ids are a contiguous monotonic sequence.
		for i, r := range rows {
			if r.SongplayID != int64(i+1) {
				t.Errorf("songplay_id[%d] = %d, want %d", i, r.SongplayID, i+1)
			}
		}

		// First play matches the catalog; the obscure one does not.
		matched := rows[0]
		if matched.SongID == nil || *matched.SongID != "SOZCTXZ12AB0182364" {
			t.Errorf("matched play song_id = %v, want SOZCTXZ12AB0182364", matched.SongID)
		}
		if matched.ArtistID == nil || *matched.ArtistID != "AR5KOSW1187FB35FF4" {
			t.Errorf("matched play artist_id = %v, want AR5KOSW1187FB35FF4", matched.ArtistID)
		}

		unmatched := rows[1]
		if unmatched.SongID != nil || unmatched.ArtistID != nil {
			t.Errorf("unmatched play has song_id=%v artist_id=%v, want nulls", unmatched.SongID, unmatched.ArtistID)
		}
	})

	t.Run("users last write wins", func(t *testing.T) {
		rows, err := db.Users(ctx)
		if err != nil {
			t.Fatalf("Users() error = %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("users has %d rows, want 2", len(rows))
		}

		var ryan bool
		for _, r := range rows {
			if r.UserID == 26 {
				ryan = true
				// The later play carries level paid; it must win.
				if r.Level != "paid" {
					t.Errorf("user 26 level = %q, want paid", r.Level)
				}
			}
		}
		if !ryan {
			t.Error("user 26 missing from users table")
		}
	})

	t.Run("time decomposition", func(t *testing.T) {
		rows, err := db.TimeRows(ctx)
		if err != nil {
			t.Fatalf("TimeRows() error = %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("time has %d rows, want 3 distinct play timestamps", len(rows))
		}

		want := time.UnixMilli(1541990217796).UTC()
		first := rows[0]
		if !first.StartTime.Equal(want) {
			t.Fatalf("start_time = %v, want %v", first.StartTime, want)
		}
		checks := []struct {
			name string
			got  int
			want int
		}{
			{"hour", first.Hour, 2},
			{"day", first.Day, 12},
			{"week", first.Week, 46},
			{"month", first.Month, 11},
			{"year", first.Year, 2018},
			{"weekday", first.Weekday, 1}, // Monday
		}
		for _, c := range checks {
			if c.got != c.want {
				t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
			}
		}
	})

	t.Run("round trip row counts", func(t *testing.T) {
		for _, table := range config.TableNames {
			count, err := db.CountParquet(ctx, tableGlob(outDir, table))
			if err != nil {
				t.Fatalf("CountParquet(%s) error = %v", table, err)
			}
			if want := stats.TableRows[table]; count != want {
				t.Errorf("%s parquet rows = %d, warehouse rows = %d", table, count, want)
			}
			if got := stats.ExportedRows[table]; got != count {
				t.Errorf("%s ExportedRows = %d, want %d", table, got, count)
			}
		}
	})

	t.Run("partition layout", func(t *testing.T) {
		// songplays partitioned by (year, month): hive directories.
		if _, err := os.Stat(filepath.Join(outDir, "songplays", "year=2018", "month=11")); err != nil {
			t.Errorf("songplays partition dir missing: %v", err)
		}
		// users unpartitioned: single file.
		if _, err := os.Stat(filepath.Join(outDir, "users.parquet")); err != nil {
			t.Errorf("users.parquet missing: %v", err)
		}
	})

	t.Run("manifest", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(outDir, ManifestName))
		if err != nil {
			t.Fatalf("manifest missing: %v", err)
		}
		var m Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			t.Fatalf("manifest does not parse: %v", err)
		}
		if m.RunID != stats.RunID.String() {
			t.Errorf("manifest run_id = %q, want %q", m.RunID, stats.RunID)
		}
		if len(m.Tables) != len(config.TableNames) {
			t.Fatalf("manifest has %d tables, want %d", len(m.Tables), len(config.TableNames))
		}
		for _, mt := range m.Tables {
			if mt.Rows != stats.TableRows[mt.Name] {
				t.Errorf("manifest %s rows = %d, want %d", mt.Name, mt.Rows, stats.TableRows[mt.Name])
			}
		}
		if m.Inputs[SourceEvents].Filtered != 1 {
			t.Errorf("manifest events filtered = %d, want 1", m.Inputs[SourceEvents].Filtered)
		}
	})
}

func TestPipelineOverwriteGuard(t *testing.T) {
	songDir, logDir, outDir := t.TempDir(), t.TempDir(), filepath.Join(t.TempDir(), "lake")
	writeStandardInputs(t, songDir, logDir)

	cfg := newTestConfig(songDir, logDir, outDir)
	p, _ := setupPipeline(t, cfg)
	ctx := context.Background()

	if err := p.Run(ctx); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Second run into the same destination must refuse without overwrite.
	p2 := New(cfg, p.db, nil)
	err := p2.Run(ctx)
	if err == nil {
		t.Fatal("second Run() = nil error, want overwrite refusal")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second Run() error = %v, want destination-exists message", err)
	}

	// With overwrite set the rerun replaces the output and matches it.
	cfg.Output.Overwrite = true
	p3 := New(cfg, p.db, nil)
	if err := p3.Run(ctx); err != nil {
		t.Fatalf("overwrite Run() error = %v", err)
	}
	for _, table := range config.TableNames {
		if p3.Stats().ExportedRows[table] != p.Stats().ExportedRows[table] {
			t.Errorf("%s rows changed across identical reruns", table)
		}
	}
}

func TestPipelineStrictAbortsOnMalformed(t *testing.T) {
	songDir, logDir, outDir := t.TempDir(), t.TempDir(), filepath.Join(t.TempDir(), "lake")
	writeStandardInputs(t, songDir, logDir)

	cfg := newTestConfig(songDir, logDir, outDir)
	cfg.Pipeline.Strict = true
	p, _ := setupPipeline(t, cfg)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("strict Run() = nil error, want abort on malformed line")
	}
	if !strings.Contains(err.Error(), "bad record") {
		t.Errorf("strict Run() error = %v, want bad record abort", err)
	}
	if _, statErr := os.Stat(outDir); !os.IsNotExist(statErr) {
		t.Error("strict run wrote output despite aborting before export")
	}
}

func TestPipelineMaxBadRecordsCap(t *testing.T) {
	songDir, logDir, outDir := t.TempDir(), t.TempDir(), filepath.Join(t.TempDir(), "lake")
	writeFixture(t, filepath.Join(songDir, "TRAAAAW.json"), songSetanta)
	writeFixture(t, filepath.Join(logDir, "2018-11-12-events.json"),
		malformedLine, malformedLine, malformedLine, playSetanta)

	cfg := newTestConfig(songDir, logDir, outDir)
	cfg.Pipeline.MaxBadRecords = 2
	p, _ := setupPipeline(t, cfg)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() = nil error, want bad record cap abort")
	}
	if !strings.Contains(err.Error(), "cap exceeded") {
		t.Errorf("Run() error = %v, want cap exceeded", err)
	}
}

func TestPipelineDryRun(t *testing.T) {
	songDir, logDir, outDir := t.TempDir(), t.TempDir(), filepath.Join(t.TempDir(), "lake")
	writeStandardInputs(t, songDir, logDir)

	cfg := newTestConfig(songDir, logDir, outDir)
	cfg.Pipeline.DryRun = true
	p, _ := setupPipeline(t, cfg)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("dry Run() error = %v", err)
	}

	// Tables are built and counted, but nothing is written.
	if p.Stats().TableRows["songplays"] != 3 {
		t.Errorf("dry run songplays rows = %d, want 3", p.Stats().TableRows["songplays"])
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("dry run wrote output")
	}
}

func TestPipelineMissingInputAborts(t *testing.T) {
	cfg := newTestConfig(filepath.Join(t.TempDir(), "nope"), t.TempDir(), t.TempDir())
	p, _ := setupPipeline(t, cfg)

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil error, want failure on missing input directory")
	}
}

func TestPipelineTableSubset(t *testing.T) {
	songDir, logDir, outDir := t.TempDir(), t.TempDir(), filepath.Join(t.TempDir(), "lake")
	writeStandardInputs(t, songDir, logDir)

	cfg := newTestConfig(songDir, logDir, outDir)
	cfg.Pipeline.Tables = []string{"songs", "artists"}
	p, _ := setupPipeline(t, cfg)
	ctx := context.Background()

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "songs")); err != nil {
		t.Errorf("songs output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "songplays")); !os.IsNotExist(err) {
		t.Error("songplays written despite not being selected")
	}
}
