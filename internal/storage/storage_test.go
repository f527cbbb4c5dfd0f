package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleRows() []types.Row {
	return []types.Row{
		{types.FieldSKU: "A1", types.FieldTitle: "Mug", types.FieldWebsite: "shop.example", types.FieldScrapedURL: "https://shop.example/p/a1"},
		{types.FieldSKU: "B2", types.FieldTitle: "Cup", types.FieldScrapedURL: ""},
	}
}

func TestJSONStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage("json", dir, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Store(sampleRows()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "enriched.json"))
	if err != nil {
		t.Fatal(err)
	}
	var rows []map[string]string
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rows) != 2 || rows[0][types.FieldSKU] != "A1" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestJSONLStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage("jsonl", dir, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	s.Store(sampleRows()[:1])
	s.Store(sampleRows()[1:])
	s.Close()

	f, err := os.Open(filepath.Join(dir, "enriched.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var row map[string]string
		if err := json.Unmarshal(sc.Bytes(), &row); err != nil {
			t.Fatalf("line %d invalid: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}

func TestCSVStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage("csv", dir, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Store(sampleRows()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	f, err := os.Open(filepath.Join(dir, "enriched.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	header := records[0]
	if len(header) != 4 || header[0] != types.FieldScrapedURL || header[3] != types.FieldWebsite {
		t.Errorf("unexpected header %v", header)
	}
	if records[2][3] != "" {
		t.Errorf("expected missing website to be blank, got %q", records[2][3])
	}
}

func TestCSVStorageKeepsKeysFromLaterBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewCSVStorage(path, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Store([]types.Row{{types.FieldSKU: "A1"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Store([]types.Row{{types.FieldSKU: "B2", types.FieldVendor: "Acme"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{types.FieldSKU, types.FieldVendor},
		{"A1", ""},
		{"B2", "Acme"},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %v", len(want), records)
	}
	for i := range want {
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Errorf("record %d = %v, want %v", i, records[i], want[i])
				break
			}
		}
	}
}

func TestSQLiteStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "gapfill.db")
	s, err := NewSQLiteStorage(path, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Store(sampleRows()); err != nil {
		t.Fatalf("Store: %v", err)
	}
	n, err := s.Count()
	if err != nil || n != 2 {
		t.Fatalf("expected 2 rows, got %d (%v)", n, err)
	}

	var site, data string
	err = s.db.QueryRow(`SELECT site, data FROM enriched_rows WHERE sku = ?`, "A1").Scan(&site, &data)
	if err != nil {
		t.Fatal(err)
	}
	if site != "https://shop.example" {
		t.Errorf("expected normalized site, got %q", site)
	}
	var row map[string]string
	if err := json.Unmarshal([]byte(data), &row); err != nil || row[types.FieldTitle] != "Mug" {
		t.Errorf("unexpected data column %q (%v)", data, err)
	}
}

func TestRowDocument(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := rowDocument(types.Row{types.FieldSKU: "A1"}, at)
	if doc[types.FieldSKU] != "A1" || doc["_stored_at"] != at {
		t.Errorf("unexpected document %v", doc)
	}
}

type memStorage struct {
	rows   []types.Row
	err    error
	closed bool
}

func (m *memStorage) Store(rows []types.Row) error {
	m.rows = append(m.rows, rows...)
	return m.err
}
func (m *memStorage) Close() error { m.closed = true; return nil }
func (m *memStorage) Name() string { return "mem" }

func TestMultiStorage(t *testing.T) {
	a, b := &memStorage{}, &memStorage{err: errors.New("down")}
	multi := NewMultiStorage([]Storage{a, b}, testLogger)

	if err := multi.Store(sampleRows()); err == nil {
		t.Error("expected first backend error to surface")
	}
	if len(a.rows) != 2 || len(b.rows) != 2 {
		t.Error("expected every backend to receive the batch")
	}
	multi.Close()
	if !a.closed || !b.closed {
		t.Error("expected every backend closed")
	}
}

func TestNewUnsupported(t *testing.T) {
	if _, err := New(&config.StorageConfig{Type: "parquet"}, testLogger); err == nil {
		t.Error("expected error for unsupported type")
	}
}

type storedCounter struct{ n int }

func (c *storedCounter) RecordStored(n int) { c.n += n }

func TestInstrumentCountsSuccessfulWrites(t *testing.T) {
	ok, failing := &memStorage{}, &memStorage{err: errors.New("down")}
	rec := &storedCounter{}

	if err := Instrument(ok, rec).Store(sampleRows()); err != nil {
		t.Fatal(err)
	}
	if err := Instrument(failing, rec).Store(sampleRows()); err == nil {
		t.Fatal("expected backend error")
	}
	if rec.n != 2 {
		t.Errorf("expected only the successful batch counted, got %d", rec.n)
	}
	if Instrument(ok, nil) != Storage(ok) {
		t.Error("nil recorder should return the backend unchanged")
	}
}

func TestNewFanOut(t *testing.T) {
	dir := t.TempDir()
	s, err := New(&config.StorageConfig{
		Type:       "jsonl, sqlite",
		OutputPath: dir,
		SQLitePath: filepath.Join(dir, "rows.db"),
	}, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "multi" {
		t.Fatalf("expected multi backend, got %s", s.Name())
	}
	if err := s.Store(sampleRows()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"enriched.jsonl", "rows.db"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestNewFanOutRejectsUnknownMember(t *testing.T) {
	dir := t.TempDir()
	_, err := New(&config.StorageConfig{Type: "json,parquet", OutputPath: dir}, testLogger)
	if err == nil {
		t.Error("expected error for unsupported member type")
	}
}
