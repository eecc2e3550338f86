package calsync

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/sandeepkv93/chewy/internal/storage"
)

func setupStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.OpenSQLite(storage.DriverCGO, filepath.Join(t.TempDir(), "calsync.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := storage.MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func writeFile(t *testing.T, fs afero.Fs, name, body string) {
	t.Helper()
	if err := afero.WriteFile(fs, "/cal/"+name, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func fixedNow() time.Time { return time.Date(2026, 2, 9, 7, 0, 0, 0, time.UTC) }

func TestSyncIngestsArraysAndObjects(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := setupStore(t)
	writeFile(t, fs, "week.json", `[
		{"id": "e1", "subject": "Standup", "start": "2026-02-09T09:00:00Z", "end": "2026-02-09T09:15:00Z", "categories": ["Work"]},
		{"id": "e2", "subject": "Focus", "start": "2026-02-09T10:00:00Z", "end": "2026-02-09T12:00:00Z", "categories": ["Chewy Task"]}
	]`)
	writeFile(t, fs, "single.json", `{"id": "e3", "subject": "Lunch", "start": "2026-02-09T12:00:00Z", "end": "2026-02-09T13:00:00Z"}`)
	writeFile(t, fs, "notes.txt", `not json`)

	syncer := NewSyncer(fs, "/cal", store, Options{Location: time.UTC, Now: fixedNow})
	res, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.EventsSynced != 3 || res.EventsDeleted != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(res.FilesProcessed) != 2 || res.FilesProcessed[0] != "single.json" || res.FilesProcessed[1] != "week.json" {
		t.Fatalf("unexpected files: %v", res.FilesProcessed)
	}

	focus, err := store.GetEvent(context.Background(), "e2")
	if err != nil {
		t.Fatalf("get e2: %v", err)
	}
	if !focus.Managed || focus.SourceFile != "week.json" {
		t.Fatalf("expected managed event from week.json, got %#v", focus)
	}
	if !strings.Contains(string(focus.Raw), `"Chewy Task"`) {
		t.Fatalf("expected raw json to be kept, got %s", focus.Raw)
	}
	standup, err := store.GetEvent(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get e1: %v", err)
	}
	if standup.Managed {
		t.Fatal("expected unmanaged event")
	}
}

func TestSyncPrefersZonedFieldsAndConvertsToLocation(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := setupStore(t)
	berlin := time.FixedZone("CET", 3600)
	writeFile(t, fs, "zoned.json", `{
		"id": "z1", "subject": "Review",
		"start": "2026-02-09T00:00:00", "end": "2026-02-09T00:30:00",
		"startWithTimeZone": "2026-02-09T08:00:00.0000000+00:00",
		"endWithTimeZone": "2026-02-09T08_30_00.0000000+00:00"
	}`)

	if _, err := NewSyncer(fs, "/cal", store, Options{Location: berlin, Now: fixedNow}).Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	got, err := store.GetEvent(context.Background(), "z1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	wantStart := time.Date(2026, 2, 9, 9, 0, 0, 0, berlin)
	if !got.Start.Equal(wantStart) || !got.End.Equal(wantStart.Add(30*time.Minute)) {
		t.Fatalf("unexpected times: %v - %v", got.Start, got.End)
	}
}

func TestSyncSkipsIncompleteAndInvertedEvents(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := setupStore(t)
	writeFile(t, fs, "mixed.json", `[
		{"id": "ok", "subject": "Fine", "start": "2026-02-09T09:00:00Z", "end": "2026-02-09T10:00:00Z"},
		{"id": "nosubject", "start": "2026-02-09T09:00:00Z", "end": "2026-02-09T10:00:00Z"},
		{"id": "inverted", "subject": "Backwards", "start": "2026-02-09T10:00:00Z", "end": "2026-02-09T09:00:00Z"},
		{"id": "empty", "subject": "Zero", "start": "2026-02-09T10:00:00Z", "end": "2026-02-09T10:00:00Z"}
	]`)

	res, err := NewSyncer(fs, "/cal", store, Options{Location: time.UTC}).Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.EventsSynced != 1 {
		t.Fatalf("expected only the valid event, got %#v", res)
	}
	if _, err := store.GetEvent(context.Background(), "inverted"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected inverted event skipped, got %v", err)
	}
}

func TestSyncDeletesVanishedEvents(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := setupStore(t)
	writeFile(t, fs, "a.json", `[
		{"id": "e1", "subject": "One", "start": "2026-02-09T09:00:00Z", "end": "2026-02-09T10:00:00Z"},
		{"id": "e2", "subject": "Two", "start": "2026-02-09T11:00:00Z", "end": "2026-02-09T12:00:00Z"}
	]`)
	syncer := NewSyncer(fs, "/cal", store, Options{Location: time.UTC})
	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	writeFile(t, fs, "a.json", `[{"id": "e2", "subject": "Two (moved)", "start": "2026-02-09T13:00:00Z", "end": "2026-02-09T14:00:00Z"}]`)
	res, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if res.EventsSynced != 1 || res.EventsDeleted != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}
	left, err := store.ListEvents(context.Background(), storage.EventListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 1 || left[0].ID != "e2" || left[0].Subject != "Two (moved)" {
		t.Fatalf("unexpected events: %#v", left)
	}
}

func TestSyncLogsAndSkipsBrokenFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := setupStore(t)
	writeFile(t, fs, "broken.json", `{"id": "x", `)
	writeFile(t, fs, "good.json", `{"id": "g", "subject": "Good", "start": "2026-02-09T09:00:00Z", "end": "2026-02-09T10:00:00Z"}`)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	res, err := NewSyncer(fs, "/cal", store, Options{Location: time.UTC, Logger: logger}).Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.EventsSynced != 1 || len(res.FilesProcessed) != 2 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if !strings.Contains(logs.String(), "file=broken.json") {
		t.Fatalf("expected broken file to be logged, got %q", logs.String())
	}
}

func TestSyncCustomMarker(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := setupStore(t)
	writeFile(t, fs, "a.json", `{"id": "e", "subject": "Mine", "start": "2026-02-09T09:00:00Z", "end": "2026-02-09T10:00:00Z", "categories": ["PLANNER-owned"]}`)
	if _, err := NewSyncer(fs, "/cal", store, Options{Location: time.UTC, Marker: "Planner"}).Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	got, err := store.GetEvent(context.Background(), "e")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Managed {
		t.Fatal("expected custom marker to flag event as managed")
	}
}

func TestSyncMissingDirectory(t *testing.T) {
	store := setupStore(t)
	_, err := NewSyncer(afero.NewMemMapFs(), "/nowhere", store, Options{}).Sync(context.Background())
	if !errors.Is(err, ErrNoCalendarDir) {
		t.Fatalf("expected ErrNoCalendarDir, got %v", err)
	}
	_, err = NewSyncer(afero.NewMemMapFs(), "", store, Options{}).Sync(context.Background())
	if !errors.Is(err, ErrNoCalendarDir) {
		t.Fatalf("expected ErrNoCalendarDir for empty dir, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	utc := time.UTC
	want := time.Date(2026, 2, 9, 9, 30, 0, 0, utc)
	cases := []string{
		"2026-02-09T09:30:00Z",
		"2026-02-09T09:30:00.0000000Z",
		"2026-02-09T09_30_00.0000000Z",
		"2026-02-09T11:30:00+02:00",
		"2026-02-09T09:30:00",
	}
	for _, c := range cases {
		got, err := ParseTimestamp(c, utc)
		if err != nil {
			t.Fatalf("parse %q: %v", c, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q: got %v want %v", c, got, want)
		}
	}
	day, err := ParseTimestamp("2026-02-09", utc)
	if err != nil || !day.Equal(time.Date(2026, 2, 9, 0, 0, 0, 0, utc)) {
		t.Fatalf("parse date-only: %v %v", day, err)
	}
	if _, err := ParseTimestamp("next tuesday", utc); !errors.Is(err, ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got %v", err)
	}
}
