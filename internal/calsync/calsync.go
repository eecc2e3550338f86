// Package calsync ingests calendar JSON exports into storage.
package calsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/sandeepkv93/chewy/internal/model"
)

const DefaultMarker = "chewy"

var (
	ErrNoCalendarDir = errors.New("calsync: calendar directory not configured or does not exist")
	ErrBadTimestamp  = errors.New("calsync: unrecognised timestamp")
)

// Store is the slice of storage the syncer writes to.
type Store interface {
	UpsertEvent(ctx context.Context, in model.CalendarEvent) error
	DeleteEventsExcept(ctx context.Context, keep []string) (int, error)
}

type Options struct {
	// Location that naive timestamps are read in and all times converted to.
	Location *time.Location
	// Marker is matched case-insensitively against event categories.
	Marker string
	Logger *slog.Logger
	Now    func() time.Time
}

type Result struct {
	FilesProcessed []string `json:"files_processed"`
	EventsSynced   int      `json:"events_synced"`
	EventsDeleted  int      `json:"events_deleted"`
}

type Syncer struct {
	fs     afero.Fs
	dir    string
	store  Store
	loc    *time.Location
	marker string
	logger *slog.Logger
	now    func() time.Time
}

func NewSyncer(fs afero.Fs, dir string, store Store, opts Options) *Syncer {
	s := &Syncer{
		fs:     fs,
		dir:    dir,
		store:  store,
		loc:    opts.Location,
		marker: strings.ToLower(strings.TrimSpace(opts.Marker)),
		logger: opts.Logger,
		now:    opts.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.marker == "" {
		s.marker = DefaultMarker
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Sync upserts every event found in the directory's *.json files and deletes
// stored events that no file mentions any more. A file that cannot be decoded
// is logged and skipped.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	if s.dir == "" {
		return Result{}, ErrNoCalendarDir
	}
	if ok, err := afero.DirExists(s.fs, s.dir); err != nil || !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNoCalendarDir, s.dir)
	}
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return Result{}, fmt.Errorf("calsync: read dir: %w", err)
	}

	res := Result{FilesProcessed: make([]string, 0)}
	seen := make(map[string]bool)
	keep := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := entry.Name()
		res.FilesProcessed = append(res.FilesProcessed, name)

		events, err := s.readFile(name)
		if err != nil {
			s.logger.Error("skipping calendar file", "file", name, "error", err)
			continue
		}
		for _, ev := range events {
			if err := s.store.UpsertEvent(ctx, ev); err != nil {
				return res, fmt.Errorf("calsync: upsert %s: %w", ev.ID, err)
			}
			res.EventsSynced++
			if !seen[ev.ID] {
				seen[ev.ID] = true
				keep = append(keep, ev.ID)
			}
		}
	}

	deleted, err := s.store.DeleteEventsExcept(ctx, keep)
	if err != nil {
		return res, fmt.Errorf("calsync: prune: %w", err)
	}
	res.EventsDeleted = deleted
	s.logger.Info("calendar synced",
		"files", len(res.FilesProcessed), "synced", res.EventsSynced, "deleted", res.EventsDeleted)
	return res, nil
}

type exportEvent struct {
	ID                *string  `json:"id"`
	Subject           *string  `json:"subject"`
	Start             *string  `json:"start"`
	End               *string  `json:"end"`
	StartWithTimeZone string   `json:"startWithTimeZone"`
	EndWithTimeZone   string   `json:"endWithTimeZone"`
	Categories        []string `json:"categories"`
}

func (s *Syncer) readFile(name string) ([]model.CalendarEvent, error) {
	data, err := afero.ReadFile(s.fs, path.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	raws, err := splitDocument(data)
	if err != nil {
		return nil, err
	}

	out := make([]model.CalendarEvent, 0, len(raws))
	for _, raw := range raws {
		var in exportEvent
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, err
		}
		if in.ID == nil || in.Subject == nil || in.Start == nil || in.End == nil {
			continue
		}
		start, err := s.pickTime(in.StartWithTimeZone, *in.Start)
		if err != nil {
			return nil, err
		}
		end, err := s.pickTime(in.EndWithTimeZone, *in.End)
		if err != nil {
			return nil, err
		}
		ev := model.CalendarEvent{
			ID:         *in.ID,
			Subject:    *in.Subject,
			Start:      start,
			End:        end,
			Managed:    s.isManaged(in.Categories),
			SourceFile: name,
			Categories: in.Categories,
			Raw:        append(json.RawMessage(nil), raw...),
			UpdatedAt:  s.now(),
		}
		if err := ev.Validate(); err != nil {
			s.logger.Warn("skipping calendar event", "file", name, "event_id", ev.ID, "error", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func splitDocument(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one json.RawMessage
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, err
	}
	return []json.RawMessage{one}, nil
}

func (s *Syncer) pickTime(withZone, plain string) (time.Time, error) {
	if withZone != "" {
		return ParseTimestamp(withZone, s.loc)
	}
	return ParseTimestamp(plain, s.loc)
}

func (s *Syncer) isManaged(categories []string) bool {
	for _, c := range categories {
		if strings.Contains(strings.ToLower(c), s.marker) {
			return true
		}
	}
	return false
}

var filenameStamp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}_\d{2}_\d{2}`)

// ParseTimestamp reads export timestamps: RFC3339 with any fractional
// precision, the same with '_' as the time separator, or a zoneless date
// or date-time interpreted in loc. The result is expressed in loc.
func ParseTimestamp(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if filenameStamp.MatchString(v) {
		v = strings.ReplaceAll(v, "_", ":")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, v)
}
