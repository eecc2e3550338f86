package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/sandeepkv93/chewy/internal/model"
)

const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPure is modernc.org/sqlite, usable with CGO_ENABLED=0.
	DriverPure = "sqlite"
)

// Fixed width so that stored instants sort lexically in time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	// PRAGMA foreign_keys is per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(driver, path string) (*SQLiteRepository, error) {
	if driver == "" {
		driver = DriverCGO
	}
	if driver != DriverCGO && driver != DriverPure {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) DB() *sql.DB { return r.db }

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const taskColumns = `id, content, duration_minutes, completed, kind, due_by, recurrence_kind, recurrence_weekdays, time_window_start, time_window_end, active, created_at, updated_at`

func (r *SQLiteRepository) CreateTask(ctx context.Context, in model.Task) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		recKind, recDays := recurrenceColumns(in.Recurrence)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.ID, in.Content, in.DurationMinutes, boolInt(in.Completed), string(in.Kind), nullTime(in.DueBy),
			recKind, recDays, nullClock(in.Window.Start), nullClock(in.Window.End), boolInt(in.Active),
			mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
		); err != nil {
			return err
		}
		return insertDependencies(ctx, tx, in.ID, in.DependsOn)
	})
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT dependency_id FROM task_dependencies WHERE task_id = ? ORDER BY dependency_id`, id)
	if err != nil {
		return model.Task{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return model.Task{}, err
		}
		task.DependsOn = append(task.DependsOn, dep)
	}
	return task, rows.Err()
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in model.Task) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		recKind, recDays := recurrenceColumns(in.Recurrence)
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET content = ?, duration_minutes = ?, completed = ?, kind = ?, due_by = ?, recurrence_kind = ?,
				recurrence_weekdays = ?, time_window_start = ?, time_window_end = ?, active = ?, updated_at = ?
			WHERE id = ?`,
			in.Content, in.DurationMinutes, boolInt(in.Completed), string(in.Kind), nullTime(in.DueBy), recKind,
			recDays, nullClock(in.Window.Start), nullClock(in.Window.End), boolInt(in.Active), mustTime(in.UpdatedAt),
			in.ID,
		)
		if err != nil {
			return err
		}
		if err := checkRowsAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, in.ID); err != nil {
			return err
		}
		return insertDependencies(ctx, tx, in.ID, in.DependsOn)
	})
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) CompleteTask(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET completed = 1, updated_at = ? WHERE id = ?`, mustTime(at), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if filter.Active != nil {
		clauses = append(clauses, "active = ?")
		args = append(args, boolInt(*filter.Active))
	}
	if filter.DueBefore != nil {
		clauses = append(clauses, "due_by IS NOT NULL AND due_by <= ?")
		args = append(args, mustTime(*filter.DueBefore))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	edges, err := r.ListDependencies(ctx)
	if err != nil {
		return nil, err
	}
	byTask := make(map[string][]string)
	for _, e := range edges {
		byTask[e.TaskID] = append(byTask[e.TaskID], e.DependsOnID)
	}
	for i := range out {
		out[i].DependsOn = byTask[out[i].ID]
	}
	return out, nil
}

func (r *SQLiteRepository) ListDependencies(ctx context.Context) ([]model.Dependency, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT task_id, dependency_id FROM task_dependencies ORDER BY task_id, dependency_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Dependency, 0)
	for rows.Next() {
		var d model.Dependency
		if err := rows.Scan(&d.TaskID, &d.DependsOnID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddDependency(ctx context.Context, edge model.Dependency) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return insertDependencies(ctx, tx, edge.TaskID, []string{edge.DependsOnID})
	})
}

func (r *SQLiteRepository) RemoveDependency(ctx context.Context, edge model.Dependency) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ? AND dependency_id = ?`,
		edge.TaskID, edge.DependsOnID)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

const eventColumns = `id, subject, start_at, end_at, managed, source_file, categories, raw_data, updated_at`

func (r *SQLiteRepository) UpsertEvent(ctx context.Context, in model.CalendarEvent) error {
	categories, err := json.Marshal(nonNilStrings(in.Categories))
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	raw := string(in.Raw)
	if raw == "" {
		raw = "{}"
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO calendar_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			managed = excluded.managed,
			source_file = excluded.source_file,
			categories = excluded.categories,
			raw_data = excluded.raw_data,
			updated_at = excluded.updated_at`,
		in.ID, in.Subject, mustTime(in.Start), mustTime(in.End), boolInt(in.Managed), in.SourceFile,
		string(categories), raw, mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (model.CalendarEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CalendarEvent{}, ErrNotFound
		}
		return model.CalendarEvent{}, err
	}
	return ev, nil
}

func (r *SQLiteRepository) UpdateManagedEvent(ctx context.Context, id string, patch EventPatch) error {
	ev, err := r.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if !ev.Managed {
		return fmt.Errorf("%w: %s", ErrEventNotManaged, id)
	}
	if patch.Subject != nil {
		ev.Subject = *patch.Subject
	}
	if patch.Start != nil {
		ev.Start = *patch.Start
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE calendar_events SET subject = ?, start_at = ?, end_at = ?, updated_at = ? WHERE id = ?`,
		ev.Subject, mustTime(ev.Start), mustTime(ev.End), mustTime(time.Now()), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, filter EventListFilter) ([]model.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events`
	args := make([]any, 0, 2)
	if filter.ManagedOnly {
		query += ` WHERE managed = 1`
	}
	query += ` ORDER BY start_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)
	return r.queryEvents(ctx, query, args...)
}

// ListEventsBetween returns events touching [start, end].
func (r *SQLiteRepository) ListEventsBetween(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM calendar_events
		WHERE end_at >= ? AND start_at <= ?
		ORDER BY start_at ASC, id ASC`,
		mustTime(start), mustTime(end),
	)
}

func (r *SQLiteRepository) DeleteEventsExcept(ctx context.Context, keep []string) (int, error) {
	if len(keep) == 0 {
		return r.DeleteAllEvents(ctx)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
	args := make([]any, 0, len(keep))
	for _, id := range keep {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *SQLiteRepository) DeleteAllEvents(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM calendar_events`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ReplaceSchedule atomically drops every scheduled task starting inside
// [start, end] and inserts items. Items without an ID get a fresh UUID.
func (r *SQLiteRepository) ReplaceSchedule(ctx context.Context, start, end time.Time, items []model.ScheduledTask) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE start_at >= ? AND start_at <= ?`,
			mustTime(start), mustTime(end)); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO scheduled_tasks (id, task_id, start_at, end_at, status) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, item := range items {
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			if item.Status == "" {
				item.Status = model.StatusScheduled
			}
			if err := item.Validate(); err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, item.ID, item.TaskID, mustTime(item.Start), mustTime(item.End), string(item.Status)); err != nil {
				return fmt.Errorf("insert scheduled task for %s: %w", item.TaskID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListSchedule(ctx context.Context, start, end time.Time) ([]ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.task_id, s.start_at, s.end_at, s.status, t.content, t.duration_minutes
		FROM scheduled_tasks s
		JOIN tasks t ON t.id = s.task_id
		WHERE s.start_at >= ? AND s.start_at <= ?
		ORDER BY s.start_at ASC, s.id ASC`,
		mustTime(start), mustTime(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ScheduleEntry, 0)
	for rows.Next() {
		var e ScheduleEntry
		var startAt, endAt, status string
		if err := rows.Scan(&e.ID, &e.TaskID, &startAt, &endAt, &status, &e.Content, &e.DurationMinutes); err != nil {
			return nil, err
		}
		if e.Start, err = parseRequiredTime(startAt); err != nil {
			return nil, err
		}
		if e.End, err = parseRequiredTime(endAt); err != nil {
			return nil, err
		}
		e.Status = model.ScheduleStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateScheduledTask(ctx context.Context, id string, patch ScheduledTaskPatch) error {
	var st model.ScheduledTask
	var startAt, endAt, status string
	err := r.db.QueryRowContext(ctx, `SELECT id, task_id, start_at, end_at, status FROM scheduled_tasks WHERE id = ?`, id).
		Scan(&st.ID, &st.TaskID, &startAt, &endAt, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if st.Start, err = parseRequiredTime(startAt); err != nil {
		return err
	}
	if st.End, err = parseRequiredTime(endAt); err != nil {
		return err
	}
	st.Status = model.ScheduleStatus(status)

	if patch.Start != nil {
		st.Start = *patch.Start
	}
	if patch.End != nil {
		st.End = *patch.End
	}
	if patch.Status != nil {
		st.Status = *patch.Status
	}
	if err := st.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_tasks SET start_at = ?, end_at = ?, status = ? WHERE id = ?`,
		mustTime(st.Start), mustTime(st.End), string(st.Status), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) queryEvents(ctx context.Context, query string, args ...any) ([]model.CalendarEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CalendarEvent, 0)
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func insertDependencies(ctx context.Context, tx *sql.Tx, taskID string, deps []string) error {
	for _, dep := range deps {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_dependencies (task_id, dependency_id) VALUES (?, ?)`, taskID, dep); err != nil {
			return fmt.Errorf("insert dependency %s -> %s: %w", taskID, dep, err)
		}
	}
	return nil
}

func recurrenceColumns(rec *model.Recurrence) (any, string) {
	if rec == nil {
		return nil, ""
	}
	return string(rec.Kind), strings.Join(model.FormatWeekdays(rec.Weekdays), ",")
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullClock(c *model.Clock) any {
	if c == nil {
		return nil
	}
	return c.String()
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func parseNullableClock(v sql.NullString) (*model.Clock, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	c, err := model.ParseClock(v.String)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func applyPagination(args *[]any, limit, offset int) string {
	clause := ""
	if limit > 0 {
		clause += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			clause += " LIMIT -1"
		}
		clause += " OFFSET ?"
		*args = append(*args, offset)
	}
	return clause
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (model.Task, error) {
	var out model.Task
	var kind string
	var completed, active int
	var due, recKind, winStart, winEnd sql.NullString
	var recDays, created, updated string
	if err := s.Scan(&out.ID, &out.Content, &out.DurationMinutes, &completed, &kind, &due, &recKind, &recDays,
		&winStart, &winEnd, &active, &created, &updated); err != nil {
		return model.Task{}, err
	}
	out.Kind = model.TaskKind(kind)
	out.Completed = completed == 1
	out.Active = active == 1

	var err error
	if out.DueBy, err = parseNullableTime(due); err != nil {
		return model.Task{}, err
	}
	if out.Window.Start, err = parseNullableClock(winStart); err != nil {
		return model.Task{}, err
	}
	if out.Window.End, err = parseNullableClock(winEnd); err != nil {
		return model.Task{}, err
	}
	if recKind.Valid && recKind.String != "" {
		rec := model.Recurrence{Kind: model.RecurrenceKind(recKind.String)}
		for _, name := range strings.Split(recDays, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			day, dayErr := model.ParseWeekday(name)
			if dayErr != nil {
				return model.Task{}, dayErr
			}
			rec.Weekdays = append(rec.Weekdays, day)
		}
		out.Recurrence = &rec
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Task{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.Task{}, err
	}
	return out, nil
}

func scanEvent(s scanner) (model.CalendarEvent, error) {
	var out model.CalendarEvent
	var start, end, categories, raw, updated string
	var managed int
	if err := s.Scan(&out.ID, &out.Subject, &start, &end, &managed, &out.SourceFile, &categories, &raw, &updated); err != nil {
		return model.CalendarEvent{}, err
	}
	var err error
	if out.Start, err = parseRequiredTime(start); err != nil {
		return model.CalendarEvent{}, err
	}
	if out.End, err = parseRequiredTime(end); err != nil {
		return model.CalendarEvent{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.CalendarEvent{}, err
	}
	if err := json.Unmarshal([]byte(categories), &out.Categories); err != nil {
		return model.CalendarEvent{}, fmt.Errorf("decode categories for %s: %w", out.ID, err)
	}
	out.Managed = managed == 1
	out.Raw = json.RawMessage(raw)
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
