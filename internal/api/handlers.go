package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/chewy/internal/model"
	"github.com/sandeepkv93/chewy/internal/storage"
)

// GET /api/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.TaskListFilter{Kind: model.TaskKind(q.Get("task_type"))}
	if filter.Kind != "" && !filter.Kind.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown task_type %q", filter.Kind))
		return
	}
	var err error
	if filter.Completed, err = boolParam(q.Get("completed")); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Active, err = boolParam(q.Get("active")); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		h.fail(w, r, err)
		return
	}

	tasks, err := h.repo.ListTasks(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t, h.loc))
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	task := model.Task{Kind: model.TaskKindOneOff, Active: true}
	if req.ID != nil {
		task.ID = *req.ID
	}
	if err := req.apply(&task, h.loc); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.planner.CreateTask(r.Context(), task)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(created, h.loc))
}

// GET /api/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.repo.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task, h.loc))
}

// PUT /api/tasks/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.repo.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := req.apply(&task, h.loc); err != nil {
		h.fail(w, r, err)
		return
	}
	if task.IsOneOff() {
		task.Recurrence = nil
	}
	updated, err := h.planner.UpdateTask(r.Context(), task)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(updated, h.loc))
}

// DELETE /api/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// POST /api/tasks/{id}/complete
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.CompleteTask(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task marked as completed"})
}

// GET /api/calendar?start_date=...&end_date=...
func (h *Handler) CalendarRange(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.requiredRange(w, r)
	if !ok {
		return
	}
	events, err := h.repo.ListEventsBetween(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev, h.loc))
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/calendar/events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	managed, err := boolParam(r.URL.Query().Get("managed"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	events, err := h.repo.ListEvents(r.Context(), storage.EventListFilter{ManagedOnly: managed != nil && *managed})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev, h.loc))
	}
	writeJSON(w, http.StatusOK, out)
}

// PUT /api/calendar/events/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	patch := storage.EventPatch{Subject: req.Subject}
	var err error
	if patch.Start, err = parseTimePtr(req.Start, h.loc); err != nil {
		h.fail(w, r, err)
		return
	}
	if patch.End, err = parseTimePtr(req.End, h.loc); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.repo.UpdateManagedEvent(r.Context(), r.PathValue("id"), patch); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Event updated successfully"})
}

// DELETE /api/calendar/events
func (h *Handler) ClearEvents(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.DeleteAllEvents(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user, _ := UserFrom(r.Context())
	h.logger.Info("calendar events cleared", "user", user, "deleted", n)
	writeJSON(w, http.StatusOK, map[string]any{"message": "All calendar events cleared successfully", "deleted": n})
}

// POST /api/calendar/sync
func (h *Handler) SyncCalendar(w http.ResponseWriter, r *http.Request) {
	res, err := h.planner.Sync(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Calendar synced successfully",
		"files_processed": res.FilesProcessed,
		"events_synced":   res.EventsSynced,
		"events_deleted":  res.EventsDeleted,
	})
}

// POST /api/schedule/generate
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	// An empty body means the default window.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, err)
		return
	}
	from, to := h.planner.DefaultWindow()
	if req.StartDate != "" {
		t, err := parseTimePtr(&req.StartDate, h.loc)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		from, to = h.planner.WindowFrom(*t)
	}
	if req.EndDate != "" {
		t, err := parseTimePtr(&req.EndDate, h.loc)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		to = *t
	}

	res, err := h.planner.Generate(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGenerateResponse(res, h.loc))
}

// GET /api/schedule?start_date=...&end_date=...
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.requiredRange(w, r)
	if !ok {
		return
	}
	entries, err := h.planner.Schedule(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]scheduleEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toScheduleEntryResponse(e, h.loc))
	}
	writeJSON(w, http.StatusOK, out)
}

// PUT /api/schedule/tasks/{id}
func (h *Handler) UpdateScheduledTask(w http.ResponseWriter, r *http.Request) {
	var req scheduledTaskPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	var patch storage.ScheduledTaskPatch
	var err error
	if patch.Start, err = parseTimePtr(req.Start, h.loc); err != nil {
		h.fail(w, r, err)
		return
	}
	if patch.End, err = parseTimePtr(req.End, h.loc); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Status != nil {
		status := model.ScheduleStatus(*req.Status)
		patch.Status = &status
	}
	if err := h.repo.UpdateScheduledTask(r.Context(), r.PathValue("id"), patch); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scheduled task updated successfully"})
}

func (h *Handler) requiredRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	q := r.URL.Query()
	rawFrom, rawTo := q.Get("start_date"), q.Get("end_date")
	if rawFrom == "" || rawTo == "" {
		writeError(w, http.StatusBadRequest, "Missing start_date or end_date parameters")
		return from, to, false
	}
	f, err := parseTimePtr(&rawFrom, h.loc)
	if err != nil {
		h.fail(w, r, err)
		return from, to, false
	}
	t, err := parseTimePtr(&rawTo, h.loc)
	if err != nil {
		h.fail(w, r, err)
		return from, to, false
	}
	return *f, *t, true
}

func boolParam(raw string) (*bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a boolean", errBadRequest, raw)
	}
	return &v, nil
}

func intParam(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", errBadRequest, raw)
	}
	return v, nil
}
