// Package deps orders one-off tasks so that every task follows the tasks it
// depends on. Cycles and dangling references never fail the ordering: the
// first blocked task is placed anyway and reported as a Diagnostic.
package deps

import (
	"io"
	"log/slog"

	"github.com/sandeepkv93/chewy/internal/model"
)

type Reason string

const (
	// ReasonCycle means every unmet dependency is part of the input set, so
	// the remaining tasks wait on each other.
	ReasonCycle Reason = "cycle"
	// ReasonMissing means at least one dependency is not in the input set,
	// e.g. it was completed or deleted.
	ReasonMissing Reason = "missing_dependency"
)

// Diagnostic records a forced placement.
type Diagnostic struct {
	TaskID string
	Reason Reason
	Unmet  []string
}

type Resolution struct {
	Order  []model.Task
	Forced []Diagnostic
}

type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{logger: logger}
}

// Resolve returns every input task exactly once. Dependencies come from each
// task's DependsOn plus the supplied edges. Ties are broken by input order.
func (r *Resolver) Resolve(tasks []model.Task, edges []model.Dependency) Resolution {
	requires := Requirements(tasks, edges)
	inInput := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		inInput[t.ID] = true
	}

	remaining := make([]model.Task, len(tasks))
	copy(remaining, tasks)
	placed := make(map[string]bool, len(tasks))
	out := Resolution{Order: make([]model.Task, 0, len(tasks))}

	for len(remaining) > 0 {
		idx := -1
		for i, t := range remaining {
			if len(unmet(requires[t.ID], placed)) == 0 {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = 0
			t := remaining[0]
			missing := unmet(requires[t.ID], placed)
			reason := ReasonCycle
			for _, id := range missing {
				if !inInput[id] {
					reason = ReasonMissing
					break
				}
			}
			out.Forced = append(out.Forced, Diagnostic{TaskID: t.ID, Reason: reason, Unmet: missing})
			r.logger.Warn("forced placement of task with unresolved dependencies",
				slog.String("task_id", t.ID),
				slog.String("reason", string(reason)),
				slog.Any("unmet", missing),
			)
		}
		t := remaining[idx]
		out.Order = append(out.Order, t)
		placed[t.ID] = true
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return out
}

// Requirements merges Task.DependsOn and the explicit edges into a
// de-duplicated dependency list per task id.
func Requirements(tasks []model.Task, edges []model.Dependency) map[string][]string {
	seen := make(map[string]map[string]bool, len(tasks))
	out := make(map[string][]string, len(tasks))
	add := func(from, to string) {
		if from == "" || to == "" {
			return
		}
		if seen[from] == nil {
			seen[from] = make(map[string]bool)
		}
		if seen[from][to] {
			return
		}
		seen[from][to] = true
		out[from] = append(out[from], to)
	}
	for _, t := range tasks {
		for _, d := range t.DependsOn {
			add(t.ID, d)
		}
	}
	for _, e := range edges {
		add(e.TaskID, e.DependsOnID)
	}
	return out
}

func unmet(required []string, placed map[string]bool) []string {
	var out []string
	for _, id := range required {
		if !placed[id] {
			out = append(out, id)
		}
	}
	return out
}
