package deps

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/sandeepkv93/chewy/internal/model"
)

func oneOff(id string, dependsOn ...string) model.Task {
	return model.Task{ID: id, Content: id, DurationMinutes: 30, Kind: model.TaskKindOneOff, DependsOn: dependsOn}
}

func ids(tasks []model.Task) string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return strings.Join(out, ",")
}

func TestResolveEmpty(t *testing.T) {
	res := NewResolver(nil).Resolve(nil, nil)
	if len(res.Order) != 0 || len(res.Forced) != 0 {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
}

func TestResolvePlacesDependencyFirst(t *testing.T) {
	res := NewResolver(nil).Resolve([]model.Task{oneOff("A", "B"), oneOff("B")}, nil)
	if got := ids(res.Order); got != "B,A" {
		t.Fatalf("order = %s, want B,A", got)
	}
	if len(res.Forced) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Forced)
	}
}

func TestResolveUsesEdges(t *testing.T) {
	tasks := []model.Task{oneOff("A"), oneOff("B"), oneOff("C")}
	edges := []model.Dependency{{TaskID: "A", DependsOnID: "C"}, {TaskID: "B", DependsOnID: "A"}}
	res := NewResolver(nil).Resolve(tasks, edges)
	if got := ids(res.Order); got != "C,A,B" {
		t.Fatalf("order = %s, want C,A,B", got)
	}
}

func TestResolveKeepsInputOrderWhenIndependent(t *testing.T) {
	res := NewResolver(nil).Resolve([]model.Task{oneOff("X"), oneOff("Y"), oneOff("Z")}, nil)
	if got := ids(res.Order); got != "X,Y,Z" {
		t.Fatalf("order = %s, want X,Y,Z", got)
	}
}

func TestResolveCycleForcesFirstTask(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	res := NewResolver(logger).Resolve([]model.Task{oneOff("A", "B"), oneOff("B", "A")}, nil)
	if got := ids(res.Order); got != "A,B" {
		t.Fatalf("order = %s, want A,B", got)
	}
	if len(res.Forced) != 1 || res.Forced[0].TaskID != "A" || res.Forced[0].Reason != ReasonCycle {
		t.Fatalf("unexpected diagnostics: %+v", res.Forced)
	}
	if !strings.Contains(buf.String(), "forced placement") {
		t.Fatalf("expected warning in log, got %q", buf.String())
	}
}

func TestResolveSelfDependency(t *testing.T) {
	res := NewResolver(nil).Resolve([]model.Task{oneOff("A", "A"), oneOff("B")}, nil)
	if got := ids(res.Order); got != "B,A" {
		t.Fatalf("order = %s, want B,A", got)
	}
	if len(res.Forced) != 1 || res.Forced[0].Reason != ReasonCycle {
		t.Fatalf("unexpected diagnostics: %+v", res.Forced)
	}
}

func TestResolveMissingDependency(t *testing.T) {
	res := NewResolver(nil).Resolve([]model.Task{oneOff("A", "gone"), oneOff("B", "A")}, nil)
	if got := ids(res.Order); got != "A,B" {
		t.Fatalf("order = %s, want A,B", got)
	}
	if len(res.Forced) != 1 || res.Forced[0].Reason != ReasonMissing || res.Forced[0].Unmet[0] != "gone" {
		t.Fatalf("unexpected diagnostics: %+v", res.Forced)
	}
}

func TestResolveCoversEveryTaskOnce(t *testing.T) {
	tasks := []model.Task{
		oneOff("a", "d"), oneOff("b", "a"), oneOff("c", "b", "a"),
		oneOff("d", "c"), oneOff("e"), oneOff("f", "e", "missing"),
	}
	res := NewResolver(nil).Resolve(tasks, nil)
	if len(res.Order) != len(tasks) {
		t.Fatalf("expected %d tasks, got %d", len(tasks), len(res.Order))
	}
	seen := map[string]bool{}
	for _, task := range res.Order {
		if seen[task.ID] {
			t.Fatalf("task %s emitted twice", task.ID)
		}
		seen[task.ID] = true
	}
}
