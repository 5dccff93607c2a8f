package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benvon/task-analyzer/internal/models"
)

func task(id string, deps ...string) models.Task {
	t := models.Task{ID: models.StringID(id), Title: "Task " + id, Importance: 3}
	for _, d := range deps {
		t.Dependencies = append(t.Dependencies, models.StringID(d))
	}
	return t
}

func TestDependencyGraph_DetectCycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tasks    []models.Task
		circular []models.TaskID
	}{
		{
			name:     "no dependencies",
			tasks:    []models.Task{task("a"), task("b")},
			circular: nil,
		},
		{
			name:     "two node cycle leaves unrelated task alone",
			tasks:    []models.Task{task("a", "b"), task("b", "a"), task("c")},
			circular: []models.TaskID{models.StringID("a"), models.StringID("b")},
		},
		{
			name:     "self dependency",
			tasks:    []models.Task{task("a", "a"), task("b")},
			circular: []models.TaskID{models.StringID("a")},
		},
		{
			name:     "chain is acyclic",
			tasks:    []models.Task{task("a"), task("b", "a"), task("c", "b")},
			circular: nil,
		},
		{
			name:     "three node cycle with downstream task",
			tasks:    []models.Task{task("a", "c"), task("b", "a"), task("c", "b"), task("d", "c")},
			circular: []models.TaskID{models.StringID("a"), models.StringID("b"), models.StringID("c")},
		},
		{
			name: "two cycles sharing a node flag every member",
			tasks: []models.Task{
				task("a", "b"), task("b", "a", "c"), task("c", "b"), task("x"),
			},
			circular: []models.TaskID{models.StringID("a"), models.StringID("b"), models.StringID("c")},
		},
		{
			name:     "diamond is acyclic",
			tasks:    []models.Task{task("a"), task("b", "a"), task("c", "a"), task("d", "b", "c")},
			circular: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := NewDependencyGraph(tt.tasks)
			require.NoError(t, err)

			got := g.DetectCycles()
			assert.Len(t, got, len(tt.circular))
			for _, id := range tt.circular {
				assert.True(t, got[id], "expected %s to be circular", id)
			}
		})
	}
}

func TestDependencyGraph_BlockingCount(t *testing.T) {
	t.Parallel()

	g, err := NewDependencyGraph([]models.Task{
		task("a", "a"),
		task("b", "a", "a"),
		task("c", "a"),
		task("d", "a", "b"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, g.BlockingCount(models.StringID("a")), "self edge and repeated edge are not counted")
	assert.Equal(t, 1, g.BlockingCount(models.StringID("b")))
	assert.Equal(t, 0, g.BlockingCount(models.StringID("d")))
	assert.Equal(t, 0, g.BlockingCount(models.StringID("missing")))
	assert.Equal(t, []models.TaskID{models.StringID("b"), models.StringID("c"), models.StringID("d")}, g.Dependents(models.StringID("a")))
	assert.Equal(t, 4, g.Len())
}

func TestNewDependencyGraph_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewDependencyGraph([]models.Task{task("a"), task("a")})
	require.Error(t, err)
	scoringErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTasks, scoringErr.Code)
	assert.Equal(t, "id", scoringErr.Field)

	_, err = NewDependencyGraph([]models.Task{task("a", "zzz")})
	require.Error(t, err)
	scoringErr, ok = AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTasks, scoringErr.Code)
	assert.Equal(t, "dependencies", scoringErr.Field)
	assert.Equal(t, models.StringID("a"), scoringErr.TaskID)
}

func TestNewDependencyGraph_MixedIDForms(t *testing.T) {
	t.Parallel()

	numeric := models.Task{ID: models.IntID(1), Title: "numeric", Importance: 3}
	text := models.Task{ID: models.StringID("1"), Title: "text", Importance: 3}
	child := models.Task{ID: models.StringID("c"), Title: "child", Importance: 3,
		Dependencies: []models.TaskID{models.IntID(1)}}

	g, err := NewDependencyGraph([]models.Task{numeric, text, child})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 1, g.BlockingCount(models.IntID(1)))
	assert.Equal(t, 0, g.BlockingCount(models.StringID("1")))

	dangling := models.Task{ID: models.StringID("d"), Title: "dangling", Importance: 3,
		Dependencies: []models.TaskID{models.StringID("1")}}
	_, err = NewDependencyGraph([]models.Task{numeric, dangling})
	require.Error(t, err)
	scoringErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, models.StringID("d"), scoringErr.TaskID)
	assert.Contains(t, scoringErr.Message, `unknown task "1"`)
	assert.Contains(t, scoringErr.Message, "task 1 exists")

	_, err = NewDependencyGraph([]models.Task{text, {ID: models.StringID("e"), Title: "e", Importance: 3,
		Dependencies: []models.TaskID{models.IntID(1)}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `task "1" exists`)
}

func TestDependencyGraph_TopologicalOrder(t *testing.T) {
	t.Parallel()

	g, err := NewDependencyGraph([]models.Task{
		task("deploy", "test", "build"),
		task("test", "build"),
		task("build"),
		task("docs"),
		task("x", "y"),
		task("y", "x"),
		task("after-cycle", "y"),
	})
	require.NoError(t, err)

	ordered, blocked := g.TopologicalOrder()
	assert.Equal(t, []models.TaskID{models.StringID("build"), models.StringID("test"), models.StringID("deploy"), models.StringID("docs")}, ordered)
	assert.Equal(t, []models.TaskID{models.StringID("x"), models.StringID("y"), models.StringID("after-cycle")}, blocked)
}
