package bind

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport_RanksByIncomingReferencesAndListsOrphans(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("app.main", "app.util", "import", "/src/app/util.py")
	g.AddEdge("app.handler", "app.util", "import", "/src/app/util.py")
	g.AddEdge("app.main", "app.handler", "call", "/src/app/handler.py")
	g.intern("app.orphan")

	report := Report(g)

	assert.Contains(t, report, "Modules: 4")
	assert.Contains(t, report, "Edges: 3")
	assert.True(t, strings.Index(report, "app.util") < strings.Index(report, "app.handler"),
		"app.util has more incoming references and should rank first")
	assert.Contains(t, report, "app.orphan")
	assert.Contains(t, report, "No cycles detected.")
}

func TestReport_DetectsCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("a", "b", "import", "")
	g.AddEdge("b", "a", "import", "")

	report := Report(g)
	assert.Contains(t, report, "Cycle detected")
}
