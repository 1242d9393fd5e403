package graph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestGraphProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	pool := []string{"a", "b", "name", "status", "first name"}

	properties.Property("add then remove restores the node collection", prop.ForAll(
		func(existing int, kind int) bool {
			s := NewStore()
			for i := 0; i < existing; i++ {
				n, err := NewNode(fmt.Sprintf("n-%d", i), NodeTypes[i%len(NodeTypes)], Position{X: float64(i)})
				if err != nil || s.AddNode(n) != nil {
					return false
				}
			}
			before := s.Snapshot()

			probe, err := NewNode("probe", NodeTypes[kind], Position{})
			if err != nil || s.AddNode(probe) != nil {
				return false
			}
			if s.RemoveNode("probe") != nil {
				return false
			}
			return cmp.Equal(before, s.Snapshot())
		},
		gen.IntRange(0, 12),
		gen.IntRange(0, len(NodeTypes)-1),
	))

	properties.Property("variables are the distinct names in first-seen order", prop.ForAll(
		func(names []string) bool {
			var b strings.Builder
			for _, n := range names {
				b.WriteString("text {" + n + "} ")
			}
			want := []string{}
			seen := map[string]bool{}
			for _, n := range names {
				if !seen[n] {
					seen[n] = true
					want = append(want, n)
				}
			}
			return cmp.Equal(want, ExtractVariables(b.String()))
		},
		gen.SliceOf(gen.IntRange(0, len(pool)-1).Map(func(i int) string { return pool[i] })),
	))

	properties.Property("llm ports track the template", prop.ForAll(
		func(names []string) bool {
			n, _ := NewNode("llm-1", TypeLLM, Position{})
			d, err := n.Data.With("promptTemplate", "{"+strings.Join(names, "}{")+"}")
			if err != nil {
				return false
			}
			n.Data = d
			var dynamic int
			for _, p := range Ports(n) {
				if p.Variable != "" {
					dynamic++
				}
			}
			return dynamic == len(ExtractVariables(n.Data.Fields.(LLMFields).PromptTemplate))
		},
		gen.SliceOfN(3, gen.Identifier()),
	))

	properties.TestingRun(t)
}
