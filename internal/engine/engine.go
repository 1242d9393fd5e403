// Package engine evaluates a submitted graph in process. It stands in for
// the external executor and serves the same /process contract.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/MalithGihan/flownodes/internal/ctxlog"
	"github.com/MalithGihan/flownodes/internal/executor"
	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/pkg/types"
)

type Engine struct {
	gen Generator
}

func New(gen Generator) *Engine { return &Engine{gen: gen} }

// Process walks the graph breadth-first from its source nodes (input, file,
// mail-search) and returns the values reached by output and mail-send nodes.
func (e *Engine) Process(ctx context.Context, req executor.ProcessRequest) (types.RunResult, error) {
	log := ctxlog.FromContext(ctx)

	nodes := make(map[string]graph.Node, len(req.Nodes))
	for _, n := range req.Nodes {
		nodes[n.ID] = n
	}
	next := map[string][]string{}
	incoming := map[string][]graph.Edge{}
	for _, ed := range req.Edges {
		next[ed.Source] = append(next[ed.Source], ed.Target)
		incoming[ed.Target] = append(incoming[ed.Target], ed)
	}

	values := map[string]string{}
	for _, in := range req.Inputs {
		values[in.ID] = in.Value
	}

	var layer []string
	for _, n := range req.Nodes {
		switch n.Type {
		case graph.TypeInput, graph.TypeFile, graph.TypeMailSearch:
			layer = append(layer, n.ID)
		}
	}

	done := map[string]bool{}
	for len(layer) > 0 {
		var following []string
		for _, id := range layer {
			if done[id] {
				continue
			}
			n, ok := nodes[id]
			if !ok {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			switch n.Type {
			case graph.TypeMailSearch:
				values[id] = searchValue(n)
			case graph.TypeFile:
				if f, ok := n.Data.Fields.(graph.FileFields); ok {
					values[id] = f.FileContent
				}
			case graph.TypeLLM:
				out, err := e.llm(ctx, n, incoming[id], values)
				if err != nil {
					return nil, fmt.Errorf("llm node %q: %w", id, err)
				}
				values[id] = out
			case graph.TypeMailSend, graph.TypeOutput:
				for _, ed := range incoming[id] {
					values[id] = values[ed.Source]
				}
			}
			log.Debug("node evaluated", "node", id, "type", n.Type)
			done[id] = true
			following = append(following, next[id]...)
		}
		layer = following
	}

	res := types.RunResult{}
	for _, n := range req.Nodes {
		if n.Type == graph.TypeOutput || n.Type == graph.TypeMailSend {
			res[n.ID] = values[n.ID]
		}
	}
	return res, nil
}

// searchValue prefers the node's value, then its stored results, then a
// raw "messages" field.
func searchValue(n graph.Node) string {
	if n.Data.Value != "" {
		return n.Data.Value
	}
	if f, ok := n.Data.Fields.(graph.MailSearchFields); ok && len(f.SearchResults) > 0 {
		return graph.Stringify(f.SearchResults)
	}
	if v, ok := n.Data.Extra["messages"]; ok {
		return graph.Stringify(v)
	}
	return ""
}

func (e *Engine) llm(ctx context.Context, n graph.Node, in []graph.Edge, values map[string]string) (string, error) {
	f, _ := n.Data.Fields.(graph.LLMFields)
	prompt := f.PromptTemplate
	for _, ed := range in {
		name, ok := graph.VariableOf(ed.TargetHandle)
		if !ok || name == "" {
			continue
		}
		if v := values[ed.Source]; v != "" {
			prompt = strings.ReplaceAll(prompt, "{"+name+"}", v)
		}
	}
	return e.gen.Generate(ctx, f.SystemInstructions, prompt)
}
