package tools

import (
	"encoding/json"
	"sort"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/schema"
)

var emptyObjectSchema = map[string]any{"type": "object", "properties": map[string]any{}}

// ToolList is a snapshot of tools that renders them for a hosting agent.
type ToolList struct {
	tools map[string]schema.Tool
}

func NewToolList(ts ...schema.Tool) *ToolList {
	list := ToolList{tools: make(map[string]schema.Tool, len(ts))}
	for _, t := range ts {
		list.tools[t.Name()] = t
	}
	return &list
}

// Only narrows the list to names; unknown names are ignored. No names keeps
// everything.
func (l ToolList) Only(names ...string) ToolList {
	if len(names) == 0 {
		return l
	}
	out := ToolList{tools: make(map[string]schema.Tool, len(names))}
	for _, n := range names {
		if t, ok := l.tools[n]; ok {
			out.tools[n] = t
		}
	}
	return out
}

// Definitions returns the tools in OpenAI function-calling format, sorted by
// name. A tool whose schema does not parse is advertised with an empty
// object schema.
func (l ToolList) Definitions() []map[string]any {
	names := make([]string, 0, len(l.tools))
	for k := range l.tools {
		names = append(names, k)
	}
	sort.Strings(names)

	defs := make([]map[string]any, 0, len(names))
	for _, name := range names {
		t := l.tools[name]
		var params any
		if err := json.Unmarshal(t.Parameters(), &params); err != nil {
			params = emptyObjectSchema
		}
		defs = append(defs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        name,
				"description": t.Description(),
				"parameters":  params,
			},
		})
	}
	return defs
}
