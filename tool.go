package archway

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// PropertyType enumerates the JSON-schema leaf/composite kinds a
// ToolProperty may take.
type PropertyType string

const (
	PropertyString  PropertyType = "STRING"
	PropertyInteger PropertyType = "INTEGER"
	PropertyNumber  PropertyType = "NUMBER"
	PropertyBoolean PropertyType = "BOOLEAN"
	PropertyArray   PropertyType = "ARRAY"
	PropertyObject  PropertyType = "OBJECT"
)

// ToolProperty is a recursive description of one parameter (or nested
// field) in a tool's input schema. Schema generation is a hand-written
// depth-first walk (see schema below) — no reflection over host types.
type ToolProperty struct {
	Name        string
	Type        PropertyType
	Description string
	Required    bool
	Enum        []string

	// ItemsSchema is set when Type == PropertyArray.
	ItemsSchema *ToolProperty
	// Properties is set when Type == PropertyObject; Required on each
	// child determines membership in the generated "required" array.
	Properties []ToolProperty
}

func (p ToolProperty) jsonType() string {
	switch p.Type {
	case PropertyString:
		return "string"
	case PropertyInteger:
		return "integer"
	case PropertyNumber:
		return "number"
	case PropertyBoolean:
		return "boolean"
	case PropertyArray:
		return "array"
	case PropertyObject:
		return "object"
	default:
		return "string"
	}
}

// schema is the depth-first-constructed, order-independent JSON-schema
// representation of p, suitable for json.Marshal.
func (p ToolProperty) schema() map[string]any {
	out := map[string]any{"type": p.jsonType()}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	switch p.Type {
	case PropertyArray:
		if p.ItemsSchema != nil {
			out["items"] = p.ItemsSchema.schema()
		}
	case PropertyObject:
		props := make(map[string]any, len(p.Properties))
		var required []string
		for _, child := range p.Properties {
			props[child.Name] = child.schema()
			if child.Required {
				required = append(required, child.Name)
			}
		}
		out["properties"] = props
		sort.Strings(required)
		out["required"] = required
	}
	return out
}

// JSONSchemaBytes renders p's depth-first JSON-schema representation,
// for backends (Structured output) that need a schema describing a single
// ToolProperty tree rather than a Tool's flat parameter list.
func (p ToolProperty) JSONSchemaBytes() json.RawMessage {
	raw, err := json.Marshal(p.schema())
	if err != nil {
		panic(err)
	}
	return raw
}

// ParametersSchema depth-first walks params (the top-level parameter list
// of a Tool) and produces {"type":"object","properties":{...},"required":[...]}.
func ParametersSchema(params []ToolProperty) json.RawMessage {
	root := ToolProperty{Type: PropertyObject, Properties: params}
	raw, err := json.Marshal(root.schema())
	if err != nil {
		// schema() only builds maps/slices/strings; Marshal cannot fail.
		panic(err)
	}
	return raw
}

// Callable is the body of a Tool: given structured inputs (already
// validated against the declared parameter schema), produce a structured
// result value serialized to text, or an error.
type Callable func(ctx context.Context, inputs map[string]any) (string, error)

// Tool is a declarative, LLM-invocable function: a name, description,
// typed parameter schema, and a callable body.
type Tool struct {
	Name        string
	Description string
	Parameters  []ToolProperty
	Callable    Callable
}

// JSONSchema returns the tool's input schema as produced by ParametersSchema.
func (t Tool) JSONSchema() json.RawMessage {
	return ParametersSchema(t.Parameters)
}

// Execute validates inputs against the declared required parameters, then
// invokes the callable. A *ToolError is returned for both subkinds
// (MissingParameter, CallableError); callers driving tools on behalf of an
// LLM (the agent loop) capture either into tool-result text rather than
// aborting, per the conversation loop's non-fatal tool-dispatch contract.
func (t Tool) Execute(ctx context.Context, callID string, inputs map[string]any) (ToolCallResult, error) {
	for _, p := range t.Parameters {
		if !p.Required {
			continue
		}
		if _, ok := inputs[p.Name]; !ok {
			return ToolCallResult{}, &ToolError{Kind: MissingParameter, Tool: t.Name, Param: p.Name}
		}
	}
	if t.Callable == nil {
		return ToolCallResult{}, &ToolError{Kind: CallableError, Tool: t.Name,
			Cause: fmt.Errorf("no callable configured")}
	}
	content, err := t.Callable(ctx, inputs)
	if err != nil {
		return ToolCallResult{}, &ToolError{Kind: CallableError, Tool: t.Name, Cause: err}
	}
	return ToolCallResult{ToolName: t.Name, CallID: callID, Content: content}, nil
}

// Toolkit groups related tools under a shared set of guidelines, and lets
// callers exclude a subset of tools by name before handing them to an
// agent.
type Toolkit interface {
	Guidelines() string
	ProvideTools() []Tool
}

// ExcludeTools wraps a Toolkit, dropping any tool whose name is in names
// from ProvideTools.
func ExcludeTools(tk Toolkit, names ...string) Toolkit {
	excluded := make(map[string]bool, len(names))
	for _, n := range names {
		excluded[n] = true
	}
	return excludingToolkit{inner: tk, excluded: excluded}
}

type excludingToolkit struct {
	inner    Toolkit
	excluded map[string]bool
}

func (e excludingToolkit) Guidelines() string { return e.inner.Guidelines() }

func (e excludingToolkit) ProvideTools() []Tool {
	all := e.inner.ProvideTools()
	out := make([]Tool, 0, len(all))
	for _, t := range all {
		if !e.excluded[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// ToolRegistry holds tools (directly added, or supplied by Toolkits) and
// dispatches execution by name. Unknown tool names are non-fatal: Execute
// returns a ToolCallResult carrying an error string rather than an error,
// matching the conversation loop's "unknown tool" handling.
type ToolRegistry struct {
	tools []Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{}
}

// Add registers a single tool.
func (r *ToolRegistry) Add(t Tool) {
	r.tools = append(r.tools, t)
}

// AddToolkit registers every tool a Toolkit provides.
func (r *ToolRegistry) AddToolkit(tk Toolkit) {
	for _, t := range tk.ProvideTools() {
		r.Add(t)
	}
}

// All returns every registered tool.
func (r *ToolRegistry) All() []Tool {
	return r.tools
}

// Definitions returns the {name, description, parameters schema} triple
// for every registered tool, in the shape providers translate into their
// own tool/function declaration dialect.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.JSONSchema(),
		})
	}
	return defs
}

// find returns the registered tool with the given name, if any.
func (r *ToolRegistry) find(name string) (Tool, bool) {
	for _, t := range r.tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Execute parses argumentsJSON to a map, resolves the tool by name, and
// runs it. Unknown tool names produce {CallID, ToolName:name, Content:
// "error: unknown tool: "+name} with a nil error — the conversation loop
// continues rather than aborting. MissingParameter/CallableError are
// returned as *ToolError so the caller decides whether to capture them as
// tool-result text (agent-driven dispatch) or propagate (direct callers).
func (r *ToolRegistry) Execute(ctx context.Context, callID, name, argumentsJSON string) (ToolCallResult, error) {
	tool, ok := r.find(name)
	if !ok {
		return ToolCallResult{CallID: callID, ToolName: name,
			Content: "error: unknown tool: " + name}, nil
	}
	var inputs map[string]any
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &inputs); err != nil {
			return ToolCallResult{}, &ToolError{Kind: CallableError, Tool: name, Cause: err}
		}
	}
	return tool.Execute(ctx, callID, inputs)
}

// ToolDefinition is the provider-facing shape of a tool's declaration,
// carried across the Provider Contract and translated per backend.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}
