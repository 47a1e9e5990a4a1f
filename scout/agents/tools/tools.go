// Package tools defines the fixed capability set exposed to the
// reasoning engine: web search and multi-URL page scraping. Engine
// arguments are validated against each tool's schema before dispatch,
// and failures are encoded into the tool payload so the model can see
// and explain them rather than the loop aborting.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"scout/scout/services/llm"
	"scout/scout/utils/jsonutils"
	"scout/scout/utils/logging"
	"scout/scout/utils/metrics"
)

// Tool is one named capability with a typed argument schema.
type Tool interface {
	Name() string
	Definition() llm.Tool
	Invoke(ctx context.Context, args json.RawMessage) (string, error)
}

type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// Definitions returns the tool schemas in registration order, for the
// engine request.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

type errorPayload struct {
	Error string `json:"error"`
}

// Dispatch executes one engine-requested tool call and always returns a
// JSON payload. Unknown tools, invalid arguments and tool failures all
// come back as {"error": ...} content for the model to reason over.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) string {
	name := call.Function.Name
	tool, ok := r.tools[name]
	if !ok {
		metrics.ToolInvocations.WithLabelValues(name, "unknown").Inc()
		return jsonutils.ToJSON(errorPayload{Error: fmt.Sprintf("unknown tool: %s", name)})
	}

	args := json.RawMessage(jsonutils.ExtractJSON(call.Function.Arguments))
	out, err := tool.Invoke(ctx, args)
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(name, "error").Inc()
		logging.AppLogger.Info("tool invocation failed",
			zap.String("tool", name), zap.Error(err))
		return jsonutils.ToJSON(errorPayload{Error: err.Error()})
	}
	metrics.ToolInvocations.WithLabelValues(name, "ok").Inc()
	return out
}
