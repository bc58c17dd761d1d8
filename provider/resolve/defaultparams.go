package resolve

import (
	"context"

	"github.com/archway-run/archway"
)

// defaultParamsProvider fills in req.Params with cfg-level defaults whenever
// the caller leaves it nil, so a Config's Temperature/TopP/TopK/MaxTokens
// act as the backend's standing defaults rather than per-call overrides.
type defaultParamsProvider struct {
	archway.Provider
	params *archway.GenerationParams
}

func withDefaultParams(p archway.Provider, params *archway.GenerationParams) archway.Provider {
	return &defaultParamsProvider{Provider: p, params: params}
}

func (d *defaultParamsProvider) Chat(ctx context.Context, req archway.ChatRequest) (archway.ChatResponse, error) {
	return d.Provider.Chat(ctx, d.withDefaults(req))
}

func (d *defaultParamsProvider) Stream(ctx context.Context, req archway.ChatRequest) (func(yield func(archway.StreamChunk) bool), error) {
	return d.Provider.Stream(ctx, d.withDefaults(req))
}

func (d *defaultParamsProvider) Structured(ctx context.Context, req archway.ChatRequest, schema archway.ToolProperty) (string, archway.Usage, error) {
	return d.Provider.Structured(ctx, d.withDefaults(req), schema)
}

func (d *defaultParamsProvider) withDefaults(req archway.ChatRequest) archway.ChatRequest {
	if req.Params == nil {
		req.Params = d.params
	}
	return req
}

var _ archway.Provider = (*defaultParamsProvider)(nil)
