// Package archway is an intelligent-agent framework mediating between
// application code and LLM providers: a unified agent surface, streaming,
// tool calling, retrieval-augmented generation, and a graph-based workflow
// engine with pause/resume.
//
// # Quick Start
//
// Create an agent by composing a Provider with tools and options:
//
//	p := openai.New(apiKey, "gpt-4o", "https://api.openai.com/v1")
//	agent := archway.NewLLMAgent("assistant",
//		archway.WithProvider(p),
//		archway.WithInstructions("You are a helpful assistant."),
//		archway.WithMaxIterations(10),
//		archway.AddTool(mytool.New()),
//	)
//	reply, err := agent.Chat(ctx, archway.UserMessage("hello"))
//
// # Core Interfaces
//
// The root package defines the contracts every component implements:
//
//   - [Provider] — LLM backend (chat, streaming, structured output)
//   - [EmbeddingProvider] — text-to-vector embedding
//   - [VectorStore] — vector persistence and similarity search
//   - [ChatHistory] — windowed conversation log (oldest messages evicted first)
//   - [Tool] — pluggable capability for LLM function calling
//   - [Agent] — the conversational contract [*LLMAgent] and [*RAG] implement
//
// # Included Implementations
//
// Providers: provider/openai (OpenAI and OpenAI-compatible backends: Groq,
// Together, Fireworks, Deepseek, Mistral, OpenRouter, vLLM, LM Studio, Azure
// OpenAI), provider/anthropic, provider/gemini, provider/ollama, selected at
// runtime by name via provider/resolve.
//
// Supporting packages: httpclient (shared HTTP transport), historyfile
// (JSON-Lines chat history), ingest (document readers for the RAG
// pipeline), toolkit (ready-made Tool implementations), telemetry (OTEL
// bridge for the Observer Bus).
package archway
