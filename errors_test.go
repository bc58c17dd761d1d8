package archway

import (
	"errors"
	"testing"
)

func TestProviderError_Error(t *testing.T) {
	e := &ProviderError{Provider: "openai", Message: "rate limited", StatusCode: 429}
	want := "provider openai: rate limited (status 429)"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	e2 := &ProviderError{Provider: "openai", Message: "boom"}
	want2 := "provider openai: boom"
	if got := e2.Error(); got != want2 {
		t.Errorf("Error() = %q, want %q", got, want2)
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	e := &ProviderError{Provider: "anthropic", Message: "fail", Cause: cause}
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to unwrap to cause")
	}
}

func TestAgentError_Error(t *testing.T) {
	e := &AgentError{Message: "no provider configured"}
	if got, want := e.Error(), "agent: no provider configured"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("missing field")
	e2 := &AgentError{Message: "invalid config", Cause: cause}
	if !errors.Is(e2, cause) {
		t.Error("expected errors.Is to unwrap to cause")
	}
}

func TestToolError_Error(t *testing.T) {
	cases := []struct {
		name string
		err  *ToolError
		want string
	}{
		{
			name: "missing parameter",
			err:  &ToolError{Kind: MissingParameter, Tool: "search", Param: "query"},
			want: `tool search: missing required parameter "query"`,
		},
		{
			name: "callable error",
			err:  &ToolError{Kind: CallableError, Tool: "search", Cause: errors.New("timeout")},
			want: "tool search: timeout",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestToolError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	e := &ToolError{Kind: CallableError, Tool: "x", Cause: cause}
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to unwrap to cause")
	}
}

func TestVectorStoreError_Error(t *testing.T) {
	e := &VectorStoreError{Message: "connection refused"}
	if got, want := e.Error(), "vector store: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWorkflowError_Error(t *testing.T) {
	e := &WorkflowError{WorkflowID: "wf-1", NodeID: "fetch", Message: "node execution failed"}
	want := "workflow wf-1: node fetch: node execution failed"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	e2 := &WorkflowError{WorkflowID: "wf-1", Message: "no start node set"}
	want2 := "workflow wf-1: no start node set"
	if got := e2.Error(); got != want2 {
		t.Errorf("Error() = %q, want %q", got, want2)
	}
}

func TestChatHistoryError_Error(t *testing.T) {
	cause := errors.New("disk full")
	e := &ChatHistoryError{Message: "flush failed", Cause: cause}
	if got, want := e.Error(), "chat history: flush failed: disk full"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to unwrap to cause")
	}
}
