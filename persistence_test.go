package archway

import (
	"context"
	"testing"
)

func TestMemoryPersistence_SaveAndLoad(t *testing.T) {
	p := NewMemoryPersistence()
	ctx := context.Background()

	interrupt := &WorkflowInterrupt{
		NodeID:     "n1",
		State:      WorkflowState{"count": 1},
		DataToSave: WorkflowState{"question": "continue?"},
	}
	if err := p.Save(ctx, "wf1", interrupt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := p.Load(ctx, "wf1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected loaded interrupt, got nil")
	}
	if loaded.NodeID != "n1" {
		t.Errorf("NodeID = %q, want %q", loaded.NodeID, "n1")
	}
	if loaded.State["count"] != 1 {
		t.Errorf("State[count] = %v, want 1", loaded.State["count"])
	}
	if loaded.DataToSave["question"] != "continue?" {
		t.Errorf("DataToSave[question] = %v, want %q", loaded.DataToSave["question"], "continue?")
	}
}

func TestMemoryPersistence_Load_Missing(t *testing.T) {
	p := NewMemoryPersistence()
	loaded, err := p.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing workflow, got %v", loaded)
	}
}

func TestMemoryPersistence_Delete(t *testing.T) {
	p := NewMemoryPersistence()
	ctx := context.Background()
	interrupt := &WorkflowInterrupt{NodeID: "n1", State: WorkflowState{}, DataToSave: WorkflowState{}}
	if err := p.Save(ctx, "wf1", interrupt); err != nil {
		t.Fatal(err)
	}
	if err := p.Delete(ctx, "wf1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := p.Load(ctx, "wf1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Errorf("expected nil after delete, got %v", loaded)
	}
}

func TestMemoryPersistence_Delete_Missing(t *testing.T) {
	p := NewMemoryPersistence()
	if err := p.Delete(context.Background(), "nonexistent"); err != nil {
		t.Errorf("deleting a missing id should be a no-op, got error: %v", err)
	}
}

func TestMemoryPersistence_Save_IsolatesFromCallerMutation(t *testing.T) {
	p := NewMemoryPersistence()
	ctx := context.Background()

	state := WorkflowState{"count": 1}
	interrupt := &WorkflowInterrupt{NodeID: "n1", State: state, DataToSave: WorkflowState{}}
	if err := p.Save(ctx, "wf1", interrupt); err != nil {
		t.Fatal(err)
	}

	state["count"] = 999

	loaded, err := p.Load(ctx, "wf1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.State["count"] != 1 {
		t.Errorf("State[count] = %v, want 1 (mutation after save leaked in)", loaded.State["count"])
	}
}

func TestMemoryPersistence_Load_IsolatesFromCallerMutation(t *testing.T) {
	p := NewMemoryPersistence()
	ctx := context.Background()

	interrupt := &WorkflowInterrupt{NodeID: "n1", State: WorkflowState{"count": 1}, DataToSave: WorkflowState{}}
	if err := p.Save(ctx, "wf1", interrupt); err != nil {
		t.Fatal(err)
	}

	loaded, err := p.Load(ctx, "wf1")
	if err != nil {
		t.Fatal(err)
	}
	loaded.State["count"] = 999

	reloaded, err := p.Load(ctx, "wf1")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.State["count"] != 1 {
		t.Errorf("State[count] = %v, want 1 (mutation of loaded value leaked into store)", reloaded.State["count"])
	}
}
