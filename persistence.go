package archway

import (
	"context"
	"sync"
)

// Persistence saves, loads, and deletes interrupted workflow snapshots,
// keyed by workflow id. Implementations must be safe under concurrent
// workflow instances (a single workflow execution is itself
// single-threaded, but many instances may run concurrently).
type Persistence interface {
	Save(ctx context.Context, workflowID string, interrupt *WorkflowInterrupt) error
	Load(ctx context.Context, workflowID string) (*WorkflowInterrupt, error)
	Delete(ctx context.Context, workflowID string) error
}

// MemoryPersistence is the in-memory reference Persistence: a thread-safe
// key/value map from workflow id to its saved WorkflowInterrupt.
type MemoryPersistence struct {
	mu    sync.Mutex
	saved map[string]*WorkflowInterrupt
}

// NewMemoryPersistence creates an empty in-memory persistence backend.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{saved: make(map[string]*WorkflowInterrupt)}
}

// Save stores interrupt under workflowID, overwriting any prior snapshot.
func (p *MemoryPersistence) Save(ctx context.Context, workflowID string, interrupt *WorkflowInterrupt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot := *interrupt
	snapshot.State = interrupt.State.Clone()
	snapshot.DataToSave = interrupt.DataToSave.Clone()
	p.saved[workflowID] = &snapshot
	return nil
}

// Load returns the saved WorkflowInterrupt for workflowID, or nil if none
// is saved.
func (p *MemoryPersistence) Load(ctx context.Context, workflowID string) (*WorkflowInterrupt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	saved, ok := p.saved[workflowID]
	if !ok {
		return nil, nil
	}
	snapshot := *saved
	snapshot.State = saved.State.Clone()
	snapshot.DataToSave = saved.DataToSave.Clone()
	return &snapshot, nil
}

// Delete removes any saved snapshot for workflowID. Deleting an
// already-absent id is a no-op.
func (p *MemoryPersistence) Delete(ctx context.Context, workflowID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.saved, workflowID)
	return nil
}

var _ Persistence = (*MemoryPersistence)(nil)
