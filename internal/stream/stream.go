// Package stream reconciles incremental provider output with the message
// that is being displayed while it arrives.
package stream

import "sync"

// Merger tracks one in-flight streamed reply. Apply carries the full
// accumulated text so far, not a delta, so replaying the same snapshot
// is harmless and a reset to "" after a mid-stream fallback simply
// clears the visible reply. Finalize seals the reply; later Apply calls
// are dropped.
type Merger struct {
	mu    sync.Mutex
	text  string
	final bool
}

func NewMerger() *Merger { return &Merger{} }

// Apply records a snapshot of the reply so far and reports whether it
// changed anything. Snapshots after Finalize are ignored.
func (m *Merger) Apply(full string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.final || m.text == full {
		return false
	}
	m.text = full
	return true
}

// Finalize seals the reply with its final text and reports whether this
// call did the sealing. Only the first call wins; the rest are no-ops,
// so a duplicate completion cannot rewrite a finished message.
func (m *Merger) Finalize(full string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.final {
		return false
	}
	m.text = full
	m.final = true
	return true
}

// Text returns the current reply text. After Finalize it is the final
// text; before, the latest snapshot, possibly empty when no fragment
// has arrived yet.
func (m *Merger) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Final reports whether the reply has been sealed.
func (m *Merger) Final() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.final
}
