// Package monitor is the lifecycle event glue for the label scan
// store (spec section 2's "Monitoring glue" and section 6's Monitors
// collaborator). Instead of an inheritance-based listener adaptor, a
// store holds one Registry and fires a plain event record through it;
// callers subscribe with a narrow function, matching DESIGN.md's
// resolution of the "dynamic dispatch on tree-monitor events" note.
package monitor

import "sync"

// Kind tags the shape of an Event.
type Kind int

const (
	KindInit Kind = iota
	KindNoIndex
	KindNotValidIndex
	KindRebuilding
	KindRebuilt
	KindRecoveryCleanup
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindNoIndex:
		return "no-index"
	case KindNotValidIndex:
		return "not-valid-index"
	case KindRebuilding:
		return "rebuilding"
	case KindRebuilt:
		return "rebuilt"
	case KindRecoveryCleanup:
		return "recovery-cleanup"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification. Count is populated for
// KindRebuilt (number of nodes replayed); Err is populated for
// KindRecoveryCleanup when a cleanup job failed. Payload carries an
// optional BSON-encoded detail record, currently only set on
// KindRebuilt.
type Event struct {
	Kind    Kind
	Count   uint64
	Err     error
	Payload []byte
}

// Registry is a plain collaborator injected at store init and owned
// by the store; it has no back-reference to the store.
type Registry struct {
	mu        sync.Mutex
	listeners []func(Event)
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// Listen registers fn to receive every future event.
func (r *Registry) Listen(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Registry) emit(e Event) {
	r.mu.Lock()
	listeners := make([]func(Event), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(e)
	}
}

func (r *Registry) Init()             { r.emit(Event{Kind: KindInit}) }
func (r *Registry) NoIndex()          { r.emit(Event{Kind: KindNoIndex}) }
func (r *Registry) NotValidIndex()    { r.emit(Event{Kind: KindNotValidIndex}) }
func (r *Registry) Rebuilding()       { r.emit(Event{Kind: KindRebuilding}) }
func (r *Registry) Rebuilt(n uint64)  { r.emit(Event{Kind: KindRebuilt, Count: n}) }

// RebuiltWithSummary is Rebuilt plus an attached BSON-encoded detail payload.
func (r *Registry) RebuiltWithSummary(n uint64, payload []byte) {
	r.emit(Event{Kind: KindRebuilt, Count: n, Payload: payload})
}
func (r *Registry) RecoveryCleanup(err error) {
	r.emit(Event{Kind: KindRecoveryCleanup, Err: err})
}
