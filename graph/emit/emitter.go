// Package emit delivers observability events produced while a workflow graph runs.
package emit

// Emitter receives observability events from graph runs.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down the run
//   - Thread-safe: may be shared by concurrent runs
//   - Resilient: never panic, swallow backend failures
type Emitter interface {
	// Emit sends an event to the configured backend.
	Emit(event Event)
}

// Multi fans events out to several emitters in order.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
