package emit

// NullEmitter implements Emitter by discarding all events.
//
// This is the default emitter when observability is not configured. It is
// safe for concurrent use and has effectively zero overhead.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(event Event) {}
