package core

// OutputKind declares how an output behaves for late subscribers.
type OutputKind int

const (
	// Replay outputs carry state: a new subscriber immediately receives the
	// most recently emitted value, if any.
	Replay OutputKind = iota
	// Event outputs are single-shot signals (errors, navigation, toasts):
	// subscribers only see values emitted after they subscribed.
	Event
)

// String returns the string representation of the kind.
func (k OutputKind) String() string {
	switch k {
	case Replay:
		return "replay"
	case Event:
		return "event"
	default:
		return "unknown"
	}
}
