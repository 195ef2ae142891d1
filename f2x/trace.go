package f2x

// Direction tells whether a traced frame was sent or received.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}

	return "inbound"
}

// TraceEvent describes one frame for message tracing.
type TraceEvent struct {
	Direction Direction
	Header    ApplicationHeaderSegment
	XML       string
}

// TraceFunc receives trace events. It is called synchronously on the sending or receiving
// goroutine and must not block.
type TraceFunc func(event TraceEvent)
