package telnet

// EventKind tags the variants a Decoder emits.
type EventKind int

const (
	// EventPrintable is a byte in the printable ASCII range.
	EventPrintable EventKind = iota
	// EventControl is a decoded non-printable key.
	EventControl
	// EventNegotiation reports a negotiation verb received from the
	// peer. Sessions ignore these; they exist for observability.
	EventNegotiation
)

// Key identifies a decoded control key.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyBackspace
)

// Event is one logical input decoded from the byte stream.
type Event struct {
	Kind   EventKind
	Char   byte // set for EventPrintable
	Key    Key  // set for EventControl
	Verb   byte // set for EventNegotiation: WILL/WONT/DO/DONT
	Option byte // set for EventNegotiation
}

type decodeState int

const (
	stateGround decodeState = iota
	stateIAC                // consumed IAC, waiting for the verb
	stateVerb               // consumed IAC+verb, waiting for the option
	stateSubneg             // inside IAC SB ... IAC SE
	stateSubnegIAC          // inside subnegotiation, consumed IAC
	stateEsc                // consumed ESC
	stateCSI                // consumed ESC '[', waiting for the final byte
)

// Decoder turns an arbitrarily chunked byte stream into logical input
// events and negotiation replies. Sequences split across chunk
// boundaries are carried over and resumed on the next Feed call, so
// any fragmentation of the same stream decodes identically.
//
// A Decoder is owned by a single connection goroutine and is not safe
// for concurrent use.
type Decoder struct {
	state  decodeState
	verb   byte
	prevCR bool
}

// NewDecoder returns a decoder in the ground state.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes one chunk and returns the events decoded from it plus
// any negotiation replies that must be written back to the peer.
func (d *Decoder) Feed(chunk []byte) ([]Event, []byte) {
	var events []Event
	var replies []byte

	for _, b := range chunk {
		switch d.state {
		case stateGround:
			if ev, ok := d.ground(b); ok {
				events = append(events, ev)
			}
		case stateIAC:
			switch b {
			case WILL, WONT, DO, DONT:
				d.verb = b
				d.state = stateVerb
			case SB:
				d.state = stateSubneg
			default:
				// NOP, SE without SB, escaped IAC: nothing to decode.
				d.state = stateGround
			}
		case stateVerb:
			events = append(events, Event{Kind: EventNegotiation, Verb: d.verb, Option: b})
			replies = append(replies, d.reply(b)...)
			d.state = stateGround
		case stateSubneg:
			if b == IAC {
				d.state = stateSubnegIAC
			}
		case stateSubnegIAC:
			switch b {
			case SE:
				d.state = stateGround
			case IAC:
				// Escaped data byte inside the subnegotiation.
				d.state = stateSubneg
			default:
				d.state = stateSubneg
			}
		case stateEsc:
			if b == '[' {
				d.state = stateCSI
			} else {
				d.state = stateGround
			}
		case stateCSI:
			if key := arrowKey(b); key != KeyNone {
				events = append(events, Event{Kind: EventControl, Key: key})
			}
			d.state = stateGround
		}
	}

	return events, replies
}

// ground handles a byte in the default state and reports whether it
// produced an event. The pending-CR flag is consumed only by data
// bytes; an interposed negotiation or escape sequence leaves it set so
// CR LF still pairs up around it.
func (d *Decoder) ground(b byte) (Event, bool) {
	switch b {
	case IAC:
		d.state = stateIAC
		return Event{}, false
	case esc:
		d.state = stateEsc
		return Event{}, false
	}

	wasCR := d.prevCR
	d.prevCR = false

	switch {
	case b == cr:
		d.prevCR = true
		return Event{Kind: EventControl, Key: KeyEnter}, true
	case b == lf:
		// Telnet newlines arrive as CR LF; the CR already produced
		// the Enter event. A bare LF still counts as Enter.
		if wasCR {
			return Event{}, false
		}
		return Event{Kind: EventControl, Key: KeyEnter}, true
	case b == backspace || b == del:
		return Event{Kind: EventControl, Key: KeyBackspace}, true
	case b >= 0x20 && b <= 0x7e:
		return Event{Kind: EventPrintable, Char: b}, true
	}
	return Event{}, false
}

// reply builds the response for a completed negotiation unit. Only DO
// requests are answered: WILL for the options this server actually
// implements, WONT for everything else.
func (d *Decoder) reply(option byte) []byte {
	if d.verb != DO {
		return nil
	}
	switch option {
	case OptEcho, OptSuppressGoAhead:
		return []byte{IAC, WILL, option}
	default:
		return []byte{IAC, WONT, option}
	}
}

func arrowKey(b byte) Key {
	switch b {
	case 'A':
		return KeyUp
	case 'B':
		return KeyDown
	case 'C':
		return KeyRight
	case 'D':
		return KeyLeft
	default:
		return KeyNone
	}
}
