package round

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hay-kot/partyline/internal/core/board"
)

// Field names recognized in the round metadata.
const (
	fieldTimestamp = `"ts"`
	fieldSessions  = `"usrfd"`
)

// resyncTokens is how many tokens follow a key in a session triple. They are
// discarded when the key is malformed.
const resyncTokens = 2

// ChannelOpener turns the host's channel identifiers into a channel.
type ChannelOpener interface {
	Open(fdin, fdout int) (board.Channel, error)
}

// Decoder reads round metadata. It is a small state machine over delimiter
// separated tokens, not a general JSON parser, and tolerates malformed input.
type Decoder struct {
	opener ChannelOpener
	log    zerolog.Logger
}

// NewDecoder creates a new Decoder.
func NewDecoder(opener ChannelOpener, log zerolog.Logger) *Decoder {
	return &Decoder{opener: opener, log: log}
}

type state int

const (
	stateAwaitingField state = iota
	stateExpectTimestamp
	stateInSessionList
	stateExpectKey
	stateExpectFDIn
	stateExpectFDOut
	stateDone
)

func (s state) String() string {
	switch s {
	case stateAwaitingField:
		return "awaiting_field"
	case stateExpectTimestamp:
		return "expect_timestamp"
	case stateInSessionList:
		return "in_session_list"
	case stateExpectKey:
		return "expect_key"
	case stateExpectFDIn:
		return "expect_fdin"
	case stateExpectFDOut:
		return "expect_fdout"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// inList reports whether s is one of the per-triple states.
func (s state) inList() bool {
	return s == stateExpectKey || s == stateExpectFDIn || s == stateExpectFDOut
}

// machine holds the state of one Decode call.
type machine struct {
	d     *Decoder
	rc    *Context
	state state

	depth     int // structural nesting
	listDepth int // nesting at which the session list field appeared
	skip      int // tokens still to discard after a malformed key

	key     board.Key
	fdin    int
	fdinErr error

	sawTimestamp bool
}

// Decode reads the round metadata from r. Decoding stops when the top-level
// block closes or at end of stream. Malformed session entries are dropped;
// only read errors are returned.
func (d *Decoder) Decode(r io.Reader) (*Context, error) {
	m := &machine{d: d, rc: NewContext()}
	tz := newTokenizer(r)

	for m.state != stateDone {
		tok, ok, err := tz.next()
		if err != nil {
			return m.rc, fmt.Errorf("read round input: %w", err)
		}
		if !ok {
			break
		}
		m.step(tok)
	}

	if !m.sawTimestamp {
		d.log.Warn().Msg("round input carried no timestamp")
	}

	d.log.Debug().
		Uint32("timestamp", m.rc.Timestamp).
		Int("sessions", len(m.rc.Sessions)).
		Msg("round input decoded")

	return m.rc, nil
}

func (m *machine) step(tok token) {
	if tok.text != "" {
		m.consume(tok.text)
	}
	m.structure(tok.delim)
}

// consume handles a non-empty token in the current state.
func (m *machine) consume(text string) {
	if m.state.inList() && m.skip > 0 {
		m.skip--
		return
	}

	switch m.state {
	case stateAwaitingField:
		// Only top-level fields count. Depth 0 accepts input without an
		// enclosing object.
		if m.depth > 1 {
			return
		}
		switch text {
		case fieldTimestamp:
			m.state = stateExpectTimestamp
		case fieldSessions:
			m.state = stateInSessionList
			m.listDepth = m.depth
		}

	case stateExpectTimestamp:
		m.state = stateAwaitingField
		ts, err := parseTimestamp(text)
		if err != nil {
			m.d.log.Warn().Err(err).Str("value", text).Msg("invalid round timestamp")
			return
		}
		m.rc.Timestamp = ts
		m.sawTimestamp = true

	case stateInSessionList:
		// the field's value was a scalar, not a list
		m.state = stateAwaitingField

	case stateExpectKey:
		key, err := parseKeyToken(text)
		if err != nil {
			m.d.log.Debug().Err(err).Msg("skipping session with malformed key")
			m.skip = resyncTokens
			return
		}
		m.key = key
		m.state = stateExpectFDIn

	case stateExpectFDIn:
		m.fdin, m.fdinErr = parseFD(text)
		m.state = stateExpectFDOut

	case stateExpectFDOut:
		fdout, err := parseFD(text)
		m.state = stateExpectKey
		m.addSession(fdout, err)
	}
}

// structure applies the effect of a delimiter.
func (m *machine) structure(delim byte) {
	switch delim {
	case '{', '[':
		m.depth++
		if m.state == stateInSessionList && m.depth == m.listDepth+1 {
			m.state = stateExpectKey
			m.skip = 0
		}

	case '}', ']':
		if m.depth == 0 {
			return
		}
		m.depth--

		// An entry's container closed before its triple was complete: drop
		// the partial entry so the next key starts a fresh triple.
		if m.state.inList() && m.depth == m.listDepth+1 && (m.state != stateExpectKey || m.skip > 0) {
			m.d.log.Debug().Str("state", m.state.String()).Msg("dropping incomplete session entry")
			m.state = stateExpectKey
			m.skip = 0
		}

		if m.state.inList() && m.depth <= m.listDepth {
			if m.state != stateExpectKey {
				m.d.log.Debug().Str("state", m.state.String()).Msg("session list closed mid entry")
			}
			m.state = stateAwaitingField
			m.skip = 0
		}

		if m.depth == 0 {
			m.state = stateDone
		}
	}
}

func (m *machine) addSession(fdout int, fdoutErr error) {
	log := m.d.log.With().Str("key", m.key.Short()).Logger()

	if m.fdinErr != nil || fdoutErr != nil {
		log.Debug().
			AnErr("fdin_error", m.fdinErr).
			AnErr("fdout_error", fdoutErr).
			Msg("dropping session with invalid channel ids")
		return
	}

	ch, err := m.d.opener.Open(m.fdin, fdout)
	if err != nil {
		log.Debug().Err(err).Int("fdin", m.fdin).Int("fdout", fdout).Msg("dropping session, channel open failed")
		return
	}

	if _, dup := m.rc.Sessions[m.key]; dup {
		log.Debug().Msg("session listed more than once, keeping the last entry")
	}

	m.rc.Add(&board.Session{Key: m.key, Channel: ch})
}

// parseKeyToken strips the surrounding quotes from a key token and decodes it.
func parseKeyToken(text string) (board.Key, error) {
	text = strings.TrimPrefix(text, `"`)
	text = strings.TrimSuffix(text, `"`)
	return board.ParseKey(text)
}

// parseFD parses a channel identifier. Zero is not a valid identifier.
func parseFD(text string) (int, error) {
	fd, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("parse channel id %q: %w", text, err)
	}
	if fd <= 0 {
		return 0, fmt.Errorf("invalid channel id %d", fd)
	}
	return fd, nil
}

// parseTimestamp converts a millisecond timestamp to whole seconds.
func parseTimestamp(text string) (uint32, error) {
	text = strings.Trim(text, `"`)
	ms, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp: %w", err)
	}
	return uint32(ms / 1000), nil
}
