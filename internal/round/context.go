// Package round decodes the host's per-round metadata into a round context.
package round

import (
	"errors"
	"slices"

	"github.com/hay-kot/partyline/internal/core/board"
)

// Context is the state of a single round: its consensus timestamp and the
// sessions attached for it. It lives for one invocation only.
type Context struct {
	Timestamp uint32
	Sessions  map[board.Key]*board.Session
}

// NewContext returns an empty round context.
func NewContext() *Context {
	return &Context{Sessions: make(map[board.Key]*board.Session)}
}

// Add registers a session, replacing any earlier session for the same key.
func (c *Context) Add(sess *board.Session) {
	c.Sessions[sess.Key] = sess
}

// Ordered returns the sessions sorted by raw byte comparison of their keys.
// Replicas depend on this order to produce identical tables, so it must not
// follow map or host order.
func (c *Context) Ordered() []*board.Session {
	out := make([]*board.Session, 0, len(c.Sessions))
	for _, sess := range c.Sessions {
		out = append(out, sess)
	}

	slices.SortFunc(out, func(a, b *board.Session) int {
		return a.Key.Compare(b.Key)
	})

	return out
}

// Close releases every session channel.
func (c *Context) Close() error {
	var errs []error
	for _, sess := range c.Ordered() {
		if sess.Channel == nil {
			continue
		}
		if err := sess.Channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
