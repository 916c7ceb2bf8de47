// Package party runs a round of the message board: one request per session,
// answered from the table.
package party

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/hay-kot/partyline/internal/core/board"
	"github.com/hay-kot/partyline/internal/round"
)

// Dispatcher processes the pending request of every session in a round.
type Dispatcher struct {
	store   board.Store
	log     zerolog.Logger
	maxLine int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxRequestBytes bounds how much of a request line is read per session.
func WithMaxRequestBytes(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxLine = n
		}
	}
}

// New creates a new Dispatcher.
func New(store board.Store, log zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		log:     log,
		maxLine: board.DefaultMaxRequestBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Summary counts what happened to each session during a round.
type Summary struct {
	Views   int
	Posts   int
	Idle    int
	Ignored int
	Failed  int
}

// Run handles every session of rc in ascending key order. Sessions are
// independent: a malformed request or a failed response only affects its own
// session. An append failure is fatal and stops the round.
func (d *Dispatcher) Run(ctx context.Context, rc *round.Context) (Summary, error) {
	var sum Summary

	for _, sess := range rc.Ordered() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		if err := d.handle(ctx, rc.Timestamp, sess, &sum); err != nil {
			return sum, err
		}
	}

	d.log.Info().
		Uint32("timestamp", rc.Timestamp).
		Int("sessions", len(rc.Sessions)).
		Int("views", sum.Views).
		Int("posts", sum.Posts).
		Int("idle", sum.Idle).
		Int("ignored", sum.Ignored).
		Int("failed", sum.Failed).
		Msg("round complete")

	return sum, nil
}

func (d *Dispatcher) handle(ctx context.Context, ts uint32, sess *board.Session, sum *Summary) error {
	log := d.log.With().Str("key", sess.Key.Short()).Logger()

	line, err := sess.Channel.TryReadLine(d.maxLine)
	if err != nil {
		if errors.Is(err, board.ErrNoData) {
			sum.Idle++
			return nil
		}
		log.Warn().Err(err).Msg("read request failed")
		sum.Failed++
		return nil
	}
	if len(line) == 0 {
		sum.Idle++
		return nil
	}

	switch line[0] {
	case board.RequestView:
		threshold, ok := parseViewTimestamp(line[1:])
		if !ok {
			log.Debug().Msg("ignoring view with invalid timestamp")
			sum.Ignored++
			return nil
		}
		if err := d.view(ctx, sess, threshold); err != nil {
			log.Warn().Err(err).Uint32("since", threshold).Msg("view failed")
			sum.Failed++
			return nil
		}
		sum.Views++

	case board.RequestPost:
		rec := board.NewRecord(ts, sess.Key, line[1:])
		if _, err := d.store.Append(ctx, rec); err != nil {
			return fmt.Errorf("append record for %s: %w", sess.Key.Short(), err)
		}
		sum.Posts++
		if _, err := sess.Channel.Write([]byte{board.ResponseSent}); err != nil {
			log.Warn().Err(err).Msg("write acknowledgement failed")
		}

	default:
		log.Debug().Uint8("type", line[0]).Msg("ignoring unknown request type")
		sum.Ignored++
	}

	return nil
}

// view writes the records at or after threshold, prefixed by the response
// marker. The marker is sent even when no record matches.
func (d *Dispatcher) view(ctx context.Context, sess *board.Session, threshold uint32) error {
	records, err := d.store.ScanFrom(ctx, threshold)
	if err != nil {
		return fmt.Errorf("scan table: %w", err)
	}

	resp := make([]byte, 1+len(records)*board.RecordSize)
	resp[0] = board.ResponseRecords
	for i, rec := range records {
		off := 1 + i*board.RecordSize
		rec.Encode(resp[off : off+board.RecordSize])
	}

	if _, err := sess.Channel.Write(resp); err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	return nil
}

// parseViewTimestamp reads the decimal timestamp of a view request. Leading
// whitespace is skipped and anything after the digits is ignored.
func parseViewTimestamp(b []byte) (uint32, bool) {
	i := 0
	for i < len(b) && isSpace(b[i]) {
		i++
	}

	start := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}

	ts, err := strconv.ParseUint(string(b[start:i]), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(ts), true
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
