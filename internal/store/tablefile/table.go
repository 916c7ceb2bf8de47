// Package tablefile provides the append-only binary table store.
package tablefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hay-kot/partyline/internal/core/board"
	"github.com/rs/zerolog"
)

// DefaultPaths are the table locations tried in order when none are configured.
var DefaultPaths = []string{"party.table", "./state/party.table"}

// Table implements board.Store on a single file of fixed-size records.
// It is not safe for concurrent use.
type Table struct {
	file   *os.File
	flag   int
	path   string
	window int
	log    zerolog.Logger
}

// Option configures a Table.
type Option func(*Table)

// WithFetchWindow sets how many trailing records ScanFrom considers.
func WithFetchWindow(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.window = n
		}
	}
}

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Table) {
		t.log = log
	}
}

// WithReadOnly opens the table without write access. Append fails.
func WithReadOnly() Option {
	return func(t *Table) {
		t.flag = os.O_RDONLY
	}
}

// Open opens the first existing table among paths for reading and appending.
// The file is never created. If none of the paths exist the error wraps
// board.ErrTableNotFound. The handle holds an advisory lock until Close.
func Open(paths []string, opts ...Option) (*Table, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}

	t := &Table{
		flag:   os.O_RDWR,
		window: board.DefaultFetchWindow,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	for _, path := range paths {
		f, err := os.OpenFile(path, t.flag, 0)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				t.log.Debug().Str("path", path).Msg("table not found, trying next path")
				continue
			}
			return nil, fmt.Errorf("open table %s: %w", path, err)
		}

		if err := lock(f, t.readOnly()); err != nil {
			_ = f.Close()
			return nil, err
		}

		t.file = f
		t.path = path
		return t, nil
	}

	return nil, fmt.Errorf("%w: tried %s", board.ErrTableNotFound, strings.Join(paths, ", "))
}

// Path returns the path of the opened table file.
func (t *Table) Path() string {
	return t.path
}

// Append writes rec at the current end of the table.
func (t *Table) Append(ctx context.Context, rec board.Record) (int, error) {
	var buf [board.RecordSize]byte
	rec.Encode(buf[:])

	if _, err := t.file.Seek(0, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("seek table end: %w", err)
	}

	n, err := t.file.Write(buf[:])
	if err != nil {
		return n, fmt.Errorf("append record: %w", err)
	}

	return n, nil
}

// ScanFrom returns the suffix of the fetch window that starts at the first
// record with a timestamp at or after threshold. Records older than the window
// are never considered, even when they would match.
func (t *Table) ScanFrom(ctx context.Context, threshold uint32) ([]board.Record, error) {
	data, err := t.readWindow()
	if err != nil {
		return nil, err
	}

	for off := 0; off < len(data); off += board.RecordSize {
		if board.TimestampOf(data[off:]) < threshold {
			continue
		}
		return decodeRecords(data[off:])
	}

	return nil, nil
}

// readWindow reads the most recent whole records, up to the fetch window.
func (t *Table) readWindow() ([]byte, error) {
	st, err := t.Stat()
	if err != nil {
		return nil, err
	}

	first := max(st.Records-int64(t.window), 0)
	count := st.Records - first

	t.log.Debug().
		Int64("records", st.Records).
		Int64("first", first).
		Int64("count", count).
		Msg("reading fetch window")

	if count == 0 {
		return nil, nil
	}

	data := make([]byte, count*board.RecordSize)
	if _, err := t.file.ReadAt(data, first*board.RecordSize); err != nil {
		return nil, fmt.Errorf("read %d bytes from table: %w", len(data), err)
	}

	return data, nil
}

// Stats describes the physical shape of the table file.
type Stats struct {
	Records  int64 // whole records
	Trailing int64 // bytes after the last whole record
}

// Stat reports the number of whole records in the table.
func (t *Table) Stat() (Stats, error) {
	fi, err := t.file.Stat()
	if err != nil {
		return Stats{}, fmt.Errorf("stat table: %w", err)
	}

	size := fi.Size()
	return Stats{
		Records:  size / board.RecordSize,
		Trailing: size % board.RecordSize,
	}, nil
}

// Repair truncates a trailing partial record so the next append starts on a
// record boundary. It returns the number of bytes removed.
func (t *Table) Repair() (int64, error) {
	st, err := t.Stat()
	if err != nil {
		return 0, err
	}
	if st.Trailing == 0 {
		return 0, nil
	}

	if err := t.file.Truncate(st.Records * board.RecordSize); err != nil {
		return 0, fmt.Errorf("truncate table: %w", err)
	}

	t.log.Info().Int64("bytes", st.Trailing).Msg("removed partial trailing record")
	return st.Trailing, nil
}

// All calls fn for every whole record in stored order, stopping at the first
// error fn returns.
func (t *Table) All(ctx context.Context, fn func(idx int64, rec board.Record) error) error {
	st, err := t.Stat()
	if err != nil {
		return err
	}

	buf := make([]byte, board.RecordSize)
	for i := int64(0); i < st.Records; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := t.file.ReadAt(buf, i*board.RecordSize); err != nil {
			return fmt.Errorf("read record %d: %w", i, err)
		}

		var rec board.Record
		if err := rec.UnmarshalBinary(buf); err != nil {
			return err
		}
		if err := fn(i, rec); err != nil {
			return err
		}
	}

	return nil
}

// Close flushes pending writes to disk, releases the lock and closes the
// table.
func (t *Table) Close() error {
	if t.file == nil {
		return nil
	}

	var syncErr error
	if !t.readOnly() {
		syncErr = t.file.Sync()
	}
	unlockErr := unlock(t.file)
	closeErr := t.file.Close()
	t.file = nil

	if syncErr != nil {
		return fmt.Errorf("sync table: %w", syncErr)
	}
	return errors.Join(unlockErr, closeErr)
}

func (t *Table) readOnly() bool {
	return t.flag == os.O_RDONLY
}

func decodeRecords(data []byte) ([]board.Record, error) {
	records := make([]board.Record, 0, len(data)/board.RecordSize)
	for off := 0; off+board.RecordSize <= len(data); off += board.RecordSize {
		var rec board.Record
		if err := rec.UnmarshalBinary(data[off : off+board.RecordSize]); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
