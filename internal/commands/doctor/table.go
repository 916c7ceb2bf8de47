package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/partyline/internal/core/board"
	"github.com/hay-kot/partyline/internal/store/tablefile"
)

// TableCheck inspects the table file for damage that would corrupt later
// appends or confuse view requests.
type TableCheck struct {
	paths  []string
	window int
	fix    bool
}

// NewTableCheck creates a new table check. If fix is true, a partial trailing
// record is truncated.
func NewTableCheck(paths []string, window int, fix bool) *TableCheck {
	return &TableCheck{
		paths:  paths,
		window: window,
		fix:    fix,
	}
}

func (c *TableCheck) Name() string {
	return "Table"
}

func (c *TableCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	opts := []tablefile.Option{tablefile.WithFetchWindow(c.window)}
	if !c.fix {
		opts = append(opts, tablefile.WithReadOnly())
	}

	table, err := tablefile.Open(c.paths, opts...)
	if err != nil {
		if errors.Is(err, board.ErrTableNotFound) {
			result.Addf(StatusFail, "Table file", "no table file found; rounds exit with status 128")
		} else {
			result.Addf(StatusFail, "Table file", "%v", err)
		}
		return result
	}
	defer func() { _ = table.Close() }()

	result.Addf(StatusPass, "Table file", "%s", table.Path())

	st, err := table.Stat()
	if err != nil {
		result.Addf(StatusFail, "Stat table", "%v", err)
		return result
	}

	c.alignment(&result, table, st)

	scan, err := scanRecords(ctx, table)
	if err != nil {
		result.Addf(StatusFail, "Read records", "%v", err)
		return result
	}

	visible := min(st.Records, int64(c.window))
	result.Addf(StatusPass, "Records", "%d stored, %d inside the fetch window", st.Records, visible)

	if scan.outOfOrder > 0 {
		result.Addf(StatusWarn, "Timestamps", "%d record(s) older than the record before them; views may skip them", scan.outOfOrder)
	} else {
		result.Addf(StatusPass, "Timestamps", "non-decreasing")
	}

	if scan.nonZeroReserved > 0 {
		result.Addf(StatusWarn, "Reserved fields", "%d record(s) with non-zero flags or reserved bytes", scan.nonZeroReserved)
	}

	return result
}

func (c *TableCheck) alignment(result *Result, table *tablefile.Table, st tablefile.Stats) {
	const label = "Alignment"

	switch {
	case st.Trailing == 0:
		result.Addf(StatusPass, label, "size is a multiple of %d bytes", board.RecordSize)

	case !c.fix:
		result.AddFixable(StatusFail, label,
			fmt.Sprintf("%d trailing byte(s) after the last record; later appends would be misaligned", st.Trailing))

	default:
		removed, err := table.Repair()
		if err != nil {
			result.Addf(StatusFail, label, "failed to truncate: %v", err)
			return
		}
		result.Addf(StatusPass, label, "removed %d trailing byte(s)", removed)
	}
}

type tableScan struct {
	outOfOrder      int
	nonZeroReserved int
}

func scanRecords(ctx context.Context, table *tablefile.Table) (tableScan, error) {
	var (
		scan tableScan
		prev uint32
	)

	err := table.All(ctx, func(idx int64, rec board.Record) error {
		if idx > 0 && rec.Timestamp < prev {
			scan.outOfOrder++
		}
		prev = rec.Timestamp

		if rec.Flags != 0 || rec.Reserved != [8]byte{} {
			scan.nonZeroReserved++
		}
		return nil
	})

	return scan, err
}
