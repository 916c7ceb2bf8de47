package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/partyline/internal/core/board"
	"github.com/hay-kot/partyline/internal/printer"
	"github.com/hay-kot/partyline/internal/store/tablefile"
	"github.com/hay-kot/partyline/internal/styles"
)

type DumpCmd struct {
	flags  *Flags
	since  uint64
	all    bool
	format string
}

// NewDumpCmd creates a new dump command
func NewDumpCmd(flags *Flags) *DumpCmd {
	return &DumpCmd{flags: flags}
}

// Register adds the dump command to the application
func (cmd *DumpCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "dump",
		Usage:     "Print records stored in the table",
		UsageText: "partyline dump [options]",
		Description: `Prints the records a view request would return, oldest first.

By default only the fetch window is considered, exactly as a session would see
it. Use --all to walk every record in the table.`,
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:        "since",
				Usage:       "only records with a timestamp at or after this value (unix seconds)",
				Destination: &cmd.since,
			},
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "read the whole table instead of the fetch window",
				Destination: &cmd.all,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *DumpCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.format != "text" && cmd.format != "json" {
		return fmt.Errorf("unknown format %q, want text or json", cmd.format)
	}
	if cmd.since > uint64(^uint32(0)) {
		return fmt.Errorf("--since %d does not fit a record timestamp", cmd.since)
	}

	table, err := cmd.flags.openTable(tablefile.WithReadOnly())
	if err != nil {
		return err
	}
	defer func() { _ = table.Close() }()

	records, err := cmd.collect(ctx, table, uint32(cmd.since))
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.format == "json" {
		return writeRecordsJSON(out, records)
	}

	if len(records) == 0 {
		printer.Ctx(ctx).Infof("No records found in %s", table.Path())
		return nil
	}

	return writeRecordsText(out, records)
}

func (cmd *DumpCmd) collect(ctx context.Context, table *tablefile.Table, since uint32) ([]board.Record, error) {
	if !cmd.all {
		records, err := table.ScanFrom(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		return records, nil
	}

	var records []board.Record
	err := table.All(ctx, func(_ int64, rec board.Record) error {
		if rec.Timestamp >= since {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}

	return records, nil
}

type recordJSON struct {
	Timestamp uint32 `json:"ts"`
	Time      string `json:"time"`
	Author    string `json:"author"`
	Message   string `json:"message"`
}

// writeRecordsJSON writes one JSON object per line.
func writeRecordsJSON(w io.Writer, records []board.Record) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		err := enc.Encode(recordJSON{
			Timestamp: rec.Timestamp,
			Time:      formatTimestamp(rec.Timestamp),
			Author:    rec.Author.String(),
			Message:   rec.Text(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeRecordsText(w io.Writer, records []board.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	// Every cell of the author column carries the same escape codes, so
	// tabwriter still lines up the message column.
	_, _ = fmt.Fprintf(tw, "TIME\t%s\tMESSAGE\n", styles.AuthorStyle.Render("AUTHOR"))

	for _, rec := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n",
			formatTimestamp(rec.Timestamp),
			styles.AuthorStyle.Render(rec.Author.Short()),
			sanitizeMessage(rec.Text()),
		)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w, styles.FooterStyle.Render(fmt.Sprintf("%d record(s)", len(records))))
	return err
}

func formatTimestamp(ts uint32) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

// sanitizeMessage keeps a message on one table row.
func sanitizeMessage(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, strings.TrimRight(s, "\r\n"))
}
