package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/partyline/internal/host"
	"github.com/hay-kot/partyline/internal/party"
	"github.com/hay-kot/partyline/internal/round"
)

var errTerminalInput = errors.New("round input is a terminal; pipe the round control stream or use --round-file")

type RoundCmd struct {
	flags     *Flags
	roundFile string
}

// NewRoundCmd creates a new round command
func NewRoundCmd(flags *Flags) *RoundCmd {
	return &RoundCmd{flags: flags}
}

// Flags returns the round flags for registration on the root command
func (cmd *RoundCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "round-file",
			Usage:       "read the round control stream from a file instead of stdin",
			Sources:     cli.EnvVars("PARTYLINE_ROUND_FILE"),
			TakesFile:   true,
			Destination: &cmd.roundFile,
		},
	}
}

// Run processes one round. Exported for use as default command.
func (cmd *RoundCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *RoundCmd) run(ctx context.Context, c *cli.Command) (err error) {
	// The table is opened first so a missing table is reported before any
	// session channel is touched.
	table, err := cmd.flags.openTable()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := table.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close table: %w", cerr)
		}
	}()

	input, closeInput, err := cmd.input(c)
	if err != nil {
		return err
	}
	defer closeInput()

	decoder := round.NewDecoder(host.Opener{}, log.With().Str("component", "round").Logger())
	rc, err := decoder.Decode(input)
	if err != nil {
		return fmt.Errorf("decode round: %w", err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("close session channels")
		}
	}()

	log.Debug().
		Str("table", table.Path()).
		Uint32("timestamp", rc.Timestamp).
		Int("sessions", len(rc.Sessions)).
		Msg("round decoded")

	dispatcher := party.New(
		table,
		log.With().Str("component", "party").Logger(),
		party.WithMaxRequestBytes(cmd.flags.config().Round.MaxRequestBytes),
	)

	if _, err := dispatcher.Run(ctx, rc); err != nil {
		return fmt.Errorf("run round: %w", err)
	}

	return nil
}

// input returns the round control stream: the --round-file if set, otherwise
// the command's reader. Interactive terminals are rejected.
func (cmd *RoundCmd) input(c *cli.Command) (io.Reader, func(), error) {
	if cmd.roundFile != "" {
		f, err := os.Open(cmd.roundFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open round file: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	}

	r := c.Root().Reader
	if r == nil {
		r = os.Stdin
	}
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, nil, errTerminalInput
	}

	return r, func() {}, nil
}
