package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"golang.org/x/sys/unix"

	"github.com/hay-kot/partyline/internal/core/board"
	"github.com/hay-kot/partyline/internal/core/config"
)

func testFlags(t *testing.T, tablePaths ...string) *Flags {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Table.Paths = tablePaths
	return &Flags{Config: &cfg}
}

func emptyTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "party.table")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

// clientPipes returns descriptors for the round control stream plus the
// client ends of the request and response pipes. The descriptors are
// duplicates owned by the round, which closes them.
func clientPipes(t *testing.T) (fdin, fdout int, req *os.File, resp *os.File) {
	t.Helper()

	reqR, reqW, err := os.Pipe()
	require.NoError(t, err)
	respR, respW, err := os.Pipe()
	require.NoError(t, err)

	fdin, err = unix.Dup(int(reqR.Fd()))
	require.NoError(t, err)
	fdout, err = unix.Dup(int(respW.Fd()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = reqR.Close()
		_ = reqW.Close()
		_ = respR.Close()
		_ = respW.Close()
	})

	return fdin, fdout, reqW, respR
}

func TestRoundCmd_MissingTable(t *testing.T) {
	flags := testFlags(t, filepath.Join(t.TempDir(), "missing.table"))
	c := &cli.Command{Reader: strings.NewReader(`{"ts":1000,"usrfd":{}}`)}

	err := NewRoundCmd(flags).Run(context.Background(), c)
	require.ErrorIs(t, err, board.ErrTableNotFound)
}

func TestRoundCmd_NoSessions(t *testing.T) {
	path := emptyTable(t)
	c := &cli.Command{Reader: strings.NewReader(`{"ts":1000,"usrfd":{}}`)}

	require.NoError(t, NewRoundCmd(testFlags(t, path)).Run(context.Background(), c))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestRoundCmd_PostOverPipes(t *testing.T) {
	path := emptyTable(t)
	fdin, fdout, req, resp := clientPipes(t)

	_, err := req.Write([]byte("mhello\n"))
	require.NoError(t, err)

	author := strings.Repeat("ab", board.KeySize)
	control := fmt.Sprintf(`{"ts":1700000000123,"usrfd":{"ed%s":[%d,%d]}}`, author, fdin, fdout)
	c := &cli.Command{Reader: strings.NewReader(control)}

	require.NoError(t, NewRoundCmd(testFlags(t, path)).Run(context.Background(), c))

	ack := make([]byte, 1)
	_, err = io.ReadFull(resp, ack)
	require.NoError(t, err)
	assert.Equal(t, []byte{board.ResponseSent}, ack)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, board.RecordSize)

	var rec board.Record
	require.NoError(t, rec.UnmarshalBinary(data))
	assert.Equal(t, uint32(1700000000), rec.Timestamp)
	assert.Equal(t, author, rec.Author.String())
	assert.Equal(t, "hello\n", rec.Text())
}

func TestRoundCmd_RoundFile(t *testing.T) {
	path := emptyTable(t)
	roundFile := filepath.Join(t.TempDir(), "round.json")
	require.NoError(t, os.WriteFile(roundFile, []byte(`{"ts":5000,"usrfd":{}}`), 0o644))

	cmd := NewRoundCmd(testFlags(t, path))
	cmd.roundFile = roundFile

	require.NoError(t, cmd.Run(context.Background(), &cli.Command{}))
}

func TestRoundCmd_RoundFileMissing(t *testing.T) {
	cmd := NewRoundCmd(testFlags(t, emptyTable(t)))
	cmd.roundFile = filepath.Join(t.TempDir(), "nope.json")

	err := cmd.Run(context.Background(), &cli.Command{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open round file")
}
