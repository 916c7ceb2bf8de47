package host

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/hay-kot/partyline/internal/core/board"
)

// pipeChannel returns a channel reading from and writing to fresh pipes, plus
// the host-side ends. The channel owns duplicated descriptors so both sides
// can be closed independently.
func pipeChannel(t *testing.T) (ch *FDChannel, clientIn *os.File, clientOut *os.File) {
	t.Helper()

	reqR, reqW, err := os.Pipe()
	require.NoError(t, err)
	respR, respW, err := os.Pipe()
	require.NoError(t, err)

	fdin, err := unix.Dup(int(reqR.Fd()))
	require.NoError(t, err)
	fdout, err := unix.Dup(int(respW.Fd()))
	require.NoError(t, err)

	ch, err = OpenFD(fdin, fdout)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = ch.Close()
		_ = reqR.Close()
		_ = reqW.Close()
		_ = respR.Close()
		_ = respW.Close()
	})

	return ch, reqW, respR
}

func TestOpenFD_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		fdin, fdout int
	}{
		{name: "zero input", fdin: 0, fdout: 1},
		{name: "negative output", fdin: 1, fdout: -1},
		{name: "closed descriptor", fdin: 4093, fdout: 4094},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenFD(tt.fdin, tt.fdout)
			require.Error(t, err)
		})
	}
}

func TestFDChannel_NoPendingData(t *testing.T) {
	ch, _, _ := pipeChannel(t)

	_, err := ch.TryReadLine(board.DefaultMaxRequestBytes)
	require.ErrorIs(t, err, board.ErrNoData)
}

func TestFDChannel_ReadsOneLine(t *testing.T) {
	ch, clientIn, _ := pipeChannel(t)

	_, err := clientIn.Write([]byte("v100\nmhello\n"))
	require.NoError(t, err)

	line, err := ch.TryReadLine(board.DefaultMaxRequestBytes)
	require.NoError(t, err)
	assert.Equal(t, []byte("v100\n"), line)
}

func TestFDChannel_BoundedRead(t *testing.T) {
	ch, clientIn, _ := pipeChannel(t)

	_, err := clientIn.Write([]byte("m0123456789"))
	require.NoError(t, err)

	line, err := ch.TryReadLine(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("m012"), line)
}

func TestFDChannel_ClosedWriter(t *testing.T) {
	ch, clientIn, _ := pipeChannel(t)
	require.NoError(t, clientIn.Close())

	_, err := ch.TryReadLine(board.DefaultMaxRequestBytes)
	require.ErrorIs(t, err, board.ErrNoData)
}

func TestFDChannel_Write(t *testing.T) {
	ch, _, clientOut := pipeChannel(t)

	n, err := ch.Write([]byte("s"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	buf := make([]byte, 8)
	n, err = clientOut.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("s"), buf[:n])
}

func TestOpener(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = r.Close(); _ = w.Close() }()

	fd, err := unix.Dup(int(r.Fd()))
	require.NoError(t, err)

	ch, err := Opener{}.Open(fd, fd)
	require.NoError(t, err)
	require.NoError(t, ch.Close())
}
