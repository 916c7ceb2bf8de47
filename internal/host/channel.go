// Package host adapts the host's inherited file descriptors into session
// channels.
package host

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/hay-kot/partyline/internal/core/board"
)

// FDChannel is a session channel backed by a pair of descriptors handed to
// the process by the host.
type FDChannel struct {
	fdin int
	in   *os.File
	out  *os.File
}

var _ board.Channel = (*FDChannel)(nil)

// OpenFD wraps the descriptors fdin and fdout. It fails if either descriptor
// is not open in this process.
func OpenFD(fdin, fdout int) (*FDChannel, error) {
	for _, fd := range []int{fdin, fdout} {
		if fd <= 0 {
			return nil, fmt.Errorf("invalid descriptor %d", fd)
		}
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", fd, err)
		}
	}

	c := &FDChannel{
		fdin: fdin,
		in:   os.NewFile(uintptr(fdin), fmt.Sprintf("fd%d", fdin)),
	}
	c.out = c.in
	if fdout != fdin {
		c.out = os.NewFile(uintptr(fdout), fmt.Sprintf("fd%d", fdout))
	}
	return c, nil
}

// Opener opens descriptor channels. It satisfies round.ChannelOpener.
type Opener struct{}

// Open implements round.ChannelOpener.
func (Opener) Open(fdin, fdout int) (board.Channel, error) {
	return OpenFD(fdin, fdout)
}

// TryReadLine polls the input descriptor without waiting and, if it is
// readable, performs a single read of at most limit bytes, cut after the first
// newline.
func (c *FDChannel) TryReadLine(limit int) ([]byte, error) {
	ready, err := readable(c.fdin)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, board.ErrNoData
	}

	buf := make([]byte, limit)
	n, err := c.in.Read(buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, board.ErrNoData
		}
		return nil, fmt.Errorf("read channel: %w", err)
	}

	line := buf[:n]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i+1]
	}
	return line, nil
}

// Write writes p to the output descriptor.
func (c *FDChannel) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// Close closes both descriptors. When the host passed the same descriptor for
// input and output it is closed once.
func (c *FDChannel) Close() error {
	err := c.in.Close()
	if c.out != c.in {
		err = errors.Join(err, c.out.Close())
	}
	return err
}

// readable reports whether fd has input ready, using a zero timeout poll.
func readable(fd int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("poll descriptor %d: %w", fd, err)
		}
		return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
	}
}
