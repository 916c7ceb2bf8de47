package round

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// maxTokenLen bounds a single token. Longer runs are split into several tokens.
const maxTokenLen = 1024

// delimiters are the structural characters the metadata stream is split on.
const delimiters = ",{}[]:\n"

// token is a run of text and the structural character that ended it. delim is
// zero at end of stream or when a token was split for length.
type token struct {
	text  string
	delim byte
}

type tokenizer struct {
	r   *bufio.Reader
	buf []byte
	eof bool
}

func newTokenizer(r io.Reader) *tokenizer {
	return &tokenizer{
		r:   bufio.NewReader(r),
		buf: make([]byte, 0, maxTokenLen),
	}
}

// next returns the next token. ok is false once the stream is exhausted.
func (t *tokenizer) next() (tok token, ok bool, err error) {
	if t.eof {
		return token{}, false, nil
	}

	t.buf = t.buf[:0]
	for {
		c, err := t.r.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return token{}, false, err
			}
			t.eof = true
			if len(t.buf) == 0 {
				return token{}, false, nil
			}
			return t.emit(0), true, nil
		}

		if strings.IndexByte(delimiters, c) >= 0 {
			return t.emit(c), true, nil
		}

		t.buf = append(t.buf, c)
		if len(t.buf) == maxTokenLen {
			return t.emit(0), true, nil
		}
	}
}

func (t *tokenizer) emit(delim byte) token {
	return token{
		text:  string(bytes.TrimSpace(t.buf)),
		delim: delim,
	}
}
