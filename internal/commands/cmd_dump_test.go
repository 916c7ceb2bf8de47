package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/partyline/internal/core/board"
)

func tableWith(t *testing.T, records ...board.Record) string {
	t.Helper()
	path := emptyTable(t)

	var data []byte
	for _, rec := range records {
		b, err := rec.MarshalBinary()
		require.NoError(t, err)
		data = append(data, b...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func dumpJSON(t *testing.T, cmd *DumpCmd) []recordJSON {
	t.Helper()

	var out bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), &cli.Command{Writer: &out}))

	var records []recordJSON
	dec := json.NewDecoder(&out)
	for dec.More() {
		var rec recordJSON
		require.NoError(t, dec.Decode(&rec))
		records = append(records, rec)
	}
	return records
}

func TestDumpCmd_JSON(t *testing.T) {
	var author board.Key
	author[0] = 0xAB

	path := tableWith(t,
		board.NewRecord(100, author, []byte("first")),
		board.NewRecord(200, author, []byte("second\n")),
	)

	cmd := NewDumpCmd(testFlags(t, path))
	cmd.format = "json"

	records := dumpJSON(t, cmd)
	require.Len(t, records, 2)
	assert.Equal(t, uint32(100), records[0].Timestamp)
	assert.Equal(t, "1970-01-01T00:01:40Z", records[0].Time)
	assert.Equal(t, author.String(), records[0].Author)
	assert.Equal(t, "second\n", records[1].Message)
}

func TestDumpCmd_SinceUsesWindowSemantics(t *testing.T) {
	var author board.Key
	path := tableWith(t,
		board.NewRecord(300, author, []byte("a")),
		board.NewRecord(100, author, []byte("b")),
		board.NewRecord(200, author, []byte("c")),
	)

	// The scan starts at the first qualifying record and returns everything
	// after it, matching what a view request returns.
	cmd := NewDumpCmd(testFlags(t, path))
	cmd.format = "json"
	cmd.since = 250
	assert.Len(t, dumpJSON(t, cmd), 3)

	// --all filters record by record.
	cmd.all = true
	records := dumpJSON(t, cmd)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Message)
}

func TestDumpCmd_WindowLimit(t *testing.T) {
	var author board.Key
	path := tableWith(t,
		board.NewRecord(1, author, []byte("old")),
		board.NewRecord(2, author, []byte("new")),
	)

	flags := testFlags(t, path)
	flags.Config.Table.FetchWindow = 1

	cmd := NewDumpCmd(flags)
	cmd.format = "json"

	records := dumpJSON(t, cmd)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Message)

	cmd.all = true
	assert.Len(t, dumpJSON(t, cmd), 2)
}

func TestDumpCmd_Text(t *testing.T) {
	var author board.Key
	author[0] = 0x01
	path := tableWith(t, board.NewRecord(0, author, []byte("hi\tthere\n")))

	cmd := NewDumpCmd(testFlags(t, path))
	cmd.format = "text"

	var out bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), &cli.Command{Writer: &out}))

	text := out.String()
	assert.Contains(t, text, "MESSAGE")
	assert.Contains(t, text, "0100000000000000")
	assert.Contains(t, text, "hi there")
	assert.Contains(t, text, "1 record(s)")
}

func TestDumpCmd_InvalidOptions(t *testing.T) {
	cmd := NewDumpCmd(testFlags(t, emptyTable(t)))

	cmd.format = "xml"
	require.Error(t, cmd.run(context.Background(), &cli.Command{}))

	cmd.format = "text"
	cmd.since = 1 << 33
	require.Error(t, cmd.run(context.Background(), &cli.Command{}))
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "line\n", want: "line"},
		{in: "a\tb", want: "a b"},
		{in: "a\nb\r\n", want: "a b"},
		{in: "bell\x07", want: "bell"},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.in, "\n", `\n`), func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeMessage(tt.in))
		})
	}
}
