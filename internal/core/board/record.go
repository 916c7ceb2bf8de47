// Package board defines the message board domain types and interfaces.
package board

import (
	"encoding/binary"
	"fmt"
)

// On-disk record layout. All integers are big-endian.
const (
	RecordSize  = 256
	KeySize     = 32
	MessageSize = 208

	offTimestamp = 0
	offFlags     = 4
	offAuthor    = 8
	offReserved  = 40
	offMessage   = 48
)

// DefaultFetchWindow is the number of most recent records a view request
// considers. Older records are never returned.
const DefaultFetchWindow = 1000

// Record is a single fixed-size table entry.
type Record struct {
	Timestamp uint32
	Flags     uint32
	Author    Key
	Reserved  [8]byte
	Message   [MessageSize]byte
}

// NewRecord builds a record for a post. Messages longer than MessageSize are
// truncated, shorter ones are zero padded.
func NewRecord(ts uint32, author Key, message []byte) Record {
	rec := Record{Timestamp: ts, Author: author}
	copy(rec.Message[:], message)
	return rec
}

// Text returns the message with trailing zero padding removed.
func (r Record) Text() string {
	end := len(r.Message)
	for end > 0 && r.Message[end-1] == 0 {
		end--
	}
	return string(r.Message[:end])
}

// Encode writes the record layout into dst, which must be RecordSize bytes.
func (r Record) Encode(dst []byte) {
	_ = dst[RecordSize-1]
	binary.BigEndian.PutUint32(dst[offTimestamp:], r.Timestamp)
	binary.BigEndian.PutUint32(dst[offFlags:], r.Flags)
	copy(dst[offAuthor:offReserved], r.Author[:])
	copy(dst[offReserved:offMessage], r.Reserved[:])
	copy(dst[offMessage:RecordSize], r.Message[:])
}

// MarshalBinary returns the 256-byte on-disk form of the record.
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	r.Encode(buf)
	return buf, nil
}

// UnmarshalBinary decodes a record from exactly RecordSize bytes.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("record must be %d bytes, got %d", RecordSize, len(data))
	}
	r.Timestamp = binary.BigEndian.Uint32(data[offTimestamp:])
	r.Flags = binary.BigEndian.Uint32(data[offFlags:])
	copy(r.Author[:], data[offAuthor:offReserved])
	copy(r.Reserved[:], data[offReserved:offMessage])
	copy(r.Message[:], data[offMessage:RecordSize])
	return nil
}

// TimestampOf reads the timestamp field of an encoded record without decoding
// the rest of it.
func TimestampOf(data []byte) uint32 {
	return binary.BigEndian.Uint32(data[offTimestamp:])
}
