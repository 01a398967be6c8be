// Package chunk defines the unit of data moved by streams and the FIFO queue
// both stream halves buffer it in.
package chunk

import (
	"github.com/vnykmshr/flowio/pkg/streaming/encoding"
)

// Mode fixes what a stream carries for its whole lifetime.
type Mode uint8

const (
	// ModeBytes streams carry byte sequences; size is measured in bytes.
	ModeBytes Mode = iota
	// ModeObject streams carry arbitrary values; each counts as one.
	ModeObject
)

func (m Mode) String() string {
	if m == ModeObject {
		return "object"
	}
	return "bytes"
}

type kind uint8

const (
	kindBytes kind = iota
	kindString
	kindObject
)

// Chunk is either raw bytes, a string that still carries its encoding, or an
// object-mode value. The zero Chunk is an empty byte chunk.
type Chunk struct {
	Data     []byte
	Str      string
	Encoding encoding.Encoding
	Value    any

	kind kind
}

// Bytes wraps p without copying.
func Bytes(p []byte) Chunk {
	return Chunk{Data: p, Encoding: encoding.Buffer}
}

// String wraps s together with the encoding it should be written in.
func String(s string, enc encoding.Encoding) Chunk {
	if enc == "" {
		enc = encoding.Default
	}
	return Chunk{Str: s, Encoding: enc, kind: kindString}
}

// Object wraps an object-mode value.
func Object(v any) Chunk {
	return Chunk{Value: v, kind: kindObject}
}

// IsString reports whether c holds an undecoded string.
func (c Chunk) IsString() bool { return c.kind == kindString }

// IsObject reports whether c holds an object-mode value.
func (c Chunk) IsObject() bool { return c.kind == kindObject }

// Len is the byte length of a byte or string chunk, and 1 for objects.
func (c Chunk) Len() int {
	switch c.kind {
	case kindString:
		return encoding.ByteLength(c.Str, c.Encoding)
	case kindObject:
		return 1
	default:
		return len(c.Data)
	}
}

// Size is how much c counts against a high water mark in the given mode.
func (c Chunk) Size(mode Mode) int {
	if mode == ModeObject {
		return 1
	}
	return c.Len()
}

// Empty reports whether c carries no bytes. Objects are never empty.
func (c Chunk) Empty() bool {
	switch c.kind {
	case kindString:
		return c.Str == ""
	case kindObject:
		return false
	default:
		return len(c.Data) == 0
	}
}

// Clone returns a chunk that shares no byte storage with c.
func (c Chunk) Clone() Chunk {
	if c.kind == kindBytes && c.Data != nil {
		p := make([]byte, len(c.Data))
		copy(p, c.Data)
		c.Data = p
	}
	return c
}

// Decoded converts a string chunk into a byte chunk using its encoding.
// Byte and object chunks are returned unchanged.
func (c Chunk) Decoded() (Chunk, error) {
	if c.kind != kindString {
		return c, nil
	}
	p, err := encoding.Encode(c.Str, c.Encoding)
	if err != nil {
		return c, err
	}
	return Bytes(p), nil
}

// Text renders byte and string chunks as a Go string, for logs and tests.
func (c Chunk) Text() string {
	switch c.kind {
	case kindString:
		return c.Str
	case kindBytes:
		return string(c.Data)
	default:
		return ""
	}
}

// Concat joins byte chunks into one. Non-byte chunks are skipped.
func Concat(chunks []Chunk) Chunk {
	n := 0
	for _, c := range chunks {
		n += len(c.Data)
	}
	p := make([]byte, 0, n)
	for _, c := range chunks {
		if c.kind == kindBytes {
			p = append(p, c.Data...)
		}
	}
	return Bytes(p)
}
