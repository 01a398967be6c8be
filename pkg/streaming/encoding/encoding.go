// Package encoding defines the fixed set of string encodings a write may carry
// and the pure mapping from an encoding to the low-level dispatch method.
package encoding

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
)

// Encoding names how a string chunk is turned into bytes.
type Encoding string

// Dispatchable encodings. Each one has a dedicated transport method.
const (
	Buffer Encoding = "buffer"
	UTF8   Encoding = "utf8"
	Latin1 Encoding = "latin1"
	ASCII  Encoding = "ascii"
	UCS2   Encoding = "ucs2"
)

// Convertible encodings. Strings in these encodings are converted to bytes
// before dispatch and go through WriteBuffer.
const (
	Hex       Encoding = "hex"
	Base64    Encoding = "base64"
	Base64URL Encoding = "base64url"
)

// Default is used when a string chunk carries no encoding.
const Default = UTF8

var aliases = map[string]Encoding{
	"buffer":     Buffer,
	"utf8":       UTF8,
	"utf-8":      UTF8,
	"latin1":     Latin1,
	"binary":     Latin1,
	"iso-8859-1": Latin1,
	"ascii":      ASCII,
	"ucs2":       UCS2,
	"ucs-2":      UCS2,
	"utf16le":    UCS2,
	"utf-16le":   UCS2,
	"hex":        Hex,
	"base64":     Base64,
	"base64url":  Base64URL,
}

var ucs2Codec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Encoders carry transform state, so each conversion gets its own.
func latin1Encoder() *xencoding.Encoder {
	return xencoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
}

// Parse resolves an encoding name, accepting aliases in any case.
// The empty name resolves to Default.
func Parse(name string) (Encoding, error) {
	if name == "" {
		return Default, nil
	}
	if enc, ok := aliases[strings.ToLower(name)]; ok {
		return enc, nil
	}
	return "", gferrors.NewOperationError("encoding", "Parse", gferrors.ErrUnknownEncoding).
		WithContext("name=" + name)
}

// Normalize returns the canonical form of e, or e unchanged when unknown.
func (e Encoding) Normalize() Encoding {
	if enc, ok := aliases[strings.ToLower(string(e))]; ok {
		return enc
	}
	return e
}

// Valid reports whether e names a known encoding.
func (e Encoding) Valid() bool {
	_, ok := aliases[strings.ToLower(string(e))]
	return ok
}

func (e Encoding) String() string {
	return string(e)
}

// Encode converts s to bytes using the named encoding. Latin1 replaces runes
// outside the charset, ASCII additionally clears the high bit, and the
// convertible encodings decode their text form (hex digits, base64).
//
//nolint:gocyclo
func Encode(s string, enc Encoding) ([]byte, error) {
	if enc == "" {
		enc = Default
	}
	switch enc.Normalize() {
	case Buffer, UTF8:
		return []byte(s), nil
	case Latin1:
		return latin1Encoder().Bytes([]byte(s))
	case ASCII:
		p, err := latin1Encoder().Bytes([]byte(s))
		if err != nil {
			return nil, err
		}
		for i := range p {
			p[i] &= 0x7f
		}
		return p, nil
	case UCS2:
		return ucs2Codec.NewEncoder().Bytes([]byte(s))
	case Hex:
		p, err := hex.DecodeString(s)
		if err != nil {
			return nil, gferrors.NewOperationError("encoding", "Encode", err).WithContext("encoding=hex")
		}
		return p, nil
	case Base64, Base64URL:
		// Both alphabets and optional padding are accepted.
		s = strings.TrimRight(s, "=")
		s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
		p, err := base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, gferrors.NewOperationError("encoding", "Encode", err).WithContext("encoding=" + string(enc))
		}
		return p, nil
	default:
		return nil, gferrors.NewOperationError("encoding", "Encode", gferrors.ErrUnknownEncoding).
			WithContext("encoding=" + string(enc))
	}
}

// Decode converts bytes back into a string in the named encoding.
func Decode(p []byte, enc Encoding) (string, error) {
	if enc == "" {
		enc = Default
	}
	switch enc.Normalize() {
	case Buffer, UTF8:
		return string(p), nil
	case Latin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(p)
		return string(out), err
	case ASCII:
		out := make([]byte, len(p))
		for i, b := range p {
			out[i] = b & 0x7f
		}
		return string(out), nil
	case UCS2:
		out, err := ucs2Codec.NewDecoder().Bytes(p)
		return string(out), err
	case Hex:
		return hex.EncodeToString(p), nil
	case Base64:
		return base64.StdEncoding.EncodeToString(p), nil
	case Base64URL:
		return base64.RawURLEncoding.EncodeToString(p), nil
	default:
		return "", gferrors.NewOperationError("encoding", "Decode", gferrors.ErrUnknownEncoding).
			WithContext("encoding=" + string(enc))
	}
}

// ByteLength returns the number of bytes s occupies once encoded.
// Unconvertible input counts as its raw length.
func ByteLength(s string, enc Encoding) int {
	switch enc.Normalize() {
	case "", Buffer, UTF8:
		return len(s)
	}
	p, err := Encode(s, enc)
	if err != nil {
		return len(s)
	}
	return len(p)
}
