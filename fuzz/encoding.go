// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package fuzz

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// EncodingError is returned when a string attribute asks for an encoding
// that cannot be produced.
type EncodingError struct {
	Encoding string
	Err      error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported encoding %q: %v", e.Encoding, e.Err)
	}
	return fmt.Sprintf("unsupported encoding %q", e.Encoding)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// lookupEncoding resolves an encoding name as written in .ksy files. A nil
// encoding with a nil error means the text is emitted as is (ASCII, UTF-8).
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ASCII", "US-ASCII", "UTF-8", "UTF8":
		return nil, nil
	case "UTF-16LE":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "UTF-16BE":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case "UTF-32LE":
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM), nil
	case "UTF-32BE":
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM), nil
	case "ISO-8859-1", "LATIN1":
		return charmap.ISO8859_1, nil
	case "CP437", "IBM437":
		return charmap.CodePage437, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	case "SHIFT_JIS", "SJIS":
		return japanese.ShiftJIS, nil
	case "EUC-JP":
		return japanese.EUCJP, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, &EncodingError{Encoding: name, Err: err}
	}
	if enc == nil {
		return nil, &EncodingError{Encoding: name}
	}
	return enc, nil
}

// encodeString encodes s with the named encoding.
func encodeString(s, name string) ([]byte, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return []byte(s), nil
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, &EncodingError{Encoding: name, Err: err}
	}
	return out, nil
}
