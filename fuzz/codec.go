// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package fuzz

import (
	"bytes"
	"fmt"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/vrthra/KaitaiFuzz/schema"
)

// ReadInt reinterprets b as an integer in the given byte order. Standard
// widths are read through a kaitai.Stream, the same way generated parsers
// read the emitted stream. Primitive tags only produce those widths; the
// byte loop serves callers reinterpreting odd-width raw slices of up to 8
// bytes.
func ReadInt(b []byte, endian schema.Endian, signed bool) (int64, error) {
	if len(b) == 0 || len(b) > 8 {
		return 0, fmt.Errorf("cannot read a %d-byte field as an integer", len(b))
	}
	le := endian == schema.EndianLittle
	ks := kaitai.NewStream(bytes.NewReader(b))

	switch len(b) {
	case 1:
		if signed {
			v, err := ks.ReadS1()
			return int64(v), err
		}
		v, err := ks.ReadU1()
		return int64(v), err
	case 2:
		if signed {
			v, err := pick(le, ks.ReadS2le, ks.ReadS2be)
			return int64(v), err
		}
		v, err := pick(le, ks.ReadU2le, ks.ReadU2be)
		return int64(v), err
	case 4:
		if signed {
			v, err := pick(le, ks.ReadS4le, ks.ReadS4be)
			return int64(v), err
		}
		v, err := pick(le, ks.ReadU4le, ks.ReadU4be)
		return int64(v), err
	case 8:
		if signed {
			return pick(le, ks.ReadS8le, ks.ReadS8be)
		}
		v, err := pick(le, ks.ReadU8le, ks.ReadU8be)
		return int64(v), err
	}

	if signed {
		return decodeSint(b, endian), nil
	}
	return int64(decodeUint(b, endian)), nil
}

func pick[T any](le bool, little, big func() (T, error)) (T, error) {
	if le {
		return little()
	}
	return big()
}

// fits reports whether v is representable in width bytes.
func fits(v int64, width int, signed bool) bool {
	if width >= 8 {
		return signed || v >= 0
	}
	bits := uint(width * 8)
	if signed {
		lo := -(int64(1) << (bits - 1))
		hi := int64(1)<<(bits-1) - 1
		return v >= lo && v <= hi
	}
	return v >= 0 && v < int64(1)<<bits
}

// encodeInt writes v into width bytes, two's complement for negatives.
func encodeInt(v int64, width int, endian schema.Endian) []byte {
	return encodeUint(uint64(v), width, endian)
}

func encodeUint(val uint64, length int, endian schema.Endian) []byte {
	buf := make([]byte, length)
	if endian == schema.EndianLittle {
		for i := 0; i < length; i++ {
			buf[i] = byte(val >> (8 * i))
		}
	} else {
		for i := length - 1; i >= 0; i-- {
			buf[i] = byte(val)
			val >>= 8
		}
	}
	return buf
}

func decodeUint(data []byte, endian schema.Endian) uint64 {
	var val uint64
	if endian == schema.EndianLittle {
		for i := len(data) - 1; i >= 0; i-- {
			val = (val << 8) | uint64(data[i])
		}
	} else {
		for _, b := range data {
			val = (val << 8) | uint64(b)
		}
	}
	return val
}

func decodeSint(data []byte, endian schema.Endian) int64 {
	uval := decodeUint(data, endian)
	bits := uint(len(data) * 8)
	signBit := uint64(1) << (bits - 1)
	if uval >= signBit {
		return int64(uval) - int64(1)<<bits
	}
	return int64(uval)
}
