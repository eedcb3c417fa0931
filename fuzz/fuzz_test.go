// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package fuzz

import (
	"bytes"
	"testing"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/vrthra/KaitaiFuzz/schema"
)

// FuzzGenerate checks the switch invariant for arbitrary seeds: the tag
// byte read back from the stream always names the case that was generated.
//
// Run with:
//
//	go test -fuzz=FuzzGenerate -fuzztime=60s ./fuzz
func FuzzGenerate(f *testing.F) {
	s := loadSchema(f, "tagged.ksy")
	tagEnum, _ := s.Root.ResolveEnum("tag")

	f.Add(uint64(0))
	f.Add(uint64(1))
	f.Add(uint64(0xdeadbeef))
	f.Add(^uint64(0))

	f.Fuzz(func(t *testing.T, seed uint64) {
		opts := DefaultOptions()
		opts.Seed = seed
		out, err := Fuzz(s, opts)
		if err != nil {
			t.Fatalf("Fuzz() error = %v", err)
		}

		ks := kaitai.NewStream(bytes.NewReader(out.Bytes()))
		tag, err := ks.ReadU1()
		if err != nil {
			t.Fatalf("ReadU1() error = %v", err)
		}
		name, ok := tagEnum.Lookup(int64(tag))
		if !ok {
			t.Fatalf("tag %d not in enum", tag)
		}
		body, _ := out.Find("body")
		if body.Type != "type_"+name {
			t.Errorf("tag %d (%s) generated %s", tag, name, body.Type)
		}
		if _, err := ks.ReadU2le(); err != nil {
			t.Errorf("body shorter than u2: %v", err)
		}
		if eof, _ := ks.EOF(); !eof {
			t.Error("trailing bytes after body")
		}
	})
}

// FuzzReadInt tests that ReadInt never panics and agrees with the byte loop.
func FuzzReadInt(f *testing.F) {
	f.Add([]byte{}, false, false)
	f.Add([]byte{0x00}, false, true)
	f.Add([]byte{0xff, 0xfe}, true, true)
	f.Add([]byte{0x01, 0x02, 0x03}, true, false)
	f.Add([]byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, false, true)
	f.Add(make([]byte, 16), false, false)

	f.Fuzz(func(t *testing.T, data []byte, little, signed bool) {
		endian := schema.EndianBig
		if little {
			endian = schema.EndianLittle
		}
		got, err := ReadInt(data, endian, signed)
		if len(data) == 0 || len(data) > 8 {
			if err == nil {
				t.Fatalf("ReadInt(%d bytes) error = nil", len(data))
			}
			return
		}
		if err != nil {
			t.Fatalf("ReadInt() error = %v", err)
		}
		want := int64(decodeUint(data, endian))
		if signed {
			want = decodeSint(data, endian)
		}
		if got != want {
			t.Errorf("ReadInt(%x) = %d, byte loop = %d", data, got, want)
		}
		if back := encodeInt(got, len(data), endian); !bytes.Equal(back, data) {
			t.Errorf("encodeInt(%d) = %x, want %x", got, back, data)
		}
	})
}
