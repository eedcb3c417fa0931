// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package fuzz

import (
	"bytes"
	"testing"

	"github.com/vrthra/KaitaiFuzz/schema"
)

func TestDecodeUint(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		endian schema.Endian
		want   uint64
	}{
		{"uint8", []byte{0xff}, schema.EndianBig, 255},
		{"uint16 big", []byte{0x01, 0x00}, schema.EndianBig, 256},
		{"uint16 little", []byte{0x00, 0x01}, schema.EndianLittle, 256},
		{"uint24 little", []byte{0x01, 0x02, 0x03}, schema.EndianLittle, 0x030201},
		{"uint32 big", []byte{0x00, 0x01, 0x00, 0x00}, schema.EndianBig, 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeUint(tt.data, tt.endian)
			if got != tt.want {
				t.Errorf("decodeUint() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReadInt(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		endian schema.Endian
		signed bool
		want   int64
	}{
		{"u1", []byte{0xff}, schema.EndianBig, false, 255},
		{"s1", []byte{0xff}, schema.EndianBig, true, -1},
		{"u2 be", []byte{0x01, 0x02}, schema.EndianBig, false, 0x0102},
		{"u2 le", []byte{0x01, 0x02}, schema.EndianLittle, false, 0x0201},
		{"s2 be", []byte{0xff, 0xfe}, schema.EndianBig, true, -2},
		{"u4 le", []byte{0x78, 0x56, 0x34, 0x12}, schema.EndianLittle, false, 0x12345678},
		{"s4 be", []byte{0x80, 0, 0, 0}, schema.EndianBig, true, -2147483648},
		{"u8 be", []byte{0, 0, 0, 0, 0, 0, 1, 0}, schema.EndianBig, false, 256},
		{"s8 le", []byte{0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, schema.EndianLittle, true, -2},
		{"u3 be", []byte{0x01, 0x00, 0x00}, schema.EndianBig, false, 65536},
		{"s3 le", []byte{0xff, 0xff, 0xff}, schema.EndianLittle, true, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadInt(tt.data, tt.endian, tt.signed)
			if err != nil {
				t.Fatalf("ReadInt() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadInt() = %d, want %d", got, tt.want)
			}
		})
	}

	for _, n := range []int{0, 9} {
		if _, err := ReadInt(make([]byte, n), schema.EndianBig, false); err == nil {
			t.Errorf("ReadInt(%d bytes) error = nil", n)
		}
	}
}

func TestEncodeInt(t *testing.T) {
	tests := []struct {
		v      int64
		width  int
		endian schema.Endian
		want   []byte
	}{
		{2, 1, schema.EndianLittle, []byte{0x02}},
		{0x0102, 2, schema.EndianBig, []byte{0x01, 0x02}},
		{0x0102, 2, schema.EndianLittle, []byte{0x02, 0x01}},
		{-1, 2, schema.EndianBig, []byte{0xff, 0xff}},
		{-2, 4, schema.EndianLittle, []byte{0xfe, 0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		got := encodeInt(tt.v, tt.width, tt.endian)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("encodeInt(%d, %d, %s) = %x, want %x", tt.v, tt.width, tt.endian, got, tt.want)
		}
		back, err := ReadInt(got, tt.endian, tt.v < 0)
		if err != nil || back != tt.v {
			t.Errorf("ReadInt(encodeInt(%d)) = %d, %v", tt.v, back, err)
		}
	}
}

func TestFits(t *testing.T) {
	tests := []struct {
		v      int64
		width  int
		signed bool
		want   bool
	}{
		{255, 1, false, true},
		{256, 1, false, false},
		{-1, 1, false, false},
		{-128, 1, true, true},
		{127, 1, true, true},
		{128, 1, true, false},
		{65535, 2, false, true},
		{1 << 40, 8, false, true},
		{-5, 8, true, true},
		{-5, 8, false, false},
	}
	for _, tt := range tests {
		if got := fits(tt.v, tt.width, tt.signed); got != tt.want {
			t.Errorf("fits(%d, %d, %v) = %v, want %v", tt.v, tt.width, tt.signed, got, tt.want)
		}
	}
}
