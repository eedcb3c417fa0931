// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package fuzz

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/vrthra/KaitaiFuzz/expr"
	"github.com/vrthra/KaitaiFuzz/schema"
)

func sampleOutput() Output {
	u2, _ := schema.ParsePrimitive("u2")
	return Output{
		{ID: "magic", Kind: RecordLeaf, Leaf: &Leaf{Bytes: []byte("OK"), Tag: TagContents, Endian: schema.EndianBig}},
		{ID: "hdr", Kind: RecordGroup, Type: "header", Group: Output{
			{ID: "len", Kind: RecordLeaf, Leaf: &Leaf{Bytes: []byte{0x01, 0x02}, Tag: "u2", Endian: schema.EndianLittle, prim: u2}},
		}},
		{ID: "pad", Kind: RecordLeaf, Leaf: &Leaf{Bytes: []byte{0xff}, Tag: TagRaw, Endian: schema.EndianBig}},
		{ID: "total", Kind: RecordDerived, Value: expr.Int(513)},
	}
}

func TestOutputBytes(t *testing.T) {
	out := sampleOutput()
	if got, want := out.Bytes(), []byte{'O', 'K', 0x01, 0x02, 0xff}; !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
	if out.Len() != 5 {
		t.Errorf("Len() = %d, want 5", out.Len())
	}
	if got, want := out.IDs(), []string{"magic", "hdr", "pad", "total"}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	if got, want := out.Shape(), "magic,hdr(len),pad,$total"; got != want {
		t.Errorf("Shape() = %q, want %q", got, want)
	}

	var paths []string
	out.Walk(func(path string, _ *Leaf) { paths = append(paths, path) })
	if want := []string{"magic", "hdr.len", "pad"}; !reflect.DeepEqual(paths, want) {
		t.Errorf("Walk() paths = %v, want %v", paths, want)
	}
}

func TestOutputFind(t *testing.T) {
	out := sampleOutput()
	tests := []struct {
		path string
		ok   bool
		leaf bool
	}{
		{"magic", true, true},
		{"hdr", true, false},
		{"hdr.len", true, true},
		{"hdr.nope", false, false},
		{"magic.x", false, false},
		{"total", true, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, ok := out.Find(tt.path)
			if ok != tt.ok {
				t.Errorf("Find(%q) ok = %v, want %v", tt.path, ok, tt.ok)
			}
			_, ok = out.Leaf(tt.path)
			if ok != tt.leaf {
				t.Errorf("Leaf(%q) ok = %v, want %v", tt.path, ok, tt.leaf)
			}
		})
	}

	l, _ := out.Leaf("hdr.len")
	if v := l.FieldValue(); !v.Equal(expr.Int(0x0201)) {
		t.Errorf("FieldValue() = %v, want 513", v)
	}
	m, _ := out.Leaf("magic")
	if b, ok := m.FieldValue().Bytes(); !ok || string(b) != "OK" {
		t.Errorf("contents FieldValue() = %v", m.FieldValue())
	}
}

func TestOutputJSON(t *testing.T) {
	data, err := Encode(sampleOutput(), FormatJSON)
	if err != nil {
		t.Fatalf("Encode(json) error = %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v\n%s", err, data)
	}
	if len(got) != 4 {
		t.Fatalf("got %d records, want 4", len(got))
	}
	if got[0]["hex"] != "4f4b" || got[0]["type"] != TagContents {
		t.Errorf("magic = %v", got[0])
	}
	inner := got[1]["records"].([]any)[0].(map[string]any)
	if inner["hex"] != "0102" || inner["endian"] != "little" {
		t.Errorf("hdr.len = %v", inner)
	}
	if got[3]["value"] != "513" {
		t.Errorf("total = %v", got[3])
	}
}

func TestOutputYAML(t *testing.T) {
	data, err := Encode(sampleOutput(), FormatYAML)
	if err != nil {
		t.Fatalf("Encode(yaml) error = %v", err)
	}
	var got []map[string]any
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v\n%s", err, data)
	}
	if len(got) != 4 || got[1]["type"] != "header" {
		t.Errorf("yaml = %v", got)
	}
}

func TestEncodeFormats(t *testing.T) {
	out := sampleOutput()
	bin, _ := Encode(out, FormatBin)
	if !bytes.Equal(bin, out.Bytes()) {
		t.Errorf("Encode(bin) = %x", bin)
	}
	hexed, _ := Encode(out, FormatHex)
	if string(hexed) != "4f4b0102ff\n" {
		t.Errorf("Encode(hex) = %q", hexed)
	}
	if _, err := Encode(out, Format("xml")); err == nil {
		t.Error("Encode(xml) error = nil")
	}
	if FormatBin.Ext() != "bin" || FormatJSON.Ext() != "json" {
		t.Error("Ext() mismatch")
	}
	if !strings.HasSuffix(string(mustEncode(t, out, FormatJSON)), "\n") {
		t.Error("json output lacks trailing newline")
	}
}

func mustEncode(t *testing.T, out Output, f Format) []byte {
	t.Helper()
	data, err := Encode(out, f)
	if err != nil {
		t.Fatalf("Encode(%s) error = %v", f, err)
	}
	return data
}
