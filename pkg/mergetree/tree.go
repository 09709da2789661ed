// SPDX-License-Identifier: MPL-2.0

// Package mergetree provides the JSON tree representation and merge
// algorithms used when combining resource packs.
//
// Most files in a resource pack use simple overwrite semantics: the
// higher-priority pack's copy wins outright. A small set of structured
// JSON files is merged content-aware instead, so that non-conflicting
// contributions from several packs survive in the output:
//
//   - model and blockstate JSON are deep-merged key by key
//   - sounds.json concatenates the per-event "sounds" arrays
//
// Trees are represented as a closed set of node kinds (Object, Array,
// Scalar) so the merge algorithms can switch exhaustively over them.
// Object nodes remember key insertion order, which makes repeated merges
// of the same inputs byte-stable when re-encoded.
package mergetree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type (
	// Node is one node of a parsed JSON tree: an *Object, an Array, or a
	// Scalar. The set of implementations is closed.
	Node interface {
		// Clone returns a deep copy that shares no mutable state with the
		// receiver.
		Clone() Node

		encode(b *strings.Builder, indent int)
	}

	// Object is a JSON object whose keys preserve insertion order.
	Object struct {
		keys   []string
		values map[string]Node
	}

	// Array is a JSON array.
	Array []Node

	// Scalar is a JSON leaf value: a string, a json.Number, a bool, or
	// nil for JSON null.
	Scalar struct {
		Value any
	}
)

// NewObject returns an empty object node.
func NewObject() *Object {
	return &Object{values: make(map[string]Node)}
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Node, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set stores value under key. A key seen for the first time is appended
// to the iteration order; setting an existing key keeps its position.
func (o *Object) Set(key string, value Node) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Keys returns the object's keys in insertion order. The returned slice
// is a copy.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// GetObject returns the child object under key, or nil if the key is
// absent or holds a non-object value.
func (o *Object) GetObject(key string) *Object {
	child, ok := o.values[key]
	if !ok {
		return nil
	}
	obj, ok := child.(*Object)
	if !ok {
		return nil
	}
	return obj
}

// GetArray returns the child array under key, or nil if the key is
// absent or holds a non-array value.
func (o *Object) GetArray(key string) Array {
	child, ok := o.values[key]
	if !ok {
		return nil
	}
	arr, ok := child.(Array)
	if !ok {
		return nil
	}
	return arr
}

// GetString returns the string scalar under key, or ("", false) when the
// key is absent or holds a non-string value.
func (o *Object) GetString(key string) (string, bool) {
	child, ok := o.values[key]
	if !ok {
		return "", false
	}
	s, ok := child.(Scalar)
	if !ok {
		return "", false
	}
	str, ok := s.Value.(string)
	return str, ok
}

// Clone implements Node.
func (o *Object) Clone() Node {
	out := &Object{
		keys:   make([]string, len(o.keys)),
		values: make(map[string]Node, len(o.values)),
	}
	copy(out.keys, o.keys)
	for k, v := range o.values {
		out.values[k] = v.Clone()
	}
	return out
}

// Clone implements Node.
func (a Array) Clone() Node {
	out := make(Array, len(a))
	for i, v := range a {
		out[i] = v.Clone()
	}
	return out
}

// Clone implements Node. Scalar values are immutable, so the receiver is
// returned as-is.
func (s Scalar) Clone() Node { return s }

// Parse decodes data as a JSON document with an object at the top level.
// It returns (nil, false) for invalid JSON and for valid JSON whose top
// level is not an object (an array or primitive is not mergeable).
func Parse(data []byte) (*Object, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := parseValue(dec)
	if err != nil {
		return nil, false
	}
	// Reject trailing garbage after the document.
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	obj, ok := node.(*Object)
	if !ok {
		return nil, false
	}
	return obj, true
}

// parseValue reads one JSON value from the decoder's token stream.
func parseValue(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return parseToken(dec, tok)
}

func parseToken(dec *json.Decoder, tok json.Token) (Node, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("mergetree: object key is %T, not string", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			// Consume the closing '}'.
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			var arr Array
			for dec.More() {
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("mergetree: unexpected delimiter %q", t)
		}
	case string, json.Number, bool, nil:
		return Scalar{Value: t}, nil
	default:
		return nil, fmt.Errorf("mergetree: unexpected token %v", tok)
	}
}

// Encode serializes a tree as two-space-indented JSON with a trailing
// newline. Object keys appear in insertion order and HTML characters are
// not escaped, so encoding is deterministic for a given tree.
func Encode(n Node) []byte {
	var b strings.Builder
	n.encode(&b, 0)
	b.WriteByte('\n')
	return []byte(b.String())
}

func (o *Object) encode(b *strings.Builder, indent int) {
	if len(o.keys) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{\n")
	for i, key := range o.keys {
		writeIndent(b, indent+1)
		b.WriteString(encodeString(key))
		b.WriteString(": ")
		o.values[key].encode(b, indent+1)
		if i < len(o.keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	writeIndent(b, indent)
	b.WriteByte('}')
}

func (a Array) encode(b *strings.Builder, indent int) {
	if len(a) == 0 {
		b.WriteString("[]")
		return
	}
	b.WriteString("[\n")
	for i, v := range a {
		writeIndent(b, indent+1)
		v.encode(b, indent+1)
		if i < len(a)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	writeIndent(b, indent)
	b.WriteByte(']')
}

func (s Scalar) encode(b *strings.Builder, _ int) {
	switch v := s.Value.(type) {
	case string:
		b.WriteString(encodeString(v))
	case json.Number:
		b.WriteString(v.String())
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case nil:
		b.WriteString("null")
	default:
		// Unreachable for trees built by Parse; guard for hand-built ones.
		b.WriteString(encodeString(fmt.Sprint(v)))
	}
}

func writeIndent(b *strings.Builder, indent int) {
	for range indent {
		b.WriteString("  ")
	}
}

// encodeString renders a JSON string literal without HTML escaping, so
// characters like '<' survive round-trips (they appear in client text
// components).
func encodeString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encode always succeeds for a plain string.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
