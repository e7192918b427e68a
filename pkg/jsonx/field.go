// Package jsonx holds strict JSON decoding helpers for request bodies.
package jsonx

import (
	"bytes"
	"encoding/json"
)

// Field tracks whether a key was present in the decoded object, which a
// plain pointer cannot tell apart from an explicit null.
//
//	absent     → IsSet() == false
//	null       → IsSet() && IsNull()
//	value      → IsSet() && Value() != nil
type Field[T any] struct {
	set bool
	val *T
}

func (f Field[T]) IsSet() bool  { return f.set }
func (f Field[T]) IsNull() bool { return f.set && f.val == nil }
func (f Field[T]) Value() *T    { return f.val }

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		f.set, f.val = true, nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.set, f.val = true, &v
	return nil
}
