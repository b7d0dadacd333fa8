package decode

import (
	"iter"

	"github.com/undebug/memview/host"
)

// Entry is one key/value pair yielded by a map decoder. Tree maps carry a
// typed key value; the hash string map stores its keys as inline bytes and
// yields them as text.
type Entry struct {
	Key   Key
	Value host.Value
}

type Key struct {
	text   string
	isText bool
	val    host.Value
}

func TextKey(s string) Key {
	return Key{text: s, isText: true}
}

func ValueKey(v host.Value) Key {
	return Key{val: v}
}

func (k Key) Text() (string, bool) {
	return k.text, k.isText
}

func (k Key) Value() (host.Value, bool) {
	return k.val, !k.isText
}

func typeName(v host.Value) string {
	if t := v.Type(); t != nil {
		return t.Name
	}
	return "<unknown>"
}

func failSeq[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// Elements returns a lazy forward sequence over a sequence-shaped value.
// The walk restarts from memory on every range; an error is yielded once
// and ends the stream.
func (e *Engine) Elements(v host.Value) iter.Seq2[host.Value, error] {
	shape := e.Classify(v)
	if shape.Kind != Sequence {
		return failSeq[host.Value](&UnsupportedTypeError{TypeName: typeName(v)})
	}
	switch shape.Variant {
	case VariantVector, VariantSmallVector, VariantView, VariantStdArray, VariantCArray:
		return e.contiguousSeq(v, shape.Variant)
	case VariantTreeSet:
		return e.treeSeq(v)
	case VariantSmallSet:
		return e.smallSetSeq(v)
	case VariantList:
		return e.listSeq(v)
	case VariantDeque:
		return e.dequeSeq(v)
	case VariantDequeAdapter:
		return func(yield func(host.Value, error) bool) {
			inner, err := v.Field("c")
			if err != nil {
				yield(host.Value{}, layoutErr(typeName(v), err))
				return
			}
			for elem, err := range e.dequeSeq(inner) {
				if !yield(elem, err) {
					return
				}
			}
		}
	}
	return failSeq[host.Value](&UnsupportedTypeError{TypeName: typeName(v)})
}

// Entries returns a lazy forward sequence of key/value pairs over a
// map-shaped value. Tombstone and empty hash buckets are invisible.
func (e *Engine) Entries(v host.Value) iter.Seq2[Entry, error] {
	shape := e.Classify(v)
	if shape.Kind != Map {
		return failSeq[Entry](&UnsupportedTypeError{TypeName: typeName(v)})
	}
	switch shape.Variant {
	case VariantStringMap:
		return e.stringMapSeq(v)
	case VariantTreeMap:
		return e.treeEntries(v)
	}
	return failSeq[Entry](&UnsupportedTypeError{TypeName: typeName(v)})
}
