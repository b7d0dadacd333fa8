package decode

import (
	"fmt"

	"github.com/undebug/memview/host"
	"github.com/undebug/memview/profile"
)

// Item performs bounds- and type-checked random access: integer indexing
// into sequence-shaped values, key lookup into map-shaped values. A
// negative index is normalized by the size exactly once; anything still
// outside [0, size) is an error, never clamped.
func (e *Engine) Item(v host.Value, key any) (host.Value, error) {
	if !v.IsValid() {
		return host.Value{}, ErrTypeUnknown
	}
	shape := e.Classify(v)

	switch shape.Kind {
	case Sequence:
		switch shape.Variant {
		case VariantVector, VariantSmallVector, VariantView, VariantStdArray, VariantCArray:
			idx, ok := intKey(key)
			if !ok {
				return host.Value{}, &KeyTypeError{typeName(v), "an integer", keyKind(key)}
			}
			return e.itemContiguous(v, shape.Variant, idx)
		}

	case String:
		if shape.Variant == VariantCharArray {
			idx, ok := intKey(key)
			if !ok {
				return host.Value{}, &KeyTypeError{typeName(v), "an integer", keyKind(key)}
			}
			return e.itemContiguous(v, VariantCArray, idx)
		}

	case RawPointer:
		idx, ok := intKey(key)
		if !ok {
			return host.Value{}, &KeyTypeError{typeName(v), "an integer", keyKind(key)}
		}
		if idx < 0 {
			// no size exists to normalize against
			return host.Value{}, &RangeError{TypeName: typeName(v), Index: idx, Size: -1}
		}
		return v.Index(uint64(idx))

	case Map:
		switch shape.Variant {
		case VariantStringMap:
			text, ok := key.(string)
			if !ok {
				return host.Value{}, &KeyTypeError{typeName(v), "a string", keyKind(key)}
			}
			return e.lookupStringMap(v, text)
		case VariantTreeMap:
			return e.lookupTreeMap(v, key)
		}
	}
	return host.Value{}, &UnsupportedTypeError{TypeName: typeName(v)}
}

func (e *Engine) itemContiguous(v host.Value, variant Variant, idx int64) (host.Value, error) {
	base, elem, n, err := e.sliceOf(v, variant)
	if err != nil {
		return host.Value{}, err
	}
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return host.Value{}, &RangeError{TypeName: typeName(v), Index: idx, Size: n}
	}
	return host.NewValue(v.Process(), elem, base+uint64(idx)*elem.Size), nil
}

func (e *Engine) lookupStringMap(v host.Value, key string) (host.Value, error) {
	var live int64
	for entry, err := range e.stringMapSeq(v) {
		if err != nil {
			return host.Value{}, err
		}
		if text, _ := entry.Key.Text(); text == key {
			return entry.Value, nil
		}
		live++
	}
	return host.Value{}, &NotFoundError{TypeName: typeName(v), Key: key, Size: live}
}

func (e *Engine) lookupTreeMap(v host.Value, key any) (host.Value, error) {
	keyT, err := v.Type().TemplateType(0)
	if err != nil {
		return host.Value{}, layoutErr(typeName(v), err)
	}

	var wantText string
	var wantInt int64
	textual, err := e.treeKeyIsText(keyT)
	if err != nil {
		return host.Value{}, err
	}
	if textual {
		s, ok := key.(string)
		if !ok {
			return host.Value{}, &KeyTypeError{typeName(v), "a string", keyKind(key)}
		}
		wantText = s
	} else {
		i, ok := intKey(key)
		if !ok {
			return host.Value{}, &KeyTypeError{typeName(v), "an integer", keyKind(key)}
		}
		wantInt = i
	}

	var size int64
	for entry, err := range e.treeEntries(v) {
		if err != nil {
			return host.Value{}, err
		}
		size++
		kv, _ := entry.Key.Value()
		if textual {
			// string-like keys resolve to text before comparing
			res, derr := e.Deref(kv, false)
			if derr != nil {
				return host.Value{}, derr
			}
			text, terr := res.Text()
			if terr != nil {
				return host.Value{}, terr
			}
			if text == wantText {
				return entry.Value, nil
			}
		} else {
			got, ierr := kv.Int()
			if ierr != nil {
				return host.Value{}, ierr
			}
			if got == wantInt {
				return entry.Value, nil
			}
		}
	}
	keyText := fmt.Sprintf("%v", key)
	return host.Value{}, &NotFoundError{TypeName: typeName(v), Key: keyText, Size: size}
}

// treeKeyIsText decides whether a tree map is keyed by text: integral key
// types compare as integers, known string-like key types as text, anything
// else is unsupported.
func (e *Engine) treeKeyIsText(keyT *host.Type) (bool, error) {
	switch keyT.Kind {
	case host.KindBool, host.KindInt, host.KindUint, host.KindChar:
		return false, nil
	}
	if rule, ok := e.prof.Match(keyT.Name); ok && rule.Class == profile.ClassString {
		return true, nil
	}
	return false, &KeyTypeError{keyT.Name, "an integer or string key type", keyT.Name}
}

func intKey(key any) (int64, bool) {
	switch k := key.(type) {
	case int:
		return int64(k), true
	case int8:
		return int64(k), true
	case int16:
		return int64(k), true
	case int32:
		return int64(k), true
	case int64:
		return k, true
	case uint:
		return int64(k), true
	case uint8:
		return int64(k), true
	case uint16:
		return int64(k), true
	case uint32:
		return int64(k), true
	case uint64:
		return int64(k), true
	}
	return 0, false
}

func keyKind(key any) string {
	switch key.(type) {
	case string:
		return "a string"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "an integer"
	}
	return fmt.Sprintf("%T", key)
}
