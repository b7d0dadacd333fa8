package decode

import (
	"fmt"
	"strings"

	"github.com/undebug/memview/host"
)

// Comparison and containment predicates. Both operands pass through one
// resolver step first, so strings, optionals and smart pointers compare by
// what they hold rather than by their raw records.

// resolved is the post-resolution form of an operand: int64, float64,
// string, bool, or host.Value for terminal non-scalars. A no-value result
// converts to the neutral zero here, at the outermost boundary.
func (e *Engine) resolveOperand(x any) (any, error) {
	switch o := x.(type) {
	case nil:
		return int64(0), nil
	case host.Value:
		res, err := e.Deref(o, false)
		if err != nil {
			return nil, err
		}
		return e.resolvedOperand(res)
	case Result:
		return e.resolvedOperand(o)
	case bool:
		return o, nil
	case string:
		return o, nil
	case float32:
		return float64(o), nil
	case float64:
		return o, nil
	}
	if i, ok := intKey(x); ok {
		return i, nil
	}
	return nil, fmt.Errorf("cannot compare value of type %T", x)
}

func (e *Engine) resolvedOperand(res Result) (any, error) {
	switch res.Kind() {
	case ResultNone:
		return int64(0), nil
	case ResultText:
		text, _ := res.Text()
		return text, nil
	}
	v, _ := res.Value()
	t := v.Type()
	if t == nil {
		return nil, ErrTypeUnknown
	}
	switch t.Kind {
	case host.KindBool:
		return v.Bool()
	case host.KindInt, host.KindChar:
		return v.Int()
	case host.KindUint, host.KindPointer:
		u, err := v.Uint()
		return int64(u), err
	case host.KindFloat:
		return v.Float()
	}
	// terminal non-scalar (container, opaque record)
	return v, nil
}

func equalOperands(a, b any) (bool, error) {
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb, nil
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ba == bb, nil
	}
	fa, aok := numeric(a)
	fb, bok := numeric(b)
	if aok && bok {
		return fa == fb, nil
	}
	return false, fmt.Errorf("cannot compare %s with %s", operandName(a), operandName(b))
}

func lessOperands(a, b any) (bool, error) {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa < sb, nil
		}
	}
	fa, aok := numeric(a)
	fb, bok := numeric(b)
	if aok && bok {
		return fa < fb, nil
	}
	return false, fmt.Errorf("cannot order %s against %s", operandName(a), operandName(b))
}

func numeric(x any) (float64, bool) {
	switch n := x.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func operandName(x any) string {
	if v, ok := x.(host.Value); ok {
		return typeName(v)
	}
	return fmt.Sprintf("%T", x)
}

func (e *Engine) Equals(a, b any) (bool, error) {
	ra, err := e.resolveOperand(a)
	if err != nil {
		return false, err
	}
	rb, err := e.resolveOperand(b)
	if err != nil {
		return false, err
	}
	return equalOperands(ra, rb)
}

func (e *Engine) NotEquals(a, b any) (bool, error) {
	eq, err := e.Equals(a, b)
	return !eq, err
}

func (e *Engine) LessThan(a, b any) (bool, error) {
	ra, err := e.resolveOperand(a)
	if err != nil {
		return false, err
	}
	rb, err := e.resolveOperand(b)
	if err != nil {
		return false, err
	}
	return lessOperands(ra, rb)
}

func (e *Engine) LessOrEqual(a, b any) (bool, error) {
	gt, err := e.GreaterThan(a, b)
	return !gt, err
}

func (e *Engine) GreaterThan(a, b any) (bool, error) {
	return e.LessThan(b, a)
}

func (e *Engine) GreaterOrEqual(a, b any) (bool, error) {
	lt, err := e.LessThan(a, b)
	return !lt, err
}

// Contains reports whether a sequence holds an element equal to item, a
// map holds a key equal to item, or resolved text holds item as a
// substring.
func (e *Engine) Contains(container host.Value, item any) (bool, error) {
	res, err := e.Deref(container, false)
	if err != nil {
		return false, err
	}
	want, err := e.resolveOperand(item)
	if err != nil {
		return false, err
	}

	if text, terr := res.Text(); terr == nil {
		sub, ok := want.(string)
		if !ok {
			return false, fmt.Errorf("cannot search text for %s", operandName(want))
		}
		return strings.Contains(text, sub), nil
	}
	cv, verr := res.Value()
	if verr != nil {
		return false, &UnsupportedTypeError{TypeName: typeName(container)}
	}

	switch e.Classify(cv).Kind {
	case Sequence:
		for elem, err := range e.Elements(cv) {
			if err != nil {
				return false, err
			}
			got, rerr := e.resolveOperand(elem)
			if rerr != nil {
				return false, rerr
			}
			if eq, eerr := equalOperands(got, want); eerr == nil && eq {
				return true, nil
			}
		}
		return false, nil
	case Map:
		for entry, err := range e.Entries(cv) {
			if err != nil {
				return false, err
			}
			got, rerr := e.resolveKey(entry.Key)
			if rerr != nil {
				return false, rerr
			}
			if eq, eerr := equalOperands(got, want); eerr == nil && eq {
				return true, nil
			}
		}
		return false, nil
	}
	return false, &UnsupportedTypeError{TypeName: typeName(cv)}
}

func (e *Engine) In(item any, container host.Value) (bool, error) {
	return e.Contains(container, item)
}

// ValuesContain reports whether any map value equals item.
func (e *Engine) ValuesContain(container host.Value, item any) (bool, error) {
	res, err := e.Deref(container, false)
	if err != nil {
		return false, err
	}
	cv, verr := res.Value()
	if verr != nil || e.Classify(cv).Kind != Map {
		return false, &UnsupportedTypeError{TypeName: typeName(container)}
	}
	want, err := e.resolveOperand(item)
	if err != nil {
		return false, err
	}
	for entry, err := range e.Entries(cv) {
		if err != nil {
			return false, err
		}
		got, rerr := e.resolveOperand(entry.Value)
		if rerr != nil {
			return false, rerr
		}
		if eq, eerr := equalOperands(got, want); eerr == nil && eq {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) InValues(item any, container host.Value) (bool, error) {
	return e.ValuesContain(container, item)
}

func (e *Engine) resolveKey(k Key) (any, error) {
	if text, ok := k.Text(); ok {
		return text, nil
	}
	v, _ := k.Value()
	return e.resolveOperand(v)
}
