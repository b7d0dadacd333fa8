package decode

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"

	"github.com/undebug/memview/host"
	"github.com/undebug/memview/profile"
)

type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultValue
	ResultText
)

// Result is the resolver's outcome: a typed value, materialized text, or
// no value at all (empty optional, successful error box). Degraded marks a
// resolution that only succeeded through the best-effort display-text
// fallback.
type Result struct {
	kind     ResultKind
	val      host.Value
	text     string
	Degraded bool
}

func valueResult(v host.Value) Result {
	return Result{kind: ResultValue, val: v}
}

func textResult(s string) Result {
	return Result{kind: ResultText, text: s}
}

func (r Result) Kind() ResultKind {
	return r.kind
}

func (r Result) IsNone() bool {
	return r.kind == ResultNone
}

func (r Result) Value() (host.Value, error) {
	if r.kind != ResultValue {
		return host.Value{}, ErrNotValue
	}
	return r.val, nil
}

func (r Result) Text() (string, error) {
	if r.kind != ResultText {
		return "", ErrNotText
	}
	return r.text, nil
}

// Deref unwraps layers of indirection and optionality. Single-step mode
// unwraps exactly one layer; recursive mode repeats until a layer applies
// no further transformation, so resolving a terminal value is a no-op.
func (e *Engine) Deref(v host.Value, recursive bool) (Result, error) {
	if !v.IsValid() {
		return Result{}, ErrTypeUnknown
	}
	cur := v
	degraded := false
	for stepped := false; recursive || !stepped; stepped = true {
		out, terminal, err := e.derefOnce(cur)
		if err != nil {
			return Result{}, err
		}
		if terminal {
			break
		}
		degraded = degraded || out.Degraded
		if out.kind != ResultValue {
			out.Degraded = degraded
			return out, nil
		}
		cur = out.val
	}
	return Result{kind: ResultValue, val: cur, Degraded: degraded}, nil
}

// derefOnce applies one unwrap. terminal reports that no rule applies, so
// the input is already fully resolved.
func (e *Engine) derefOnce(cur host.Value) (Result, bool, error) {
	t := cur.Type()
	if t == nil {
		return Result{}, false, ErrTypeUnknown
	}

	if rule, ok := e.prof.Match(t.Name); ok {
		switch rule.Class {
		case profile.ClassUnique:
			out, err := e.derefUnique(cur)
			return out, false, err
		case profile.ClassShared:
			out, err := e.derefShared(cur)
			return out, false, err
		case profile.ClassOptional:
			out, err := e.derefOptional(cur, rule.Variant)
			return out, false, err
		case profile.ClassString:
			out, err := e.derefString(cur, rule.Variant)
			return out, false, err
		case profile.ClassError:
			out, err := e.derefErrorBox(cur)
			return out, false, err
		case profile.ClassExpected:
			out, err := e.derefExpected(cur)
			return out, false, err
		}
		return Result{}, true, nil
	}

	switch t.Kind {
	case host.KindArray:
		if t.Target != nil && t.Target.Kind == host.KindChar {
			buf, err := cur.Bytes()
			if err != nil {
				return Result{}, false, err
			}
			if i := bytes.IndexByte(buf, 0); i >= 0 {
				buf = buf[:i]
			}
			return textResult(string(buf)), false, nil
		}
	case host.KindPointer:
		if t.Target != nil && t.Target.Kind == host.KindChar {
			addr, err := cur.Uint()
			if err != nil {
				return Result{}, false, err
			}
			s, err := host.CStringAt(cur.Process(), addr)
			if err != nil {
				return Result{}, false, err
			}
			return textResult(s), false, nil
		}
		pv, err := cur.Deref()
		if err != nil {
			return Result{}, false, err
		}
		return valueResult(pv), false, nil
	}
	return Result{}, true, nil
}

var uniquePtrDisplay = regexp.MustCompile(`[{]\s*get\(\)\s*=\s*(0x[0-9a-fA-F]+)[^0-9a-fA-F]`)

func (e *Engine) derefUnique(cur host.Value) (Result, error) {
	head, err := cur.Path("_M_t", "_M_t", "_M_head_impl")
	if err == nil {
		pv, derr := head.Deref()
		if derr != nil {
			return Result{}, derr
		}
		return valueResult(pv), nil
	}
	return e.derefUniqueFallback(cur, err)
}

// derefUniqueFallback recovers the held pointer by parsing a hexadecimal
// address out of the host's display text. Best effort only: it activates
// when the structured layout probe failed and is reported as degraded.
func (e *Engine) derefUniqueFallback(cur host.Value, cause error) (Result, error) {
	t := cur.Type()
	f, ok := cur.Process().(host.Formatter)
	if !ok {
		return Result{}, layoutErr(t.Name, cause)
	}
	display, err := f.Format(cur)
	if err != nil {
		return Result{}, layoutErr(t.Name, cause)
	}
	m := uniquePtrDisplay.FindStringSubmatch(display)
	if m == nil {
		log.Warningf("display text of %s holds no pointer", t.Name)
		return Result{}, layoutErr(t.Name, cause)
	}
	addr, perr := strconv.ParseUint(m[1], 0, 64)
	if perr != nil {
		return Result{}, layoutErr(t.Name, cause)
	}
	payloadT, terr := t.TemplateType(0)
	if terr != nil {
		return Result{}, layoutErr(t.Name, terr)
	}
	log.Warningf("recovered %s through its display text", t.Name)
	out := valueResult(host.NewValue(cur.Process(), payloadT, addr))
	out.Degraded = true
	return out, nil
}

func (e *Engine) derefShared(cur host.Value) (Result, error) {
	ptr, err := cur.Field("_M_ptr")
	if err != nil {
		return Result{}, layoutErr(typeName(cur), err)
	}
	pv, err := ptr.Deref()
	if err != nil {
		return Result{}, err
	}
	return valueResult(pv), nil
}

func (e *Engine) derefOptional(cur host.Value, variant string) (Result, error) {
	t := cur.Type()
	switch variant {
	case "std":
		payload, err := cur.Field("_M_payload")
		if err != nil {
			return Result{}, layoutErr(t.Name, err)
		}
		engaged, err := fieldBool(payload, "_M_engaged")
		if err != nil {
			return Result{}, layoutErr(t.Name, err)
		}
		if !engaged {
			e.note("empty optional")
			return Result{}, nil
		}
		inner, err := payload.Path("_M_payload", "_M_value")
		if err != nil {
			return Result{}, layoutErr(t.Name, err)
		}
		return valueResult(inner), nil

	case "llvm":
		storage, err := cur.Field("Storage")
		if err != nil {
			return Result{}, layoutErr(t.Name, err)
		}
		engaged, err := fieldBool(storage, "hasVal")
		if err != nil {
			return Result{}, layoutErr(t.Name, err)
		}
		if !engaged {
			e.note("empty optional")
			return Result{}, nil
		}
		inner, err := storage.Field("val")
		if errors.Is(err, host.ErrFieldMissing) {
			// vendor-renamed equivalent of the same slot
			inner, err = storage.Field("value")
		}
		if err != nil {
			return Result{}, layoutErr(t.Name, err)
		}
		return valueResult(inner), nil
	}
	return Result{}, layoutErr(t.Name, nil)
}

func (e *Engine) derefString(cur host.Value, variant string) (Result, error) {
	t := cur.Type()
	var dataField, lenField string
	switch variant {
	case "view":
		dataField, lenField = "_M_str", "_M_len"
	case "ref":
		dataField, lenField = "Data", "Length"
	case "small":
		dataField, lenField = "BeginX", "Size"
	case "gnu":
		dp, err := cur.Field("_M_dataplus")
		if err != nil {
			return Result{}, layoutErr(t.Name, err)
		}
		data, err := fieldUint(dp, "_M_p")
		if err != nil {
			return Result{}, layoutErr(t.Name, err)
		}
		length, err := fieldUint(cur, "_M_string_length")
		if err != nil {
			return Result{}, layoutErr(t.Name, err)
		}
		return materializeText(cur.Process(), data, length)
	default:
		return Result{}, layoutErr(t.Name, nil)
	}
	data, err := fieldUint(cur, dataField)
	if err != nil {
		return Result{}, layoutErr(t.Name, err)
	}
	length, err := fieldUint(cur, lenField)
	if err != nil {
		return Result{}, layoutErr(t.Name, err)
	}
	return materializeText(cur.Process(), data, length)
}

func materializeText(proc host.Process, addr, length uint64) (Result, error) {
	s, err := host.StringAt(proc, addr, length)
	if err != nil {
		return Result{}, err
	}
	return textResult(s), nil
}

func (e *Engine) derefErrorBox(cur host.Value) (Result, error) {
	payload, err := cur.Field("Payload")
	if err != nil {
		return Result{}, layoutErr(typeName(cur), err)
	}
	addr, err := payload.Uint()
	if err != nil {
		return Result{}, err
	}
	if addr == 0 {
		e.note("error box holds success")
		return Result{}, nil
	}
	e.note("error box holds an error")
	pv, err := payload.Deref()
	if err != nil {
		return Result{}, err
	}
	return valueResult(pv), nil
}

func (e *Engine) derefExpected(cur host.Value) (Result, error) {
	t := cur.Type()
	hasErr, err := fieldBool(cur, "HasError")
	if err != nil {
		return Result{}, layoutErr(t.Name, err)
	}
	if !hasErr {
		e.note("expected box holds a value")
		payloadT, terr := t.TemplateType(0)
		if terr != nil {
			return Result{}, layoutErr(t.Name, terr)
		}
		storage, serr := cur.Field("TStorage")
		if serr != nil {
			return Result{}, layoutErr(t.Name, serr)
		}
		return valueResult(host.NewValue(cur.Process(), payloadT, storage.Addr())), nil
	}
	e.note("expected box holds an error")
	storage, serr := cur.Field("ErrorStorage")
	if serr != nil {
		return Result{}, layoutErr(t.Name, serr)
	}
	box, berr := storage.Type().TemplateType(0)
	if berr != nil {
		return Result{}, layoutErr(t.Name, berr)
	}
	errT, eerr := box.TemplateType(0)
	if eerr != nil {
		return Result{}, layoutErr(t.Name, eerr)
	}
	return valueResult(host.NewValue(cur.Process(), errT, storage.Addr())), nil
}

func fieldBool(v host.Value, name string) (bool, error) {
	f, err := v.Field(name)
	if err != nil {
		return false, err
	}
	return f.Bool()
}

func (e *Engine) note(msg string) {
	if e.verbose {
		log.Info(msg)
	}
}
