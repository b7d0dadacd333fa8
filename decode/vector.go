package decode

import (
	"iter"

	"github.com/undebug/memview/host"
)

// sliceOf resolves a contiguous-buffer family down to its element base
// address, element type and length. All five families index the same way
// once reduced to this form.
func (e *Engine) sliceOf(v host.Value, variant Variant) (base uint64, elem *host.Type, n int64, err error) {
	t := v.Type()
	switch variant {
	case VariantVector:
		// start/finish pointers inside the _M_impl record; length is the
		// pointer difference in element units.
		elem, err = t.TemplateType(0)
		if err != nil {
			return 0, nil, 0, layoutErr(t.Name, err)
		}
		impl, ferr := v.Field("_M_impl")
		if ferr != nil {
			return 0, nil, 0, layoutErr(t.Name, ferr)
		}
		start, serr := fieldUint(impl, "_M_start")
		if serr != nil {
			return 0, nil, 0, layoutErr(t.Name, serr)
		}
		finish, ferr2 := fieldUint(impl, "_M_finish")
		if ferr2 != nil {
			return 0, nil, 0, layoutErr(t.Name, ferr2)
		}
		if elem.Size == 0 {
			return 0, nil, 0, layoutErr(t.Name, host.ErrScalarSize)
		}
		if finish < start {
			return 0, nil, 0, &UnsupportedLayoutError{
				TypeName: t.Name,
				Detail:   "finish pointer behind start",
			}
		}
		return start, elem, int64((finish - start) / elem.Size), nil

	case VariantSmallVector:
		// the begin pointer is an untyped buffer pointer; the element type
		// comes from the first template argument, the length from an
		// explicit count (not the capacity).
		elem, err = t.TemplateType(0)
		if err != nil {
			return 0, nil, 0, layoutErr(t.Name, err)
		}
		begin, berr := fieldUint(v, "BeginX")
		if berr != nil {
			return 0, nil, 0, layoutErr(t.Name, berr)
		}
		size, serr := fieldUint(v, "Size")
		if serr != nil {
			return 0, nil, 0, layoutErr(t.Name, serr)
		}
		return begin, elem, int64(size), nil

	case VariantView:
		elem, err = t.TemplateType(0)
		if err != nil {
			return 0, nil, 0, layoutErr(t.Name, err)
		}
		data, derr := fieldUint(v, "Data")
		if derr != nil {
			return 0, nil, 0, layoutErr(t.Name, derr)
		}
		length, lerr := fieldUint(v, "Length")
		if lerr != nil {
			return 0, nil, 0, layoutErr(t.Name, lerr)
		}
		return data, elem, int64(length), nil

	case VariantStdArray:
		elem, err = t.TemplateType(0)
		if err != nil {
			return 0, nil, 0, layoutErr(t.Name, err)
		}
		count, cerr := t.TemplateConst(1)
		if cerr != nil {
			return 0, nil, 0, layoutErr(t.Name, cerr)
		}
		elems, eerr := v.Field("_M_elems")
		if eerr != nil {
			return 0, nil, 0, layoutErr(t.Name, eerr)
		}
		return elems.Addr(), elem, int64(count), nil

	case VariantCArray:
		if t.Target == nil {
			return 0, nil, 0, layoutErr(t.Name, host.ErrNotIndexable)
		}
		return v.Addr(), t.Target, int64(t.Len), nil
	}
	return 0, nil, 0, &UnsupportedTypeError{TypeName: t.Name}
}

// fieldUint reads a scalar/pointer member by name.
func fieldUint(v host.Value, name string) (uint64, error) {
	f, err := v.Field(name)
	if err != nil {
		return 0, err
	}
	return f.Uint()
}

func (e *Engine) contiguousSeq(v host.Value, variant Variant) iter.Seq2[host.Value, error] {
	return func(yield func(host.Value, error) bool) {
		base, elem, n, err := e.sliceOf(v, variant)
		if err != nil {
			yield(host.Value{}, err)
			return
		}
		for i := int64(0); i < n; i++ {
			ev := host.NewValue(v.Process(), elem, base+uint64(i)*elem.Size)
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// smallSetSeq handles the hybrid small-set: a tree once grown, an inline
// vector while small. The tree's node count picks the live representation.
func (e *Engine) smallSetSeq(v host.Value) iter.Seq2[host.Value, error] {
	return func(yield func(host.Value, error) bool) {
		set, err := v.Field("Set")
		if err != nil {
			yield(host.Value{}, layoutErr(typeName(v), err))
			return
		}
		count, err := treeNodeCount(set)
		if err != nil {
			yield(host.Value{}, layoutErr(typeName(v), err))
			return
		}
		var inner iter.Seq2[host.Value, error]
		if count > 0 {
			inner = e.treeSeq(set)
		} else {
			vec, verr := v.Field("Vector")
			if verr != nil {
				yield(host.Value{}, layoutErr(typeName(v), verr))
				return
			}
			inner = e.contiguousSeq(vec, VariantSmallVector)
		}
		for elem, err := range inner {
			if !yield(elem, err) {
				return
			}
		}
	}
}
