package decode

import (
	"iter"

	"github.com/undebug/memview/host"
)

// dequeBlockLen is how many elements one fixed-capacity block holds:
// 512 bytes worth, minimum one.
func dequeBlockLen(elemSize uint64) uint64 {
	if elemSize < 512 {
		return 512 / elemSize
	}
	return 1
}

// dequeSeq walks the block-bucketed deque: a cursor of (block slot,
// in-block pointer, block end) advanced element by element, hopping to the
// next block's first slot at each block end. The span between the start
// and finish block slots bounds the hops, so torn cursors fail instead of
// walking off the block map.
func (e *Engine) dequeSeq(v host.Value) iter.Seq2[host.Value, error] {
	return func(yield func(host.Value, error) bool) {
		t := v.Type()
		proc := v.Process()

		elem, err := t.TemplateType(0)
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		if elem.Size == 0 {
			yield(host.Value{}, layoutErr(t.Name, host.ErrScalarSize))
			return
		}
		blockBytes := dequeBlockLen(elem.Size) * elem.Size

		impl, err := v.Field("_M_impl")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		start, err := impl.Field("_M_start")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		finish, err := impl.Field("_M_finish")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}

		cur, err := fieldUint(start, "_M_cur")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		last, err := fieldUint(finish, "_M_cur")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		blockEnd, err := fieldUint(start, "_M_last")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		nodeSlot, err := fieldUint(start, "_M_node")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		finishSlot, err := fieldUint(finish, "_M_node")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}

		ptrSize := proc.PointerSize()
		hops, maxHops := uint64(0), (finishSlot-nodeSlot)/ptrSize

		for cur != last {
			if !yield(host.NewValue(proc, elem, cur), nil) {
				return
			}
			cur += elem.Size
			if cur == blockEnd {
				hops++
				if hops > maxHops {
					yield(host.Value{}, &UnsupportedLayoutError{
						TypeName: t.Name,
						Detail:   "cursor ran past the block map",
					})
					return
				}
				nodeSlot += ptrSize
				cur, err = host.PointerAt(proc, nodeSlot)
				if err != nil {
					yield(host.Value{}, layoutErr(t.Name, err))
					return
				}
				blockEnd = cur + blockBytes
			}
		}
	}
}
