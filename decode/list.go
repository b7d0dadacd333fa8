package decode

import (
	"iter"

	"github.com/undebug/memview/host"
)

// listNodeValue extracts a node payload: a direct data member (old ABI) or
// an aligned byte buffer (current ABI).
func listNodeValue(proc host.Process, nodeType *host.Type, addr uint64) (host.Value, error) {
	node := host.NewValue(proc, nodeType, addr)
	if nodeType.HasField("_M_data") {
		return node.Field("_M_data")
	}
	if nodeType.HasField("_M_storage") {
		payloadT, err := nodeType.TemplateType(0)
		if err != nil {
			return host.Value{}, layoutErr(nodeType.Name, err)
		}
		storage, err := node.Field("_M_storage")
		if err != nil {
			return host.Value{}, layoutErr(nodeType.Name, err)
		}
		if storage.Type().HasField("_M_storage") {
			storage, err = storage.Field("_M_storage")
			if err != nil {
				return host.Value{}, layoutErr(nodeType.Name, err)
			}
		}
		return host.NewValue(proc, payloadT, storage.Addr()), nil
	}
	return host.Value{}, layoutErr(nodeType.Name, nil)
}

// listSeq walks the circular sentinel-headed list: follow next pointers
// from the head until the head's own address comes back around.
func (e *Engine) listSeq(v host.Value) iter.Seq2[host.Value, error] {
	return func(yield func(host.Value, error) bool) {
		t := v.Type()
		proc := v.Process()

		elem, err := t.TemplateType(0)
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		nodeType, err := e.lookupNodeType(proc, "std::_List_node<"+elem.Name+">")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}

		head, err := v.Path("_M_impl", "_M_node")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		next, err := fieldUint(head, "_M_next")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}

		for next != head.Addr() {
			payload, perr := listNodeValue(proc, nodeType, next)
			if perr != nil {
				yield(host.Value{}, perr)
				return
			}
			next, err = fieldUint(host.NewValue(proc, nodeType, next), "_M_next")
			if err != nil {
				yield(host.Value{}, layoutErr(t.Name, err))
				return
			}
			if !yield(payload, nil) {
				return
			}
		}
	}
}
