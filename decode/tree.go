package decode

import (
	"iter"
	"strings"

	"github.com/undebug/memview/host"
)

// The balanced-tree families (std::set, std::map) share one on-disk shape:
// a header record carrying the node count and the leftmost node, and nodes
// linked through parent/left/right base pointers with the payload stored
// either as a direct member (old ABI) or inside an aligned byte buffer
// (current ABI).

func treeImpl(v host.Value) (host.Value, error) {
	return v.Path("_M_t", "_M_impl")
}

func treeNodeCount(v host.Value) (uint64, error) {
	impl, err := treeImpl(v)
	if err != nil {
		return 0, err
	}
	return fieldUint(impl, "_M_node_count")
}

// treeValueTypeName reconstructs the node payload type name: the element
// type for sets, the const-keyed pair for maps.
func treeValueTypeName(t *host.Type, isMap bool) (string, error) {
	if isMap {
		k, err := t.TemplateType(0)
		if err != nil {
			return "", err
		}
		v, err := t.TemplateType(1)
		if err != nil {
			return "", err
		}
		return "std::pair<const " + k.Name + ", " + v.Name + ">", nil
	}
	elem, err := t.TemplateType(0)
	if err != nil {
		return "", err
	}
	return elem.Name, nil
}

// lookupNodeType resolves the concrete tree node specialization, retrying
// inside the versioned inline namespace when the plain name is absent.
func (e *Engine) lookupNodeType(p host.Process, name string) (*host.Type, error) {
	t, err := p.LookupType(name)
	if err == nil {
		return t, nil
	}
	if ns := e.prof.VersionedNamespace; ns != "" && !strings.Contains(name, ns) {
		if t, verr := p.LookupType(strings.Replace(name, "::", "::"+ns, 1)); verr == nil {
			return t, nil
		}
	}
	return nil, err
}

type treeCursor struct {
	proc     host.Process
	baseType *host.Type // node base record: parent/left/right pointers
	addr     uint64     // current node
}

func (c *treeCursor) link(name string) (uint64, error) {
	return fieldUint(host.NewValue(c.proc, c.baseType, c.addr), name)
}

// next steps to the in-order successor: descend to the right child's
// leftmost descendant, or ascend while the node is its parent's right
// child. The caller bounds the walk by the node count, so the root's
// header linkage never needs to terminate it.
func (c *treeCursor) next() error {
	right, err := c.link("_M_right")
	if err != nil {
		return err
	}
	if right != 0 {
		c.addr = right
		for {
			left, err := c.link("_M_left")
			if err != nil {
				return err
			}
			if left == 0 {
				return nil
			}
			c.addr = left
		}
	}
	parent, err := c.link("_M_parent")
	if err != nil {
		return err
	}
	for {
		pr, err := fieldUint(host.NewValue(c.proc, c.baseType, parent), "_M_right")
		if err != nil {
			return err
		}
		if c.addr != pr {
			break
		}
		c.addr = parent
		parent, err = fieldUint(host.NewValue(c.proc, c.baseType, parent), "_M_parent")
		if err != nil {
			return err
		}
	}
	right, err = c.link("_M_right")
	if err != nil {
		return err
	}
	if right != parent {
		c.addr = parent
	}
	return nil
}

// treeNodeValue extracts a node's payload, probing the two historical
// layouts: a direct value member, or an aligned byte buffer that must be
// address-cast to the payload type.
func treeNodeValue(proc host.Process, nodeType *host.Type, addr uint64) (host.Value, error) {
	node := host.NewValue(proc, nodeType, addr)
	if nodeType.HasField("_M_value_field") {
		return node.Field("_M_value_field")
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
		// the membuf wraps its byte array in a second _M_storage member
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

func (e *Engine) treeWalk(v host.Value, isMap bool) iter.Seq2[host.Value, error] {
	return func(yield func(host.Value, error) bool) {
		t := v.Type()
		proc := v.Process()

		valName, err := treeValueTypeName(t, isMap)
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		nodeType, err := e.lookupNodeType(proc, "std::_Rb_tree_node<"+valName+">")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}

		impl, err := treeImpl(v)
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		size, err := fieldUint(impl, "_M_node_count")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		header, err := impl.Field("_M_header")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}
		leftmost, err := fieldUint(header, "_M_left")
		if err != nil {
			yield(host.Value{}, layoutErr(t.Name, err))
			return
		}

		cur := treeCursor{proc: proc, baseType: header.Type(), addr: leftmost}
		// the count is the iteration bound: even a corrupted tree cannot
		// loop forever.
		for count := uint64(0); count < size; count++ {
			payload, err := treeNodeValue(proc, nodeType, cur.addr)
			if err != nil {
				yield(host.Value{}, err)
				return
			}
			if !yield(payload, nil) {
				return
			}
			if count+1 < size {
				if err := cur.next(); err != nil {
					yield(host.Value{}, layoutErr(t.Name, err))
					return
				}
			}
		}
	}
}

func (e *Engine) treeSeq(v host.Value) iter.Seq2[host.Value, error] {
	return e.treeWalk(v, false)
}

// treeEntries re-exposes each pair payload as key/value.
func (e *Engine) treeEntries(v host.Value) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for pair, err := range e.treeWalk(v, true) {
			if err != nil {
				yield(Entry{}, err)
				return
			}
			first, ferr := pair.Field("first")
			if ferr != nil {
				yield(Entry{}, layoutErr(typeName(pair), ferr))
				return
			}
			second, serr := pair.Field("second")
			if serr != nil {
				yield(Entry{}, layoutErr(typeName(pair), serr))
				return
			}
			if !yield(Entry{Key: ValueKey(first), Value: second}, nil) {
				return
			}
		}
	}
}
