package memimage

import (
	"fmt"

	"github.com/undebug/memview/host"
)

// Container builders. Each lays out one container family byte for byte the
// way the inspected runtimes do, registering the type descriptors the
// decoders navigate. Values passed as payloads are either Go values with
// the element's exact size, Go strings (materialized per the element
// type), or previously built host.Values (copied in place).

// Object allocates a value of t and writes val into it.
func (img *Image) Object(t *host.Type, val any) host.Value {
	addr := img.Alloc(t.Size, t.Align)
	img.emplace(t, addr, val)
	return host.NewValue(img, t, addr)
}

func (img *Image) emplace(t *host.Type, addr uint64, val any) {
	switch v := val.(type) {
	case nil:
	case host.Value:
		b, err := v.Bytes()
		if err != nil {
			panic("memimage: emplace from unreadable value")
		}
		img.WriteBytes(addr, b)
	case string:
		if t != nil && t == img.types["std::string"] {
			img.emplaceString(addr, v)
			return
		}
		img.WriteBytes(addr, []byte(v))
	default:
		img.Write(addr, val)
	}
}

// --- strings ---

func (img *Image) StringType() *host.Type {
	if t, ok := img.types["std::string"]; ok {
		return t
	}
	charPtr := host.PointerTo(img.Type("char"), ptrSize)
	hider := img.Register(&host.Type{
		Kind: host.KindStruct, Name: "std::string::_Alloc_hider", Size: 8, Align: 8,
		Fields: []host.Field{{Name: "_M_p", Offset: 0, Type: charPtr}},
	})
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: "std::string", Size: 32, Align: 8,
		Fields: []host.Field{
			{Name: "_M_dataplus", Offset: 0, Type: hider},
			{Name: "_M_string_length", Offset: 8, Type: img.Type("size_t")},
		},
		Template: []host.TemplateArg{{Type: img.Type("char")}},
	})
}

func (img *Image) emplaceString(addr uint64, s string) {
	data := img.Alloc(uint64(len(s))+1, 1)
	if len(s) > 0 {
		img.WriteBytes(data, []byte(s))
	}
	img.WritePointer(addr, data)
	img.WriteUint(addr+8, 8, uint64(len(s)))
}

func (img *Image) StdString(s string) host.Value {
	t := img.StringType()
	addr := img.Alloc(t.Size, t.Align)
	img.emplaceString(addr, s)
	return host.NewValue(img, t, addr)
}

func (img *Image) StringView(s string) host.Value {
	t, ok := img.types["std::string_view"]
	if !ok {
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: "std::string_view", Size: 16, Align: 8,
			Fields: []host.Field{
				{Name: "_M_len", Offset: 0, Type: img.Type("size_t")},
				{Name: "_M_str", Offset: 8, Type: host.PointerTo(img.Type("char"), ptrSize)},
			},
		})
	}
	data := img.Alloc(uint64(len(s)), 1)
	img.WriteBytes(data, []byte(s))
	addr := img.Alloc(t.Size, t.Align)
	img.WriteUint(addr, 8, uint64(len(s)))
	img.WritePointer(addr+8, data)
	return host.NewValue(img, t, addr)
}

func (img *Image) StringRef(s string) host.Value {
	t, ok := img.types["llvm::StringRef"]
	if !ok {
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: "llvm::StringRef", Size: 16, Align: 8,
			Fields: []host.Field{
				{Name: "Data", Offset: 0, Type: host.PointerTo(img.Type("char"), ptrSize)},
				{Name: "Length", Offset: 8, Type: img.Type("size_t")},
			},
		})
	}
	data := img.Alloc(uint64(len(s)), 1)
	img.WriteBytes(data, []byte(s))
	addr := img.Alloc(t.Size, t.Align)
	img.WritePointer(addr, data)
	img.WriteUint(addr+8, 8, uint64(len(s)))
	return host.NewValue(img, t, addr)
}

func (img *Image) SmallString(s string) host.Value {
	name := "llvm::SmallString<16>"
	t, ok := img.types[name]
	if !ok {
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: 16, Align: 8,
			Fields: []host.Field{
				{Name: "BeginX", Offset: 0, Type: host.PointerTo(img.Type("void"), ptrSize)},
				{Name: "Size", Offset: 8, Type: img.Type("unsigned int")},
				{Name: "Capacity", Offset: 12, Type: img.Type("unsigned int")},
			},
		})
	}
	data := img.Alloc(uint64(len(s)), 1)
	img.WriteBytes(data, []byte(s))
	addr := img.Alloc(t.Size, t.Align)
	img.WritePointer(addr, data)
	img.WriteUint(addr+8, 4, uint64(len(s)))
	img.WriteUint(addr+12, 4, uint64(len(s)))
	return host.NewValue(img, t, addr)
}

// CharArray lays out text as a NUL-terminated fixed-size char array.
func (img *Image) CharArray(s string) host.Value {
	t := host.ArrayOf(img.Type("char"), uint64(len(s))+1)
	addr := img.Alloc(t.Size, 1)
	img.WriteBytes(addr, []byte(s))
	return host.NewValue(img, t, addr)
}

// CString allocates text and returns a char* pointing at it.
func (img *Image) CString(s string) host.Value {
	data := img.Alloc(uint64(len(s))+1, 1)
	img.WriteBytes(data, []byte(s))
	t := host.PointerTo(img.Type("char"), ptrSize)
	addr := img.Alloc(ptrSize, ptrSize)
	img.WritePointer(addr, data)
	return host.NewValue(img, t, addr)
}

// Ptr allocates a raw pointer to an existing value.
func (img *Image) Ptr(pointee host.Value) host.Value {
	t := host.PointerTo(pointee.Type(), ptrSize)
	addr := img.Alloc(ptrSize, ptrSize)
	img.WritePointer(addr, pointee.Addr())
	return host.NewValue(img, t, addr)
}

// --- contiguous sequences ---

func (img *Image) vectorType(elem *host.Type) *host.Type {
	name := "std::vector<" + elem.Name + ">"
	if t, ok := img.types[name]; ok {
		return t
	}
	elemPtr := host.PointerTo(elem, ptrSize)
	impl := img.Register(&host.Type{
		Kind: host.KindStruct, Name: name + "::_Vector_impl", Size: 24, Align: 8,
		Fields: []host.Field{
			{Name: "_M_start", Offset: 0, Type: elemPtr},
			{Name: "_M_finish", Offset: 8, Type: elemPtr},
			{Name: "_M_end_of_storage", Offset: 16, Type: elemPtr},
		},
	})
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: 24, Align: 8,
		Fields:   []host.Field{{Name: "_M_impl", Offset: 0, Type: impl}},
		Template: []host.TemplateArg{{Type: elem}},
	})
}

func (img *Image) Vector(elem *host.Type, vals ...any) host.Value {
	data := img.Alloc(uint64(len(vals))*elem.Size, max(elem.Align, 1))
	for i, val := range vals {
		img.emplace(elem, data+uint64(i)*elem.Size, val)
	}
	t := img.vectorType(elem)
	addr := img.Alloc(t.Size, t.Align)
	end := data + uint64(len(vals))*elem.Size
	img.WritePointer(addr, data)
	img.WritePointer(addr+8, end)
	img.WritePointer(addr+16, end)
	return host.NewValue(img, t, addr)
}

func (img *Image) smallVectorType(elem *host.Type, inlineN uint64) *host.Type {
	name := fmt.Sprintf("llvm::SmallVector<%s, %d>", elem.Name, inlineN)
	if t, ok := img.types[name]; ok {
		return t
	}
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: 16, Align: 8,
		Fields: []host.Field{
			{Name: "BeginX", Offset: 0, Type: host.PointerTo(img.Type("void"), ptrSize)},
			{Name: "Size", Offset: 8, Type: img.Type("unsigned int")},
			{Name: "Capacity", Offset: 12, Type: img.Type("unsigned int")},
		},
		Template: []host.TemplateArg{{Type: elem}, {Const: inlineN}},
	})
}

func (img *Image) buildSmallVector(addr uint64, elem *host.Type, vals []any) {
	data := img.Alloc(uint64(len(vals))*elem.Size, max(elem.Align, 1))
	for i, val := range vals {
		img.emplace(elem, data+uint64(i)*elem.Size, val)
	}
	img.WritePointer(addr, data)
	img.WriteUint(addr+8, 4, uint64(len(vals)))
	img.WriteUint(addr+12, 4, uint64(len(vals)))
}

func (img *Image) SmallVector(elem *host.Type, vals ...any) host.Value {
	t := img.smallVectorType(elem, 4)
	addr := img.Alloc(t.Size, t.Align)
	img.buildSmallVector(addr, elem, vals)
	return host.NewValue(img, t, addr)
}

func (img *Image) ArrayRef(elem *host.Type, vals ...any) host.Value {
	name := "llvm::ArrayRef<" + elem.Name + ">"
	t, ok := img.types[name]
	if !ok {
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: 16, Align: 8,
			Fields: []host.Field{
				{Name: "Data", Offset: 0, Type: host.PointerTo(elem, ptrSize)},
				{Name: "Length", Offset: 8, Type: img.Type("size_t")},
			},
			Template: []host.TemplateArg{{Type: elem}},
		})
	}
	data := img.Alloc(uint64(len(vals))*elem.Size, max(elem.Align, 1))
	for i, val := range vals {
		img.emplace(elem, data+uint64(i)*elem.Size, val)
	}
	addr := img.Alloc(t.Size, t.Align)
	img.WritePointer(addr, data)
	img.WriteUint(addr+8, 8, uint64(len(vals)))
	return host.NewValue(img, t, addr)
}

func (img *Image) StdArray(elem *host.Type, vals ...any) host.Value {
	n := uint64(len(vals))
	name := fmt.Sprintf("std::array<%s, %d>", elem.Name, n)
	t, ok := img.types[name]
	if !ok {
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: n * elem.Size, Align: elem.Align,
			Fields:   []host.Field{{Name: "_M_elems", Offset: 0, Type: host.ArrayOf(elem, n)}},
			Template: []host.TemplateArg{{Type: elem}, {Const: n}},
		})
	}
	addr := img.Alloc(t.Size, max(t.Align, 1))
	for i, val := range vals {
		img.emplace(elem, addr+uint64(i)*elem.Size, val)
	}
	return host.NewValue(img, t, addr)
}

func (img *Image) CArray(elem *host.Type, vals ...any) host.Value {
	t := host.ArrayOf(elem, uint64(len(vals)))
	addr := img.Alloc(t.Size, max(elem.Align, 1))
	for i, val := range vals {
		img.emplace(elem, addr+uint64(i)*elem.Size, val)
	}
	return host.NewValue(img, t, addr)
}

// --- balanced trees ---

func (img *Image) rbNodeBase() *host.Type {
	name := "std::_Rb_tree_node_base"
	if t, ok := img.types[name]; ok {
		return t
	}
	t := &host.Type{Kind: host.KindStruct, Name: name, Size: 32, Align: 8}
	selfPtr := host.PointerTo(t, ptrSize)
	t.Fields = []host.Field{
		{Name: "_M_color", Offset: 0, Type: img.Type("int")},
		{Name: "_M_parent", Offset: 8, Type: selfPtr},
		{Name: "_M_left", Offset: 16, Type: selfPtr},
		{Name: "_M_right", Offset: 24, Type: selfPtr},
	}
	return img.Register(t)
}

const rbPayloadOffset = 32

func (img *Image) membufType(payload *host.Type) *host.Type {
	name := "__gnu_cxx::__aligned_membuf<" + payload.Name + ">"
	if t, ok := img.types[name]; ok {
		return t
	}
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: payload.Size, Align: payload.Align,
		Fields: []host.Field{{Name: "_M_storage", Offset: 0, Type: host.ArrayOf(img.Type("char"), payload.Size)}},
	})
}

func (img *Image) rbNode(payload *host.Type, legacy bool) *host.Type {
	name := "std::_Rb_tree_node<" + payload.Name + ">"
	if t, ok := img.types[name]; ok {
		return t
	}
	base := img.rbNodeBase()
	fields := append([]host.Field(nil), base.Fields...)
	if legacy {
		fields = append(fields, host.Field{Name: "_M_value_field", Offset: rbPayloadOffset, Type: payload})
	} else {
		fields = append(fields, host.Field{Name: "_M_storage", Offset: rbPayloadOffset, Type: img.membufType(payload)})
	}
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name,
		Size: rbPayloadOffset + payload.Size, Align: 8,
		Fields:   fields,
		Template: []host.TemplateArg{{Type: payload}},
	})
}

func (img *Image) treeType(name string, template []host.TemplateArg) *host.Type {
	if t, ok := img.types[name]; ok {
		return t
	}
	base := img.rbNodeBase()
	impl := img.Register(&host.Type{
		Kind: host.KindStruct, Name: name + "::_Rb_tree_impl", Size: 40, Align: 8,
		Fields: []host.Field{
			{Name: "_M_header", Offset: 0, Type: base},
			{Name: "_M_node_count", Offset: 32, Type: img.Type("size_t")},
		},
	})
	tree := img.Register(&host.Type{
		Kind: host.KindStruct, Name: name + "::_Rb_tree", Size: 40, Align: 8,
		Fields: []host.Field{{Name: "_M_impl", Offset: 0, Type: impl}},
	})
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: 40, Align: 8,
		Fields:   []host.Field{{Name: "_M_t", Offset: 0, Type: tree}},
		Template: template,
	})
}

// populateTree links n nodes as a right-leaning chain in payload order and
// fills in the header: a shape the in-order walk visits front to back.
func (img *Image) populateTree(addr uint64, nodeT *host.Type, n int, fill func(i int, payloadAddr uint64)) {
	headerAddr := addr
	img.WriteUint(addr+32, 8, uint64(n))
	if n == 0 {
		img.WritePointer(addr+16, headerAddr)
		return
	}
	nodes := make([]uint64, n)
	for i := range nodes {
		nodes[i] = img.Alloc(nodeT.Size, 8)
	}
	for i := range nodes {
		parent := headerAddr
		if i > 0 {
			parent = nodes[i-1]
		}
		img.WritePointer(nodes[i]+8, parent)
		if i+1 < n {
			img.WritePointer(nodes[i]+24, nodes[i+1])
		}
		fill(i, nodes[i]+rbPayloadOffset)
	}
	img.WritePointer(addr+8, nodes[0])
	img.WritePointer(addr+16, nodes[0])
	img.WritePointer(addr+24, nodes[n-1])
}

// populateBalancedTree links n nodes as a height-balanced search tree in
// payload order: subtree midpoints become parents, so an in-order walk
// climbs back through ancestors as well as descending into right children.
func (img *Image) populateBalancedTree(addr uint64, nodeT *host.Type, n int, fill func(i int, payloadAddr uint64)) {
	headerAddr := addr
	img.WriteUint(addr+32, 8, uint64(n))
	if n == 0 {
		img.WritePointer(addr+16, headerAddr)
		return
	}
	nodes := make([]uint64, n)
	for i := range nodes {
		nodes[i] = img.Alloc(nodeT.Size, 8)
		fill(i, nodes[i]+rbPayloadOffset)
	}
	var link func(lo, hi int, parent uint64) uint64
	link = func(lo, hi int, parent uint64) uint64 {
		if lo >= hi {
			return 0
		}
		mid := (lo + hi) / 2
		na := nodes[mid]
		img.WritePointer(na+8, parent)
		if l := link(lo, mid, na); l != 0 {
			img.WritePointer(na+16, l)
		}
		if r := link(mid+1, hi, na); r != 0 {
			img.WritePointer(na+24, r)
		}
		return na
	}
	img.WritePointer(addr+8, link(0, n, headerAddr))
	img.WritePointer(addr+16, nodes[0])
	img.WritePointer(addr+24, nodes[n-1])
}

// TreeSetBalanced builds a std::set whose nodes form a height-balanced
// tree rather than a chain. Values must be given in key order.
func (img *Image) TreeSetBalanced(elem *host.Type, vals ...any) host.Value {
	nodeT := img.rbNode(elem, false)
	t := img.treeType("std::set<"+elem.Name+">", []host.TemplateArg{{Type: elem}})
	addr := img.Alloc(t.Size, t.Align)
	img.populateBalancedTree(addr, nodeT, len(vals), func(i int, payloadAddr uint64) {
		img.emplace(elem, payloadAddr, vals[i])
	})
	return host.NewValue(img, t, addr)
}

// TreeMapBalanced is TreeMap over a height-balanced node shape.
func (img *Image) TreeMapBalanced(keyT, valT *host.Type, keys, vals []any) host.Value {
	if len(keys) != len(vals) {
		panic("memimage: key/value count mismatch")
	}
	pair := img.PairType(keyT, valT)
	nodeT := img.rbNode(pair, false)
	name := "std::map<" + keyT.Name + ", " + valT.Name + ">"
	t := img.treeType(name, []host.TemplateArg{{Type: keyT}, {Type: valT}})
	addr := img.Alloc(t.Size, t.Align)
	secondOff := pair.Fields[1].Offset
	img.populateBalancedTree(addr, nodeT, len(keys), func(i int, payloadAddr uint64) {
		img.emplace(keyT, payloadAddr, keys[i])
		img.emplace(valT, payloadAddr+secondOff, vals[i])
	})
	return host.NewValue(img, t, addr)
}

func (img *Image) treeSet(elem *host.Type, legacy bool, vals []any) host.Value {
	nodeT := img.rbNode(elem, legacy)
	t := img.treeType("std::set<"+elem.Name+">", []host.TemplateArg{{Type: elem}})
	addr := img.Alloc(t.Size, t.Align)
	img.populateTree(addr, nodeT, len(vals), func(i int, payloadAddr uint64) {
		img.emplace(elem, payloadAddr, vals[i])
	})
	return host.NewValue(img, t, addr)
}

// TreeSet builds a std::set with the current aligned-buffer node layout.
// Values must be given in key order; the builder links nodes as handed in.
func (img *Image) TreeSet(elem *host.Type, vals ...any) host.Value {
	return img.treeSet(elem, false, vals)
}

// TreeSetLegacy uses the old direct-member node layout.
func (img *Image) TreeSetLegacy(elem *host.Type, vals ...any) host.Value {
	return img.treeSet(elem, true, vals)
}

func (img *Image) PairType(k, v *host.Type) *host.Type {
	name := "std::pair<const " + k.Name + ", " + v.Name + ">"
	if t, ok := img.types[name]; ok {
		return t
	}
	secondOff := host.Align(k.Size, max(v.Align, 1))
	align := max(k.Align, v.Align, 1)
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name,
		Size: host.Align(secondOff+v.Size, align), Align: align,
		Fields: []host.Field{
			{Name: "first", Offset: 0, Type: k},
			{Name: "second", Offset: secondOff, Type: v},
		},
		Template: []host.TemplateArg{{Type: k}, {Type: v}},
	})
}

// TreeMap builds a std::map. Keys must be given in key order.
func (img *Image) TreeMap(keyT, valT *host.Type, keys, vals []any) host.Value {
	if len(keys) != len(vals) {
		panic("memimage: key/value count mismatch")
	}
	pair := img.PairType(keyT, valT)
	nodeT := img.rbNode(pair, false)
	name := "std::map<" + keyT.Name + ", " + valT.Name + ">"
	t := img.treeType(name, []host.TemplateArg{{Type: keyT}, {Type: valT}})
	addr := img.Alloc(t.Size, t.Align)
	secondOff := pair.Fields[1].Offset
	img.populateTree(addr, nodeT, len(keys), func(i int, payloadAddr uint64) {
		img.emplace(keyT, payloadAddr, keys[i])
		img.emplace(valT, payloadAddr+secondOff, vals[i])
	})
	return host.NewValue(img, t, addr)
}

// SmallSet builds the hybrid small-set. asTree selects the grown (tree)
// representation; otherwise elements live in the inline vector.
func (img *Image) SmallSet(elem *host.Type, asTree bool, vals ...any) host.Value {
	setT := img.treeType("std::set<"+elem.Name+">", []host.TemplateArg{{Type: elem}})
	vecT := img.smallVectorType(elem, 4)
	name := fmt.Sprintf("llvm::SmallSet<%s, 4>", elem.Name)
	t, ok := img.types[name]
	if !ok {
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: vecT.Size + setT.Size, Align: 8,
			Fields: []host.Field{
				{Name: "Vector", Offset: 0, Type: vecT},
				{Name: "Set", Offset: vecT.Size, Type: setT},
			},
			Template: []host.TemplateArg{{Type: elem}},
		})
	}
	addr := img.Alloc(t.Size, t.Align)
	setAddr := addr + vecT.Size
	if asTree {
		nodeT := img.rbNode(elem, false)
		img.populateTree(setAddr, nodeT, len(vals), func(i int, payloadAddr uint64) {
			img.emplace(elem, payloadAddr, vals[i])
		})
		img.buildSmallVector(addr, elem, nil)
	} else {
		img.populateTree(setAddr, img.rbNodeBase(), 0, nil)
		img.buildSmallVector(addr, elem, vals)
	}
	return host.NewValue(img, t, addr)
}

// --- linked list ---

func (img *Image) listNode(elem *host.Type, legacy bool) *host.Type {
	name := "std::_List_node<" + elem.Name + ">"
	if t, ok := img.types[name]; ok {
		return t
	}
	t := &host.Type{
		Kind: host.KindStruct, Name: name,
		Size: 16 + elem.Size, Align: 8,
		Template: []host.TemplateArg{{Type: elem}},
	}
	selfPtr := host.PointerTo(t, ptrSize)
	t.Fields = []host.Field{
		{Name: "_M_next", Offset: 0, Type: selfPtr},
		{Name: "_M_prev", Offset: 8, Type: selfPtr},
	}
	if legacy {
		t.Fields = append(t.Fields, host.Field{Name: "_M_data", Offset: 16, Type: elem})
	} else {
		t.Fields = append(t.Fields, host.Field{Name: "_M_storage", Offset: 16, Type: img.membufType(elem)})
	}
	return img.Register(t)
}

func (img *Image) list(elem *host.Type, legacy bool, vals []any) host.Value {
	nodeT := img.listNode(elem, legacy)
	name := "std::list<" + elem.Name + ">"
	t, ok := img.types[name]
	if !ok {
		base := img.Register(&host.Type{
			Kind: host.KindStruct, Name: "std::_List_node_base", Size: 16, Align: 8,
		})
		base.Fields = []host.Field{
			{Name: "_M_next", Offset: 0, Type: host.PointerTo(base, ptrSize)},
			{Name: "_M_prev", Offset: 8, Type: host.PointerTo(base, ptrSize)},
		}
		impl := img.Register(&host.Type{
			Kind: host.KindStruct, Name: name + "::_List_impl", Size: 16, Align: 8,
			Fields: []host.Field{{Name: "_M_node", Offset: 0, Type: base}},
		})
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: 16, Align: 8,
			Fields:   []host.Field{{Name: "_M_impl", Offset: 0, Type: impl}},
			Template: []host.TemplateArg{{Type: elem}},
		})
	}
	addr := img.Alloc(t.Size, t.Align)
	head := addr
	n := len(vals)
	if n == 0 {
		img.WritePointer(head, head)
		img.WritePointer(head+8, head)
		return host.NewValue(img, t, addr)
	}
	nodes := make([]uint64, n)
	for i := range nodes {
		nodes[i] = img.Alloc(nodeT.Size, 8)
	}
	img.WritePointer(head, nodes[0])
	img.WritePointer(head+8, nodes[n-1])
	for i := range nodes {
		next, prev := head, head
		if i+1 < n {
			next = nodes[i+1]
		}
		if i > 0 {
			prev = nodes[i-1]
		}
		img.WritePointer(nodes[i], next)
		img.WritePointer(nodes[i]+8, prev)
		img.emplace(elem, nodes[i]+16, vals[i])
	}
	return host.NewValue(img, t, addr)
}

func (img *Image) List(elem *host.Type, vals ...any) host.Value {
	return img.list(elem, false, vals)
}

func (img *Image) ListLegacy(elem *host.Type, vals ...any) host.Value {
	return img.list(elem, true, vals)
}

// --- block-bucketed deque ---

func (img *Image) dequeType(elem *host.Type) *host.Type {
	name := "std::deque<" + elem.Name + ">"
	if t, ok := img.types[name]; ok {
		return t
	}
	elemPtr := host.PointerTo(elem, ptrSize)
	mapPtr := host.PointerTo(elemPtr, ptrSize)
	iterT := img.Register(&host.Type{
		Kind: host.KindStruct, Name: "std::_Deque_iterator<" + elem.Name + ">", Size: 32, Align: 8,
		Fields: []host.Field{
			{Name: "_M_cur", Offset: 0, Type: elemPtr},
			{Name: "_M_first", Offset: 8, Type: elemPtr},
			{Name: "_M_last", Offset: 16, Type: elemPtr},
			{Name: "_M_node", Offset: 24, Type: mapPtr},
		},
	})
	impl := img.Register(&host.Type{
		Kind: host.KindStruct, Name: name + "::_Deque_impl", Size: 80, Align: 8,
		Fields: []host.Field{
			{Name: "_M_map", Offset: 0, Type: mapPtr},
			{Name: "_M_map_size", Offset: 8, Type: img.Type("size_t")},
			{Name: "_M_start", Offset: 16, Type: iterT},
			{Name: "_M_finish", Offset: 48, Type: iterT},
		},
	})
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: 80, Align: 8,
		Fields:   []host.Field{{Name: "_M_impl", Offset: 0, Type: impl}},
		Template: []host.TemplateArg{{Type: elem}},
	})
}

func (img *Image) buildDeque(addr uint64, elem *host.Type, vals []any) {
	blockLen := uint64(1)
	if elem.Size < 512 {
		blockLen = 512 / elem.Size
	}
	blockBytes := blockLen * elem.Size
	n := uint64(len(vals))
	nblocks := n/blockLen + 1

	mapAddr := img.Alloc(nblocks*ptrSize, ptrSize)
	blocks := make([]uint64, nblocks)
	for b := range blocks {
		blocks[b] = img.Alloc(blockBytes, max(elem.Align, 1))
		img.WritePointer(mapAddr+uint64(b)*ptrSize, blocks[b])
	}
	for i, val := range vals {
		b := uint64(i) / blockLen
		img.emplace(elem, blocks[b]+(uint64(i)%blockLen)*elem.Size, val)
	}

	fb := n / blockLen
	writeIter := func(at, cur, first, node uint64) {
		img.WritePointer(at, cur)
		img.WritePointer(at+8, first)
		img.WritePointer(at+16, first+blockBytes)
		img.WritePointer(at+24, node)
	}
	img.WritePointer(addr, mapAddr)
	img.WriteUint(addr+8, 8, nblocks)
	writeIter(addr+16, blocks[0], blocks[0], mapAddr)
	writeIter(addr+48, blocks[fb]+(n%blockLen)*elem.Size, blocks[fb], mapAddr+fb*ptrSize)
}

func (img *Image) Deque(elem *host.Type, vals ...any) host.Value {
	t := img.dequeType(elem)
	addr := img.Alloc(t.Size, t.Align)
	img.buildDeque(addr, elem, vals)
	return host.NewValue(img, t, addr)
}

func (img *Image) adapter(kind string, elem *host.Type, vals []any) host.Value {
	dq := img.dequeType(elem)
	name := "std::" + kind + "<" + elem.Name + ">"
	t, ok := img.types[name]
	if !ok {
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: dq.Size, Align: dq.Align,
			Fields:   []host.Field{{Name: "c", Offset: 0, Type: dq}},
			Template: []host.TemplateArg{{Type: elem}},
		})
	}
	addr := img.Alloc(t.Size, t.Align)
	img.buildDeque(addr, elem, vals)
	return host.NewValue(img, t, addr)
}

func (img *Image) Queue(elem *host.Type, vals ...any) host.Value {
	return img.adapter("queue", elem, vals)
}

func (img *Image) Stack(elem *host.Type, vals ...any) host.Value {
	return img.adapter("stack", elem, vals)
}

// --- hash string map ---

// stringMapTombstone matches the reserved pattern for 8-byte-aligned
// pointers.
const stringMapTombstone = ^uint64(7)

func (img *Image) entryBaseType() *host.Type {
	name := "llvm::StringMapEntryBase"
	if t, ok := img.types[name]; ok {
		return t
	}
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: 8, Align: 8,
		Fields: []host.Field{{Name: "keyLength", Offset: 0, Type: img.Type("size_t")}},
	})
}

// StringMap interleaves live entries with empty buckets and appends the
// requested number of tombstones.
func (img *Image) StringMap(valT *host.Type, keys []string, vals []any, tombstones int) host.Value {
	if len(keys) != len(vals) {
		panic("memimage: key/value count mismatch")
	}
	eb := img.entryBaseType()
	name := "llvm::StringMap<" + valT.Name + ">"
	t, ok := img.types[name]
	if !ok {
		voidPtr := host.PointerTo(img.Type("void"), ptrSize)
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: 16, Align: 8,
			Fields: []host.Field{
				{Name: "TheTable", Offset: 0, Type: host.PointerTo(voidPtr, ptrSize)},
				{Name: "NumBuckets", Offset: 8, Type: img.Type("unsigned int")},
			},
			Template: []host.TemplateArg{{Type: valT}},
		})
	}

	numBuckets := uint64(2*len(keys) + tombstones + 2)
	table := img.Alloc(numBuckets*ptrSize, ptrSize)
	addr := img.Alloc(t.Size, t.Align)
	img.WritePointer(addr, table)
	img.WriteUint(addr+8, 4, numBuckets)

	keySkip := max(valT.Size, eb.Align)
	for i, key := range keys {
		entry := img.Alloc(eb.Size+keySkip+uint64(len(key)), 8)
		img.WriteUint(entry, 8, uint64(len(key)))
		img.emplace(valT, entry+eb.Size, vals[i])
		img.WriteBytes(entry+eb.Size+keySkip, []byte(key))
		img.WritePointer(table+uint64(1+2*i)*ptrSize, entry)
	}
	for j := 0; j < tombstones; j++ {
		img.WriteUint(table+(numBuckets-1-uint64(j))*ptrSize, ptrSize, stringMapTombstone)
	}
	return host.NewValue(img, t, addr)
}

// --- optionals ---

func (img *Image) optionalType(elem *host.Type) *host.Type {
	name := "std::optional<" + elem.Name + ">"
	if t, ok := img.types[name]; ok {
		return t
	}
	storage := img.Register(&host.Type{
		Kind: host.KindStruct, Name: name + "::_Storage", Size: elem.Size, Align: elem.Align,
		Fields: []host.Field{{Name: "_M_value", Offset: 0, Type: elem}},
	})
	payload := img.Register(&host.Type{
		Kind: host.KindStruct, Name: name + "::_Optional_payload",
		Size: elem.Size + 1, Align: elem.Align,
		Fields: []host.Field{
			{Name: "_M_payload", Offset: 0, Type: storage},
			{Name: "_M_engaged", Offset: elem.Size, Type: img.Type("bool")},
		},
	})
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: elem.Size + 1, Align: elem.Align,
		Fields:   []host.Field{{Name: "_M_payload", Offset: 0, Type: payload}},
		Template: []host.TemplateArg{{Type: elem}},
	})
}

func (img *Image) Optional(elem *host.Type, val any) host.Value {
	t := img.optionalType(elem)
	addr := img.Alloc(t.Size, max(t.Align, 1))
	img.emplace(elem, addr, val)
	img.WriteUint(addr+elem.Size, 1, 1)
	return host.NewValue(img, t, addr)
}

func (img *Image) EmptyOptional(elem *host.Type) host.Value {
	t := img.optionalType(elem)
	addr := img.Alloc(t.Size, max(t.Align, 1))
	return host.NewValue(img, t, addr)
}

func (img *Image) llvmOptionalType(elem *host.Type, valField string) *host.Type {
	name := "llvm::Optional<" + elem.Name + ">"
	if t, ok := img.types[name]; ok {
		return t
	}
	storage := img.Register(&host.Type{
		Kind: host.KindStruct, Name: name + "::Storage", Size: elem.Size + 1, Align: elem.Align,
		Fields: []host.Field{
			{Name: valField, Offset: 0, Type: elem},
			{Name: "hasVal", Offset: elem.Size, Type: img.Type("bool")},
		},
	})
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: elem.Size + 1, Align: elem.Align,
		Fields:   []host.Field{{Name: "Storage", Offset: 0, Type: storage}},
		Template: []host.TemplateArg{{Type: elem}},
	})
}

// LLVMOptional lays out an llvm::Optional; renamed selects the variant
// whose payload member is called "value" instead of "val".
func (img *Image) LLVMOptional(elem *host.Type, val any, renamed bool) host.Value {
	field := "val"
	if renamed {
		field = "value"
	}
	t := img.llvmOptionalType(elem, field)
	addr := img.Alloc(t.Size, max(t.Align, 1))
	if val != nil {
		img.emplace(elem, addr, val)
		img.WriteUint(addr+elem.Size, 1, 1)
	}
	return host.NewValue(img, t, addr)
}

// --- owning pointers ---

func (img *Image) UniquePtr(pointee host.Value) host.Value {
	elem := pointee.Type()
	name := "std::unique_ptr<" + elem.Name + ">"
	t, ok := img.types[name]
	if !ok {
		elemPtr := host.PointerTo(elem, ptrSize)
		head := img.Register(&host.Type{
			Kind: host.KindStruct, Name: name + "::_Tuple_impl", Size: 8, Align: 8,
			Fields: []host.Field{{Name: "_M_head_impl", Offset: 0, Type: elemPtr}},
		})
		tuple := img.Register(&host.Type{
			Kind: host.KindStruct, Name: name + "::_Tuple", Size: 8, Align: 8,
			Fields: []host.Field{{Name: "_M_t", Offset: 0, Type: head}},
		})
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: 8, Align: 8,
			Fields:   []host.Field{{Name: "_M_t", Offset: 0, Type: tuple}},
			Template: []host.TemplateArg{{Type: elem}},
		})
	}
	addr := img.Alloc(t.Size, t.Align)
	img.WritePointer(addr, pointee.Addr())
	return host.NewValue(img, t, addr)
}

// UniquePtrOpaque registers a unique pointer whose internals are invisible
// (no member metadata), as stripped binaries present it. Only the display
// text exposes the held pointer.
func (img *Image) UniquePtrOpaque(pointee host.Value) host.Value {
	elem := pointee.Type()
	name := "std::unique_ptr<" + elem.Name + ">"
	t, ok := img.types[name]
	if !ok {
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: 8, Align: 8,
			Template: []host.TemplateArg{{Type: elem}},
		})
	}
	addr := img.Alloc(t.Size, t.Align)
	img.WritePointer(addr, pointee.Addr())
	return host.NewValue(img, t, addr)
}

func (img *Image) SharedPtr(pointee host.Value) host.Value {
	elem := pointee.Type()
	name := "std::shared_ptr<" + elem.Name + ">"
	t, ok := img.types[name]
	if !ok {
		t = img.Register(&host.Type{
			Kind: host.KindStruct, Name: name, Size: 16, Align: 8,
			Fields: []host.Field{
				{Name: "_M_ptr", Offset: 0, Type: host.PointerTo(elem, ptrSize)},
				{Name: "_M_refcount", Offset: 8, Type: img.Type("unsigned long")},
			},
			Template: []host.TemplateArg{{Type: elem}},
		})
	}
	addr := img.Alloc(t.Size, t.Align)
	img.WritePointer(addr, pointee.Addr())
	return host.NewValue(img, t, addr)
}

// --- error boxes ---

func (img *Image) errorInfoType() *host.Type {
	name := "llvm::ErrorInfoBase"
	if t, ok := img.types[name]; ok {
		return t
	}
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: 8, Align: 8,
		Fields: []host.Field{{Name: "code", Offset: 0, Type: img.Type("long")}},
	})
}

func (img *Image) errorBoxType() *host.Type {
	name := "llvm::Error"
	if t, ok := img.types[name]; ok {
		return t
	}
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: 8, Align: 8,
		Fields: []host.Field{{Name: "Payload", Offset: 0, Type: host.PointerTo(img.errorInfoType(), ptrSize)}},
	})
}

func (img *Image) ErrorSuccess() host.Value {
	t := img.errorBoxType()
	addr := img.Alloc(t.Size, t.Align)
	return host.NewValue(img, t, addr)
}

func (img *Image) ErrorBox(code int64) host.Value {
	info := img.Object(img.errorInfoType(), code)
	t := img.errorBoxType()
	addr := img.Alloc(t.Size, t.Align)
	img.WritePointer(addr, info.Addr())
	return host.NewValue(img, t, addr)
}

func (img *Image) expectedType(elem *host.Type) *host.Type {
	name := "llvm::Expected<" + elem.Name + ">"
	if t, ok := img.types[name]; ok {
		return t
	}
	info := img.errorInfoType()
	errPtrBox := img.Register(&host.Type{
		Kind: host.KindStruct, Name: "std::unique_ptr<llvm::ErrorInfoBase>", Size: 8, Align: 8,
		Template: []host.TemplateArg{{Type: info}},
	})
	storageSize := max(elem.Size, 8)
	tStorage := img.Register(&host.Type{
		Kind: host.KindStruct, Name: "llvm::AlignedCharArrayUnion<" + elem.Name + ">",
		Size: storageSize, Align: 8,
		Template: []host.TemplateArg{{Type: elem}},
	})
	errStorage := img.Register(&host.Type{
		Kind: host.KindStruct, Name: "llvm::AlignedCharArrayUnion<std::unique_ptr<llvm::ErrorInfoBase>>",
		Size: 8, Align: 8,
		Template: []host.TemplateArg{{Type: errPtrBox}},
	})
	return img.Register(&host.Type{
		Kind: host.KindStruct, Name: name, Size: storageSize + 8, Align: 8,
		Fields: []host.Field{
			{Name: "TStorage", Offset: 0, Type: tStorage},
			{Name: "ErrorStorage", Offset: 0, Type: errStorage},
			{Name: "HasError", Offset: storageSize, Type: img.Type("bool")},
		},
		Template: []host.TemplateArg{{Type: elem}},
	})
}

func (img *Image) Expected(elem *host.Type, val any) host.Value {
	t := img.expectedType(elem)
	addr := img.Alloc(t.Size, t.Align)
	img.emplace(elem, addr, val)
	return host.NewValue(img, t, addr)
}

func (img *Image) ExpectedError(elem *host.Type, code int64) host.Value {
	t := img.expectedType(elem)
	addr := img.Alloc(t.Size, t.Align)
	img.Write(addr, code)
	img.WriteUint(addr+max(elem.Size, 8), 1, 1)
	return host.NewValue(img, t, addr)
}
