// Package memimage builds synthetic process images: a byte buffer at a
// fixed base address together with registered type descriptors, exposed
// through the host.Process capability. Images stand in for a live process
// when decoding snapshots, and give the layout decoders something concrete
// to walk in tests.
package memimage

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"github.com/modern-go/reflect2"

	"github.com/undebug/memview/host"
)

const ptrSize = 8

type Image struct {
	base  uint64
	buf   []byte
	types map[string]*host.Type
}

func New(base uint64) *Image {
	img := &Image{
		base:  base,
		types: make(map[string]*host.Type),
	}
	for _, t := range basicTypes() {
		img.Register(t)
	}
	return img
}

func basicTypes() []*host.Type {
	return []*host.Type{
		{Kind: host.KindVoid, Name: "void"},
		{Kind: host.KindBool, Name: "bool", Size: 1, Align: 1},
		{Kind: host.KindChar, Name: "char", Size: 1, Align: 1},
		{Kind: host.KindInt, Name: "short", Size: 2, Align: 2},
		{Kind: host.KindInt, Name: "int", Size: 4, Align: 4},
		{Kind: host.KindUint, Name: "unsigned int", Size: 4, Align: 4},
		{Kind: host.KindInt, Name: "long", Size: 8, Align: 8},
		{Kind: host.KindUint, Name: "unsigned long", Size: 8, Align: 8},
		{Kind: host.KindUint, Name: "size_t", Size: 8, Align: 8},
		{Kind: host.KindFloat, Name: "float", Size: 4, Align: 4},
		{Kind: host.KindFloat, Name: "double", Size: 8, Align: 8},
	}
}

func (img *Image) MemRead(addr, size uint64) ([]byte, error) {
	if addr < img.base || addr+size > img.base+uint64(len(img.buf)) {
		return nil, fmt.Errorf("read outside image: %016X+%d", addr, size)
	}
	off := addr - img.base
	out := make([]byte, size)
	copy(out, img.buf[off:off+size])
	return out, nil
}

func (img *Image) PointerSize() uint64 {
	return ptrSize
}

func (img *Image) ByteOrder() binary.ByteOrder {
	return binary.LittleEndian
}

func (img *Image) LookupType(name string) (*host.Type, error) {
	if t, ok := img.types[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("type %s not defined in image", name)
}

func (img *Image) Register(t *host.Type) *host.Type {
	img.types[t.Name] = t
	return t
}

// Type returns a registered type and panics when it is absent; image
// construction is programmer-driven, so a missing type is a bug.
func (img *Image) Type(name string) *host.Type {
	t, ok := img.types[name]
	if !ok {
		panic("memimage: type not registered: " + name)
	}
	return t
}

// Alloc reserves size bytes with the given alignment and returns their
// address. Fresh memory is zeroed.
func (img *Image) Alloc(size, align uint64) uint64 {
	if align == 0 {
		align = 1
	}
	off := host.Align(uint64(len(img.buf)), align)
	img.buf = append(img.buf, make([]byte, off+size-uint64(len(img.buf)))...)
	return img.base + off
}

func (img *Image) WriteBytes(addr uint64, b []byte) {
	if addr < img.base || addr+uint64(len(b)) > img.base+uint64(len(img.buf)) {
		panic("memimage: write outside image")
	}
	copy(img.buf[addr-img.base:], b)
}

func (img *Image) WriteUint(addr, size, v uint64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	img.WriteBytes(addr, b[:size])
}

func (img *Image) WritePointer(addr, target uint64) {
	img.WriteUint(addr, ptrSize, target)
}

// Write copies a Go value's raw in-memory representation into the image:
// scalars and flat structs byte for byte, strings as their bytes, slices
// as their backing elements.
func (img *Image) Write(addr uint64, val any) {
	typ := reflect2.TypeOf(val)
	switch typ.Kind() {
	case reflect.String:
		img.WriteBytes(addr, []byte(val.(string)))
	case reflect.Slice:
		st := typ.(*reflect2.UnsafeSliceType)
		obj := reflect2.PtrOf(val)
		n := st.UnsafeLengthOf(obj)
		if n == 0 {
			return
		}
		elemSize := typ.Type1().Elem().Size()
		data := st.UnsafeGetIndex(obj, 0)
		img.WriteBytes(addr, unsafe.Slice((*byte)(data), uintptr(n)*elemSize))
	default:
		size := typ.Type1().Size()
		img.WriteBytes(addr, unsafe.Slice((*byte)(reflect2.PtrOf(val)), size))
	}
}

// Format renders a value the way the hosting debugger's printer would.
// Owning unique pointers display their held pointer, which is what the
// resolver's textual fallback scrapes.
func (img *Image) Format(v host.Value) (string, error) {
	t := v.Type()
	if t == nil {
		return "", host.ErrTypeUnknown
	}
	switch {
	case strings.HasPrefix(t.Name, "std::unique_ptr"):
		held, err := host.PointerAt(img, v.Addr())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = {get() = 0x%x}", t.Name, held), nil
	case t.Kind == host.KindPointer:
		held, err := v.Uint()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("0x%x", held), nil
	}
	return fmt.Sprintf("<%s @ 0x%x>", t.Name, v.Addr()), nil
}
