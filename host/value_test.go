package host_test

import (
	"errors"
	"testing"

	"github.com/undebug/memview/host"
	"github.com/undebug/memview/memimage"
)

func TestFieldAndPath(t *testing.T) {
	img := memimage.New(0x1000)
	intT := img.Type("int")
	inner := img.Register(&host.Type{
		Kind: host.KindStruct, Name: "Inner", Size: 8, Align: 4,
		Fields: []host.Field{
			{Name: "a", Offset: 0, Type: intT},
			{Name: "b", Offset: 4, Type: intT},
		},
	})
	outer := img.Register(&host.Type{
		Kind: host.KindStruct, Name: "Outer", Size: 12, Align: 4,
		Fields: []host.Field{
			{Name: "pad", Offset: 0, Type: intT},
			{Name: "in", Offset: 4, Type: inner},
		},
	})

	addr := img.Alloc(outer.Size, outer.Align)
	img.WriteUint(addr+8, 4, 77)
	v := host.NewValue(img, outer, addr)

	b, err := v.Path("in", "b")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if got, _ := b.Int(); got != 77 {
		t.Errorf("in.b = %d, want 77", got)
	}

	_, err = v.Field("missing")
	if !errors.Is(err, host.ErrFieldMissing) {
		t.Errorf("Field(missing) error = %v, want ErrFieldMissing", err)
	}
}

func TestDerefAndIndex(t *testing.T) {
	img := memimage.New(0x1000)
	intT := img.Type("int")

	arr := img.CArray(intT, int32(5), int32(6), int32(7))
	second, err := arr.Index(1)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if got, _ := second.Int(); got != 6 {
		t.Errorf("arr[1] = %d, want 6", got)
	}

	ptr := img.Ptr(host.NewValue(img, intT, arr.Addr()))
	pv, err := ptr.Deref()
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	if got, _ := pv.Int(); got != 5 {
		t.Errorf("*ptr = %d, want 5", got)
	}
	third, err := ptr.Index(2)
	if err != nil {
		t.Fatalf("Index through pointer: %v", err)
	}
	if got, _ := third.Int(); got != 7 {
		t.Errorf("ptr[2] = %d, want 7", got)
	}

	if _, err := second.Deref(); !errors.Is(err, host.ErrNotPointer) {
		t.Errorf("Deref on int error = %v, want ErrNotPointer", err)
	}
}

func TestScalarReads(t *testing.T) {
	img := memimage.New(0x1000)

	tests := []struct {
		typ  string
		val  any
		want int64
	}{
		{"char", int8(-1), -1},
		{"short", int16(-300), -300},
		{"int", int32(-70000), -70000},
		{"long", int64(-1 << 40), -1 << 40},
		{"unsigned int", uint32(4000000000), 4000000000},
	}
	for _, tt := range tests {
		v := img.Object(img.Type(tt.typ), tt.val)
		got, err := v.Int()
		if err != nil {
			t.Fatalf("%s: %v", tt.typ, err)
		}
		if tt.typ == "char" {
			// char reads unsigned
			if got != 0xff {
				t.Errorf("char = %d, want 255", got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %d, want %d", tt.typ, got, tt.want)
		}
	}

	f := img.Object(img.Type("float"), float32(0.5))
	if got, err := f.Float(); err != nil || got != 0.5 {
		t.Errorf("float = %v, %v", got, err)
	}
}

func TestCStringAtTail(t *testing.T) {
	// the terminator sits in the last readable bytes, inside a partial
	// chunk
	img := memimage.New(0x1000)
	s := "ends at the boundary"
	addr := img.Alloc(uint64(len(s))+1, 1)
	img.WriteBytes(addr, []byte(s))

	got, err := host.CStringAt(img, addr)
	if err != nil {
		t.Fatalf("CStringAt: %v", err)
	}
	if got != s {
		t.Errorf("CStringAt = %q, want %q", got, s)
	}
}

func TestAlign(t *testing.T) {
	tests := []struct{ v, a, want uint64 }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{13, 4, 16},
	}
	for _, tt := range tests {
		if got := host.Align(tt.v, tt.a); got != tt.want {
			t.Errorf("Align(%d, %d) = %d, want %d", tt.v, tt.a, got, tt.want)
		}
	}
}
