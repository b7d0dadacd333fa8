package memimage

import (
	"strings"
	"testing"

	"github.com/undebug/memview/host"
)

func TestAllocAligns(t *testing.T) {
	img := New(0x1000)
	img.Alloc(3, 1)
	addr := img.Alloc(8, 8)
	if addr%8 != 0 {
		t.Errorf("Alloc(8, 8) = %#x, not aligned", addr)
	}
	buf, err := img.MemRead(addr, 8)
	if err != nil {
		t.Fatalf("MemRead: %v", err)
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatal("fresh memory should be zeroed")
		}
	}
}

func TestMemReadBounds(t *testing.T) {
	img := New(0x1000)
	img.Alloc(16, 1)

	if _, err := img.MemRead(0x1000, 16); err != nil {
		t.Errorf("in-bounds read failed: %v", err)
	}
	if _, err := img.MemRead(0x0fff, 1); err == nil {
		t.Error("read below base should fail")
	}
	if _, err := img.MemRead(0x1008, 16); err == nil {
		t.Error("read past the end should fail")
	}
}

func TestWriteScalars(t *testing.T) {
	img := New(0x1000)

	v := img.Object(img.Type("int"), int32(-7))
	if got, err := v.Int(); err != nil || got != -7 {
		t.Errorf("int round trip = %d, %v", got, err)
	}

	f := img.Object(img.Type("double"), float64(1.5))
	if got, err := f.Float(); err != nil || got != 1.5 {
		t.Errorf("double round trip = %v, %v", got, err)
	}

	addr := img.Alloc(12, 4)
	img.Write(addr, []int32{1, 2, 3})
	third := host.NewValue(img, img.Type("int"), addr+8)
	if got, _ := third.Int(); got != 3 {
		t.Errorf("slice write: third element = %d, want 3", got)
	}
}

func TestLookupType(t *testing.T) {
	img := New(0x1000)
	if _, err := img.LookupType("int"); err != nil {
		t.Errorf("LookupType(int): %v", err)
	}
	if _, err := img.LookupType("no::such::thing"); err == nil {
		t.Error("LookupType should fail for unregistered names")
	}
}

func TestStringMapTombstonePattern(t *testing.T) {
	// all address bits set except the three implied by pointer alignment
	if got := uint64(stringMapTombstone); got != 0xFFFFFFFFFFFFFFF8 {
		t.Errorf("tombstone = %#x, want %#x", got, uint64(0xFFFFFFFFFFFFFFF8))
	}
}

func TestFormatUniquePtr(t *testing.T) {
	img := New(0x1000)
	obj := img.Object(img.Type("int"), int32(1))
	up := img.UniquePtr(obj)

	text, err := img.Format(up)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(text, "get() = 0x") {
		t.Errorf("Format = %q", text)
	}
}
