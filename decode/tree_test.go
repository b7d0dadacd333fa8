package decode_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/undebug/memview/decode"
)

func TestTreeSetElements(t *testing.T) {
	img := newImage()
	intT := img.Type("int")

	t.Run("current layout", func(t *testing.T) {
		wantInts(t, img.TreeSet(intT, ints(1, 3, 5)...), []int64{1, 3, 5})
	})
	t.Run("empty", func(t *testing.T) {
		wantInts(t, img.TreeSet(img.Type("long")), nil)
	})
}

func TestTreeSetBalancedShape(t *testing.T) {
	// in-order stepping must climb back through ancestors, not just
	// descend into right children
	img := newImage()
	intT := img.Type("int")

	t.Run("root with left child", func(t *testing.T) {
		wantInts(t, img.TreeSetBalanced(intT, ints(1, 2)...), []int64{1, 2})
	})
	t.Run("full tree", func(t *testing.T) {
		vals, want := rangeInts(7)
		wantInts(t, img.TreeSetBalanced(intT, vals...), want)
	})
	t.Run("uneven tree", func(t *testing.T) {
		vals, want := rangeInts(10)
		wantInts(t, img.TreeSetBalanced(img.Type("long"), valsToLong(vals)...), want)
	})
}

func valsToLong(vals []any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = int64(v.(int32))
	}
	return out
}

func TestTreeMapBalancedLookup(t *testing.T) {
	img := newImage()
	m := img.TreeMapBalanced(img.StringType(), img.Type("int"),
		[]any{"a", "b", "c", "d", "e"}, ints(1, 2, 3, 4, 5))

	var got []int64
	for entry, err := range decode.Entries(m) {
		if err != nil {
			t.Fatalf("Entries: %v", err)
		}
		n, err := entry.Value.Int()
		if err != nil {
			t.Fatalf("value: %v", err)
		}
		got = append(got, n)
	}
	if len(got) != 5 || got[0] != 1 || got[4] != 5 {
		t.Errorf("values = %v", got)
	}

	v, err := decode.Item(m, "d")
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if n, _ := v.Int(); n != 4 {
		t.Errorf("Item(d) = %d, want 4", n)
	}
}

func TestTreeSetLegacyLayout(t *testing.T) {
	// the old ABI stores the payload as a direct node member
	img := newImage()
	wantInts(t, img.TreeSetLegacy(img.Type("int"), ints(2, 4)...), []int64{2, 4})
}

func TestTreeMapLookup(t *testing.T) {
	img := newImage()
	m := img.TreeMap(img.StringType(), img.Type("int"),
		[]any{"a", "b"}, ints(1, 2))

	for key, want := range map[string]int64{"a": 1, "b": 2} {
		v, err := decode.Item(m, key)
		if err != nil {
			t.Fatalf("Item(%q): %v", key, err)
		}
		if got, _ := v.Int(); got != want {
			t.Errorf("Item(%q) = %d, want %d", key, got, want)
		}
	}

	_, err := decode.Item(m, "c")
	var nf *decode.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Item(c) error = %v, want NotFoundError", err)
	}
	if !strings.Contains(err.Error(), "key 'c' not found (size=2)") {
		t.Errorf("Item(c) error = %q", err)
	}
}

func TestTreeMapIntKeys(t *testing.T) {
	img := newImage()
	m := img.TreeMap(img.Type("int"), img.Type("long"),
		ints(10, 20), []any{int64(100), int64(200)})

	v, err := decode.Item(m, 20)
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if got, _ := v.Int(); got != 200 {
		t.Errorf("Item(20) = %d, want 200", got)
	}

	_, err = decode.Item(m, "20")
	var ke *decode.KeyTypeError
	if !errors.As(err, &ke) {
		t.Fatalf("string key on int map: error = %v, want KeyTypeError", err)
	}
}

func TestTreeMapEntries(t *testing.T) {
	img := newImage()
	m := img.TreeMap(img.StringType(), img.Type("int"),
		[]any{"x", "y", "z"}, ints(7, 8, 9))

	var keys []string
	var vals []int64
	for entry, err := range decode.Entries(m) {
		if err != nil {
			t.Fatalf("Entries: %v", err)
		}
		kv, ok := entry.Key.Value()
		if !ok {
			t.Fatal("tree map keys should be typed values")
		}
		res, err := decode.Deref(kv, false)
		if err != nil {
			t.Fatalf("Deref key: %v", err)
		}
		text, err := res.Text()
		if err != nil {
			t.Fatalf("key text: %v", err)
		}
		keys = append(keys, text)
		n, err := entry.Value.Int()
		if err != nil {
			t.Fatalf("value: %v", err)
		}
		vals = append(vals, n)
	}
	if strings.Join(keys, "") != "xyz" {
		t.Errorf("keys = %v", keys)
	}
	if len(vals) != 3 || vals[0] != 7 || vals[2] != 9 {
		t.Errorf("values = %v", vals)
	}
}

func TestSmallSet(t *testing.T) {
	img := newImage()
	intT := img.Type("int")

	t.Run("inline vector", func(t *testing.T) {
		wantInts(t, img.SmallSet(intT, false, ints(1, 2, 3)...), []int64{1, 2, 3})
	})
	t.Run("grown to tree", func(t *testing.T) {
		wantInts(t, img.SmallSet(intT, true, ints(4, 5, 6, 7, 8)...), []int64{4, 5, 6, 7, 8})
	})
}
