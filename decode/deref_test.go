package decode_test

import (
	"testing"

	"github.com/undebug/memview/decode"
	"github.com/undebug/memview/host"
)

func wantText(t *testing.T, v host.Value, want string) {
	t.Helper()
	res, err := decode.Deref(v, false)
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	got, err := res.Text()
	if err != nil {
		t.Fatalf("Text: %v (kind %v)", err, res.Kind())
	}
	if got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestDerefStrings(t *testing.T) {
	img := newImage()

	tests := []struct {
		name string
		val  host.Value
	}{
		{"std::string", img.StdString("hello")},
		{"empty std::string", img.StdString("")},
		{"string_view", img.StringView("hello")},
		{"StringRef", img.StringRef("hello")},
		{"SmallString", img.SmallString("hello")},
		{"char array", img.CharArray("hello")},
		{"char pointer", img.CString("hello")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := "hello"
			if tt.name == "empty std::string" {
				want = ""
			}
			wantText(t, tt.val, want)
		})
	}
}

func TestDerefOptional(t *testing.T) {
	img := newImage()
	intT := img.Type("int")

	t.Run("empty", func(t *testing.T) {
		res, err := decode.Deref(img.EmptyOptional(intT), true)
		if err != nil {
			t.Fatalf("Deref: %v", err)
		}
		if !res.IsNone() {
			t.Error("empty optional should resolve to no value")
		}
		if res.Degraded {
			t.Error("structured resolution must not be degraded")
		}
	})

	t.Run("held", func(t *testing.T) {
		res, err := decode.Deref(img.Optional(intT, int32(7)), true)
		if err != nil {
			t.Fatalf("Deref: %v", err)
		}
		v, err := res.Value()
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		if got, _ := v.Int(); got != 7 {
			t.Errorf("held value = %d, want 7", got)
		}
	})
}

func TestDerefLLVMOptional(t *testing.T) {
	t.Run("val member", func(t *testing.T) {
		img := newImage()
		res, err := decode.Deref(img.LLVMOptional(img.Type("int"), int32(3), false), true)
		if err != nil {
			t.Fatalf("Deref: %v", err)
		}
		v, err := res.Value()
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		if got, _ := v.Int(); got != 3 {
			t.Errorf("held value = %d, want 3", got)
		}
	})

	t.Run("renamed value member", func(t *testing.T) {
		img := newImage()
		res, err := decode.Deref(img.LLVMOptional(img.Type("int"), int32(4), true), true)
		if err != nil {
			t.Fatalf("Deref: %v", err)
		}
		v, err := res.Value()
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		if got, _ := v.Int(); got != 4 {
			t.Errorf("held value = %d, want 4", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		img := newImage()
		res, err := decode.Deref(img.LLVMOptional(img.Type("int"), nil, false), false)
		if err != nil {
			t.Fatalf("Deref: %v", err)
		}
		if !res.IsNone() {
			t.Error("empty optional should resolve to no value")
		}
	})
}

func TestDerefUniquePtr(t *testing.T) {
	img := newImage()
	obj := img.Object(img.Type("int"), int32(42))
	up := img.UniquePtr(obj)

	res, err := decode.Deref(up, true)
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	if res.Degraded {
		t.Error("structured layout probe must not be degraded")
	}
	v, err := res.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if got, _ := v.Int(); got != 42 {
		t.Errorf("pointee = %d, want 42", got)
	}
}

func TestDerefUniquePtrDisplayFallback(t *testing.T) {
	// the member metadata is stripped; only the display text exposes the
	// held pointer, and the result is flagged as degraded
	img := newImage()
	obj := img.Object(img.Type("int"), int32(42))
	up := img.UniquePtrOpaque(obj)

	res, err := decode.Deref(up, true)
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	if !res.Degraded {
		t.Error("display-text recovery must be flagged as degraded")
	}
	v, err := res.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if got, _ := v.Int(); got != 42 {
		t.Errorf("pointee = %d, want 42", got)
	}
}

func TestDerefSharedPtr(t *testing.T) {
	img := newImage()
	obj := img.Object(img.Type("long"), int64(-9))
	res, err := decode.Deref(img.SharedPtr(obj), true)
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	v, err := res.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if got, _ := v.Int(); got != -9 {
		t.Errorf("pointee = %d, want -9", got)
	}
}

func TestDerefRecursiveThroughString(t *testing.T) {
	// unique_ptr<std::string> resolves to the text in one recursive call
	img := newImage()
	s := img.StdString("deep")
	res, err := decode.Deref(img.UniquePtr(s), true)
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	got, err := res.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "deep" {
		t.Errorf("text = %q, want deep", got)
	}
}

func TestDerefSingleStep(t *testing.T) {
	// one step unwraps exactly one layer
	img := newImage()
	s := img.StdString("shallow")
	res, err := decode.Deref(img.UniquePtr(s), false)
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	v, err := res.Value()
	if err != nil {
		t.Fatalf("single step should stop at the string record: %v", err)
	}
	if v.Type().Name != "std::string" {
		t.Errorf("stopped at %s, want std::string", v.Type().Name)
	}
}

func TestDerefTerminalIsIdentity(t *testing.T) {
	img := newImage()
	obj := img.Object(img.Type("int"), int32(5))

	for _, recursive := range []bool{false, true} {
		res, err := decode.Deref(obj, recursive)
		if err != nil {
			t.Fatalf("Deref(recursive=%v): %v", recursive, err)
		}
		v, err := res.Value()
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		if v.Addr() != obj.Addr() || v.Type() != obj.Type() {
			t.Errorf("terminal value changed under Deref(recursive=%v)", recursive)
		}
	}
}

func TestDerefErrorBox(t *testing.T) {
	img := newImage()

	t.Run("success", func(t *testing.T) {
		res, err := decode.Deref(img.ErrorSuccess(), false)
		if err != nil {
			t.Fatalf("Deref: %v", err)
		}
		if !res.IsNone() {
			t.Error("success box should resolve to no value")
		}
	})

	t.Run("failure", func(t *testing.T) {
		res, err := decode.Deref(img.ErrorBox(11), true)
		if err != nil {
			t.Fatalf("Deref: %v", err)
		}
		v, err := res.Value()
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		code, err := v.Field("code")
		if err != nil {
			t.Fatalf("Field: %v", err)
		}
		if got, _ := code.Int(); got != 11 {
			t.Errorf("error code = %d, want 11", got)
		}
	})
}

func TestDerefExpected(t *testing.T) {
	img := newImage()
	intT := img.Type("int")

	t.Run("value", func(t *testing.T) {
		res, err := decode.Deref(img.Expected(intT, int32(9)), false)
		if err != nil {
			t.Fatalf("Deref: %v", err)
		}
		v, err := res.Value()
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		if got, _ := v.Int(); got != 9 {
			t.Errorf("value = %d, want 9", got)
		}
	})

	t.Run("error", func(t *testing.T) {
		res, err := decode.Deref(img.ExpectedError(intT, 3), false)
		if err != nil {
			t.Fatalf("Deref: %v", err)
		}
		v, err := res.Value()
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		if v.Type().Name != "llvm::ErrorInfoBase" {
			t.Errorf("error branch resolved to %s", v.Type().Name)
		}
		code, err := v.Field("code")
		if err != nil {
			t.Fatalf("Field: %v", err)
		}
		if got, _ := code.Int(); got != 3 {
			t.Errorf("error code = %d, want 3", got)
		}
	})
}
