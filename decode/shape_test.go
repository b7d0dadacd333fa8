package decode_test

import (
	"testing"

	"github.com/undebug/memview/decode"
	"github.com/undebug/memview/host"
	"github.com/undebug/memview/profile"
)

func TestClassify(t *testing.T) {
	img := newImage()
	intT := img.Type("int")

	tests := []struct {
		name string
		val  host.Value
		want decode.Shape
	}{
		{"vector", img.Vector(intT), decode.Shape{decode.Sequence, decode.VariantVector}},
		{"small vector", img.SmallVector(intT), decode.Shape{decode.Sequence, decode.VariantSmallVector}},
		{"array ref", img.ArrayRef(intT), decode.Shape{decode.Sequence, decode.VariantView}},
		{"std array", img.StdArray(intT, int32(1)), decode.Shape{decode.Sequence, decode.VariantStdArray}},
		{"set", img.TreeSet(intT), decode.Shape{decode.Sequence, decode.VariantTreeSet}},
		{"small set", img.SmallSet(intT, false), decode.Shape{decode.Sequence, decode.VariantSmallSet}},
		{"list", img.List(intT), decode.Shape{decode.Sequence, decode.VariantList}},
		{"deque", img.Deque(intT), decode.Shape{decode.Sequence, decode.VariantDeque}},
		{"queue", img.Queue(intT), decode.Shape{decode.Sequence, decode.VariantDequeAdapter}},
		{"stack", img.Stack(intT), decode.Shape{decode.Sequence, decode.VariantDequeAdapter}},
		{"c array", img.CArray(intT, int32(1)), decode.Shape{decode.Sequence, decode.VariantCArray}},

		{"map", img.TreeMap(intT, intT, nil, nil), decode.Shape{decode.Map, decode.VariantTreeMap}},
		{"string map", img.StringMap(intT, nil, nil, 0), decode.Shape{decode.Map, decode.VariantStringMap}},

		{"std string", img.StdString("x"), decode.Shape{decode.String, decode.VariantGnuString}},
		{"string view", img.StringView("x"), decode.Shape{decode.String, decode.VariantStringView}},
		{"string ref", img.StringRef("x"), decode.Shape{decode.String, decode.VariantStringRef}},
		{"small string", img.SmallString("x"), decode.Shape{decode.String, decode.VariantSmallString}},
		{"char array", img.CharArray("x"), decode.Shape{decode.String, decode.VariantCharArray}},

		{"optional", img.EmptyOptional(intT), decode.Shape{decode.Optional, decode.VariantStdOptional}},
		{"llvm optional", img.LLVMOptional(intT, nil, false), decode.Shape{decode.Optional, decode.VariantLLVMOptional}},

		{"unique ptr", img.UniquePtr(img.Object(intT, int32(1))), decode.Shape{Kind: decode.OwningUnique}},
		{"shared ptr", img.SharedPtr(img.Object(intT, int32(1))), decode.Shape{Kind: decode.OwningShared}},

		{"raw pointer", img.Ptr(img.Object(intT, int32(1))), decode.Shape{Kind: decode.RawPointer}},
		{"scalar", img.Object(intT, int32(1)), decode.Shape{Kind: decode.Scalar}},
		{"error box", img.ErrorSuccess(), decode.Shape{Kind: decode.Scalar}},
		{"expected box", img.Expected(intT, int32(1)), decode.Shape{Kind: decode.Scalar}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decode.Classify(tt.val); got != tt.want {
				t.Errorf("Classify = %v/%v, want %v/%v",
					got.Kind, got.Variant, tt.want.Kind, tt.want.Variant)
			}
		})
	}
}

func TestClassifyRespectsProfile(t *testing.T) {
	// an overlay can bind project-local wrappers to known layouts
	img := newImage()
	intT := img.Type("int")
	v := img.Vector(intT, int32(1)).Cast(img.Register(&host.Type{
		Kind: host.KindStruct, Name: "mine::Buffer<int>", Size: 24, Align: 8,
		Fields:   img.Type("std::vector<int>").Fields,
		Template: []host.TemplateArg{{Type: intT}},
	}))

	prof := profile.Default()
	prof.Merge(&profile.Profile{Rules: []profile.Rule{
		{Prefix: "mine::Buffer", Class: profile.ClassSequence, Variant: "vector"},
	}})
	e := decode.New(prof)

	want := decode.Shape{decode.Sequence, decode.VariantVector}
	if got := e.Classify(v); got != want {
		t.Errorf("Classify = %v/%v, want sequence/vector", got.Kind, got.Variant)
	}
	for ev, err := range e.Elements(v) {
		if err != nil {
			t.Fatalf("Elements: %v", err)
		}
		if got, _ := ev.Int(); got != 1 {
			t.Errorf("element = %d, want 1", got)
		}
	}
}
