package decode

import (
	"github.com/undebug/memview/host"
	"github.com/undebug/memview/profile"
)

type ShapeKind int

const (
	Scalar ShapeKind = iota
	RawPointer
	OwningUnique
	OwningShared
	Optional
	String
	Sequence
	Map
)

func (k ShapeKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case RawPointer:
		return "raw-pointer"
	case OwningUnique:
		return "owning-unique"
	case OwningShared:
		return "owning-shared"
	case Optional:
		return "optional"
	case String:
		return "string"
	case Sequence:
		return "sequence"
	case Map:
		return "map"
	}
	return "unknown"
}

type Variant int

const (
	VariantNone Variant = iota

	// sequence families
	VariantVector
	VariantSmallVector
	VariantView
	VariantStdArray
	VariantCArray
	VariantTreeSet
	VariantSmallSet
	VariantList
	VariantDeque
	VariantDequeAdapter

	// map families
	VariantTreeMap
	VariantStringMap

	// string families
	VariantStringView
	VariantGnuString
	VariantStringRef
	VariantSmallString
	VariantCharArray

	// optional families
	VariantStdOptional
	VariantLLVMOptional
)

// Shape classifies a type into exactly one decoding strategy.
type Shape struct {
	Kind    ShapeKind
	Variant Variant
}

var sequenceVariants = map[string]Variant{
	"vector":        VariantVector,
	"small-vector":  VariantSmallVector,
	"view":          VariantView,
	"std-array":     VariantStdArray,
	"tree-set":      VariantTreeSet,
	"small-set":     VariantSmallSet,
	"list":          VariantList,
	"deque":         VariantDeque,
	"deque-adapter": VariantDequeAdapter,
}

var mapVariants = map[string]Variant{
	"tree-map":   VariantTreeMap,
	"string-map": VariantStringMap,
}

var stringVariants = map[string]Variant{
	"view":  VariantStringView,
	"gnu":   VariantGnuString,
	"ref":   VariantStringRef,
	"small": VariantSmallString,
}

var optionalVariants = map[string]Variant{
	"std":  VariantStdOptional,
	"llvm": VariantLLVMOptional,
}

// Classify decides the decoding strategy for a value from its canonical
// type name, falling back to the structural kind for array-like types with
// no known name. Unrecognized types are Scalar: opaque and terminal.
func (e *Engine) Classify(v host.Value) Shape {
	t := v.Type()
	if t == nil {
		return Shape{Kind: Scalar}
	}
	if rule, ok := e.prof.Match(t.Name); ok {
		switch rule.Class {
		case profile.ClassSequence:
			if variant, ok := sequenceVariants[rule.Variant]; ok {
				return Shape{Sequence, variant}
			}
		case profile.ClassMap:
			if variant, ok := mapVariants[rule.Variant]; ok {
				return Shape{Map, variant}
			}
		case profile.ClassString:
			if variant, ok := stringVariants[rule.Variant]; ok {
				return Shape{String, variant}
			}
		case profile.ClassOptional:
			if variant, ok := optionalVariants[rule.Variant]; ok {
				return Shape{Optional, variant}
			}
		case profile.ClassUnique:
			return Shape{Kind: OwningUnique}
		case profile.ClassShared:
			return Shape{Kind: OwningShared}
		}
		// error/expected boxes are handled by the resolver only; to the
		// shape model they are opaque.
		return Shape{Kind: Scalar}
	}
	switch t.Kind {
	case host.KindArray:
		if t.Target != nil && t.Target.Kind == host.KindChar {
			return Shape{String, VariantCharArray}
		}
		return Shape{Sequence, VariantCArray}
	case host.KindPointer:
		return Shape{Kind: RawPointer}
	}
	return Shape{Kind: Scalar}
}
