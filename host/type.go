package host

import "fmt"

type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindChar
	KindPointer
	KindArray
	KindStruct
)

// Field is a named member of a struct type at a fixed byte offset.
type Field struct {
	Name   string
	Offset uint64
	Type   *Type
}

// TemplateArg is a generic argument: either a type or an integer constant.
type TemplateArg struct {
	Type  *Type
	Const uint64
}

// Type is the static type descriptor attached to a Value. Descriptors are
// owned by the host; the engine only navigates them.
type Type struct {
	Kind     Kind
	Name     string
	Size     uint64
	Align    uint64
	Fields   []Field
	Template []TemplateArg
	Target   *Type  // pointer or array element type
	Len      uint64 // array element count
}

func (t *Type) String() string {
	return t.Name
}

func (t *Type) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (t *Type) HasField(name string) bool {
	_, ok := t.FieldByName(name)
	return ok
}

// TemplateType returns the i-th template argument as a type.
func (t *Type) TemplateType(i int) (*Type, error) {
	if i >= len(t.Template) || t.Template[i].Type == nil {
		return nil, fmt.Errorf("%w: %s argument %d", ErrTemplateArg, t.Name, i)
	}
	return t.Template[i].Type, nil
}

// TemplateConst returns the i-th template argument as an integer constant.
func (t *Type) TemplateConst(i int) (uint64, error) {
	if i >= len(t.Template) || t.Template[i].Type != nil {
		return 0, fmt.Errorf("%w: %s argument %d", ErrTemplateArg, t.Name, i)
	}
	return t.Template[i].Const, nil
}

func PointerTo(t *Type, ptrSize uint64) *Type {
	return &Type{
		Kind:   KindPointer,
		Name:   t.Name + "*",
		Size:   ptrSize,
		Align:  ptrSize,
		Target: t,
	}
}

func ArrayOf(t *Type, n uint64) *Type {
	return &Type{
		Kind:   KindArray,
		Name:   fmt.Sprintf("%s [%d]", t.Name, n),
		Size:   t.Size * n,
		Align:  t.Align,
		Target: t,
		Len:    n,
	}
}
