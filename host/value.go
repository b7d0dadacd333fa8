package host

import (
	"fmt"
	"math"
)

// Value is an address in the inspected process bound to a static type.
// Values are ephemeral handles; nothing is copied out of the process until
// a scalar or string read is requested.
type Value struct {
	proc Process
	typ  *Type
	addr uint64
}

func NewValue(proc Process, typ *Type, addr uint64) Value {
	return Value{proc, typ, addr}
}

func (v Value) Process() Process {
	return v.proc
}

func (v Value) Type() *Type {
	return v.typ
}

func (v Value) Addr() uint64 {
	return v.addr
}

func (v Value) IsValid() bool {
	return v.proc != nil && v.typ != nil
}

// Cast rebinds the same address to another type.
func (v Value) Cast(t *Type) Value {
	return Value{v.proc, t, v.addr}
}

func (v Value) Field(name string) (Value, error) {
	if v.typ == nil {
		return Value{}, ErrTypeUnknown
	}
	f, ok := v.typ.FieldByName(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s.%s", ErrFieldMissing, v.typ.Name, name)
	}
	return Value{v.proc, f.Type, v.addr + f.Offset}, nil
}

// Path follows a chain of member accesses.
func (v Value) Path(names ...string) (Value, error) {
	var err error
	for _, name := range names {
		v, err = v.Field(name)
		if err != nil {
			return Value{}, err
		}
	}
	return v, nil
}

// IsNil reports whether a pointer value holds the null address.
func (v Value) IsNil() (bool, error) {
	if v.typ == nil || v.typ.Kind != KindPointer {
		return false, fmt.Errorf("%w: %s", ErrNotPointer, v.typ)
	}
	u, err := v.Uint()
	return u == 0, err
}

// Deref loads the pointer stored at the value's address and returns the
// pointee.
func (v Value) Deref() (Value, error) {
	if v.typ == nil || v.typ.Kind != KindPointer {
		return Value{}, fmt.Errorf("%w: %s", ErrNotPointer, v.typ)
	}
	addr, err := PointerAt(v.proc, v.addr)
	if err != nil {
		return Value{}, err
	}
	return Value{v.proc, v.typ.Target, addr}, nil
}

// Index returns the i-th element of an array value, or of the buffer a
// pointer value points at. No bounds are known at this level.
func (v Value) Index(i uint64) (Value, error) {
	if v.typ == nil {
		return Value{}, ErrTypeUnknown
	}
	switch v.typ.Kind {
	case KindArray:
		return Value{v.proc, v.typ.Target, v.addr + i*v.typ.Target.Size}, nil
	case KindPointer:
		base, err := PointerAt(v.proc, v.addr)
		if err != nil {
			return Value{}, err
		}
		return Value{v.proc, v.typ.Target, base + i*v.typ.Target.Size}, nil
	}
	return Value{}, fmt.Errorf("%w: %s", ErrNotIndexable, v.typ)
}

func (v Value) Bytes() ([]byte, error) {
	if v.typ == nil {
		return nil, ErrTypeUnknown
	}
	return v.proc.MemRead(v.addr, v.typ.Size)
}

// Uint reads the value as an unsigned integer. Pointer values read as the
// stored address.
func (v Value) Uint() (uint64, error) {
	if v.typ == nil {
		return 0, ErrTypeUnknown
	}
	switch v.typ.Kind {
	case KindBool, KindInt, KindUint, KindChar, KindPointer:
		buf, err := v.Bytes()
		if err != nil {
			return 0, err
		}
		return readUint(buf, v.proc.ByteOrder())
	}
	return 0, fmt.Errorf("%w: %s", ErrNotScalar, v.typ)
}

func (v Value) Int() (int64, error) {
	u, err := v.Uint()
	if err != nil {
		return 0, err
	}
	if v.typ.Kind == KindInt {
		switch v.typ.Size {
		case 1:
			return int64(int8(u)), nil
		case 2:
			return int64(int16(u)), nil
		case 4:
			return int64(int32(u)), nil
		}
	}
	return int64(u), nil
}

func (v Value) Float() (float64, error) {
	if v.typ == nil || v.typ.Kind != KindFloat {
		return 0, fmt.Errorf("%w: %s", ErrNotScalar, v.typ)
	}
	buf, err := v.Bytes()
	if err != nil {
		return 0, err
	}
	u, err := readUint(buf, v.proc.ByteOrder())
	if err != nil {
		return 0, err
	}
	if v.typ.Size == 4 {
		return float64(math.Float32frombits(uint32(u))), nil
	}
	return math.Float64frombits(u), nil
}

func (v Value) Bool() (bool, error) {
	u, err := v.Uint()
	return u != 0, err
}

// ReadString reads size bytes at the value's address as text.
func (v Value) ReadString(size uint64) (string, error) {
	return StringAt(v.proc, v.addr, size)
}

// ReadCString scans a NUL-terminated string at the value's address.
func (v Value) ReadCString() (string, error) {
	return CStringAt(v.proc, v.addr)
}
