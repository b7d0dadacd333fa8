package decode

import (
	"errors"
	"fmt"
)

var (
	ErrTypeUnknown = errors.New("value has unknown type")
	ErrNotText     = errors.New("result is not text")
	ErrNotValue    = errors.New("result is not a value")
)

// UnsupportedTypeError: no decoding strategy exists for the type at all.
type UnsupportedTypeError struct {
	TypeName string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported container type: %s", e.TypeName)
}

// UnsupportedLayoutError: the type is a known family member but none of
// the known internal layouts matched. Distinct from UnsupportedTypeError
// because it means the layout table needs an addition.
type UnsupportedLayoutError struct {
	TypeName string
	Detail   string
	Err      error
}

func (e *UnsupportedLayoutError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unsupported layout for %s", e.TypeName)
	}
	return fmt.Sprintf("unsupported layout for %s: %s", e.TypeName, e.Detail)
}

func (e *UnsupportedLayoutError) Unwrap() error {
	return e.Err
}

// RangeError: index out of [0, size) after negative normalization.
type RangeError struct {
	TypeName string
	Index    int64
	Size     int64
}

func (e *RangeError) Error() string {
	if e.Size < 0 {
		return fmt.Sprintf("%s index %d must be non-negative", e.TypeName, e.Index)
	}
	return fmt.Sprintf("%s index %d out of range (size=%d)", e.TypeName, e.Index, e.Size)
}

// NotFoundError: key absent from a map.
type NotFoundError struct {
	TypeName string
	Key      string
	Size     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s key '%s' not found (size=%d)", e.TypeName, e.Key, e.Size)
}

// KeyTypeError: the key or index kind does not fit the container.
type KeyTypeError struct {
	TypeName string
	Want     string
	Got      string
}

func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("%s key must be %s, got %s", e.TypeName, e.Want, e.Got)
}

func layoutErr(typeName string, err error) error {
	var detail string
	if err != nil {
		detail = err.Error()
	}
	return &UnsupportedLayoutError{TypeName: typeName, Detail: detail, Err: err}
}
