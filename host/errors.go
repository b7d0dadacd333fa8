package host

import "errors"

var (
	ErrTypeUnknown  = errors.New("value has unknown type")
	ErrFieldMissing = errors.New("field not found")
	ErrNotPointer   = errors.New("not a pointer type")
	ErrNotIndexable = errors.New("not an indexable type")
	ErrNotScalar    = errors.New("not a scalar type")
	ErrTemplateArg  = errors.New("template argument unavailable")
	ErrScalarSize   = errors.New("unsupported scalar size")
)
