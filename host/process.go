package host

import (
	"encoding/binary"
	"slices"
)

// Process is the typed-memory capability supplied by the hosting debugger:
// raw memory reads plus type metadata lookup. All decoding is built on it.
type Process interface {
	MemRead(addr, size uint64) ([]byte, error)
	PointerSize() uint64
	ByteOrder() binary.ByteOrder
	LookupType(name string) (*Type, error)
}

// Formatter is an optional capability: the host's default textual rendering
// of a value. Only best-effort paths consume it.
type Formatter interface {
	Format(v Value) (string, error)
}

// CStringAt reads a NUL-terminated string starting at addr.
func CStringAt(p Process, addr uint64) (string, error) {
	var data []byte
	const chunk = 0x10
	for begin := addr; ; begin += chunk {
		buf, err := p.MemRead(begin, chunk)
		if err != nil {
			// the terminator may sit just before an unreadable boundary
			return cstringTail(p, begin, data)
		}
		i := slices.Index(buf, 0)
		if i == -1 {
			data = append(data, buf...)
		} else {
			data = append(data, buf[:i]...)
			break
		}
	}
	return string(data), nil
}

func cstringTail(p Process, addr uint64, data []byte) (string, error) {
	for {
		buf, err := p.MemRead(addr, 1)
		if err != nil {
			return "", err
		}
		if buf[0] == 0 {
			return string(data), nil
		}
		data = append(data, buf[0])
		addr++
	}
}

// StringAt reads exactly size bytes at addr as text.
func StringAt(p Process, addr, size uint64) (string, error) {
	if size == 0 {
		return "", nil
	}
	buf, err := p.MemRead(addr, size)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// PointerAt reads a pointer-sized word at addr.
func PointerAt(p Process, addr uint64) (uint64, error) {
	buf, err := p.MemRead(addr, p.PointerSize())
	if err != nil {
		return 0, err
	}
	return readUint(buf, p.ByteOrder())
}

func readUint(buf []byte, order binary.ByteOrder) (uint64, error) {
	switch len(buf) {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(order.Uint16(buf)), nil
	case 4:
		return uint64(order.Uint32(buf)), nil
	case 8:
		return order.Uint64(buf), nil
	}
	return 0, ErrScalarSize
}
