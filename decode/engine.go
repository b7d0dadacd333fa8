// Package decode reconstructs higher-level values (sequences, maps,
// optionals, owning pointers, strings) from raw typed memory, using ABI
// knowledge of concrete container layouts. It consumes the host.Process
// capability and never mutates inspected memory.
package decode

import (
	"iter"
	"math/bits"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/undebug/memview/host"
	"github.com/undebug/memview/profile"
)

var log = commonlog.GetLogger("memview.decode")

// Engine binds the decoding operations to a profile. Engines are stateless
// beyond the profile and the once-computed tombstone constant, so one
// engine serves any number of requests.
type Engine struct {
	prof      *profile.Profile
	tombstone uint64
	verbose   bool
}

type Option func(*Engine)

// Verbose makes the resolver emit informational notes (empty optional,
// error-box case taken) through the logger.
func Verbose(on bool) Option {
	return func(e *Engine) { e.verbose = on }
}

func New(prof *profile.Profile, opts ...Option) *Engine {
	if prof == nil {
		prof = profile.Default()
	}
	e := &Engine{
		prof:      prof,
		tombstone: tombstone(prof.PointerAlignment),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// tombstone is the reserved bucket pattern of the hash string map: all
// address bits set except the low bits implied by pointer alignment.
func tombstone(ptrAlign uint64) uint64 {
	return ^uint64(0) << bits.TrailingZeros64(ptrAlign)
}

var defaultEngine = sync.OnceValue(func() *Engine {
	return New(nil)
})

// Package-level convenience forms of every operation, backed by an engine
// on the default profile.

func Classify(v host.Value) Shape { return defaultEngine().Classify(v) }

func Elements(v host.Value) iter.Seq2[host.Value, error] {
	return defaultEngine().Elements(v)
}

func Entries(v host.Value) iter.Seq2[Entry, error] {
	return defaultEngine().Entries(v)
}

func Item(v host.Value, key any) (host.Value, error) {
	return defaultEngine().Item(v, key)
}

func Deref(v host.Value, recursive bool) (Result, error) {
	return defaultEngine().Deref(v, recursive)
}

func Equals(a, b any) (bool, error)    { return defaultEngine().Equals(a, b) }
func NotEquals(a, b any) (bool, error) { return defaultEngine().NotEquals(a, b) }
func LessThan(a, b any) (bool, error)  { return defaultEngine().LessThan(a, b) }
func LessOrEqual(a, b any) (bool, error) {
	return defaultEngine().LessOrEqual(a, b)
}
func GreaterThan(a, b any) (bool, error) {
	return defaultEngine().GreaterThan(a, b)
}
func GreaterOrEqual(a, b any) (bool, error) {
	return defaultEngine().GreaterOrEqual(a, b)
}

func Contains(container host.Value, item any) (bool, error) {
	return defaultEngine().Contains(container, item)
}

func In(item any, container host.Value) (bool, error) {
	return defaultEngine().In(item, container)
}

func ValuesContain(container host.Value, item any) (bool, error) {
	return defaultEngine().ValuesContain(container, item)
}

func InValues(item any, container host.Value) (bool, error) {
	return defaultEngine().InValues(item, container)
}
