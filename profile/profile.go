// Package profile holds the ABI knowledge tables the decoding engine is
// parameterized on: which type-name prefixes identify which container
// family, the pointer alignment the hash-map tombstone derives from, and
// the versioned inline namespace some standard libraries inject into type
// names. A profile is immutable once handed to an engine.
package profile

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Classes a name rule can bind a prefix to. Rules never introduce new
// decoding strategies; they only attach more names to existing ones.
const (
	ClassSequence = "sequence"
	ClassMap      = "map"
	ClassString   = "string"
	ClassOptional = "optional"
	ClassUnique   = "unique"
	ClassShared   = "shared"
	ClassError    = "error"
	ClassExpected = "expected"
)

type Rule struct {
	Prefix  string `toml:"prefix"`
	Class   string `toml:"class"`
	Variant string `toml:"variant"`
}

type Profile struct {
	// PointerAlignment determines how many low bits of a bucket slot are
	// free to encode the hash-map tombstone.
	PointerAlignment uint64 `toml:"pointer_alignment"`
	// VersionedNamespace, when set, is stripped from type names before
	// matching and retried during node-type lookup (e.g. "__8::").
	VersionedNamespace string `toml:"versioned_namespace"`
	Rules              []Rule `toml:"rules"`
}

var validClass = map[string]bool{
	ClassSequence: true,
	ClassMap:      true,
	ClassString:   true,
	ClassOptional: true,
	ClassUnique:   true,
	ClassShared:   true,
	ClassError:    true,
	ClassExpected: true,
}

// Default covers the libstdc++ and LLVM ADT families the engine knows the
// layouts of.
func Default() *Profile {
	return &Profile{
		PointerAlignment: 8,
		Rules: []Rule{
			{"llvm::SmallVector", ClassSequence, "small-vector"},
			{"std::vector", ClassSequence, "vector"},
			{"llvm::ArrayRef", ClassSequence, "view"},
			{"std::array", ClassSequence, "std-array"},
			{"std::set", ClassSequence, "tree-set"},
			{"llvm::SmallSet", ClassSequence, "small-set"},
			{"std::queue", ClassSequence, "deque-adapter"},
			{"std::stack", ClassSequence, "deque-adapter"},
			{"std::deque", ClassSequence, "deque"},
			{"std::_Deque_base", ClassSequence, "deque"},
			{"std::list", ClassSequence, "list"},
			{"std::__cxx11::list", ClassSequence, "list"},

			{"llvm::StringMap", ClassMap, "string-map"},
			{"std::map", ClassMap, "tree-map"},

			{"std::string_view", ClassString, "view"},
			{"std::basic_string_view", ClassString, "view"},
			{"std::basic_string", ClassString, "gnu"},
			{"std::__cxx11::basic_string", ClassString, "gnu"},
			{"std::string", ClassString, "gnu"},
			{"llvm::StringRef", ClassString, "ref"},
			{"llvm::SmallString", ClassString, "small"},

			{"std::optional", ClassOptional, "std"},
			{"llvm::Optional", ClassOptional, "llvm"},

			{"std::unique_ptr", ClassUnique, ""},
			{"std::shared_ptr", ClassShared, ""},

			{"llvm::Error", ClassError, ""},
			{"llvm::Expected", ClassExpected, ""},
		},
	}
}

// Match returns the rule for the longest prefix matching name. A prefix
// matches only at a name boundary, so "std::string" does not claim
// "std::stringstream" and "llvm::Error" does not claim
// "llvm::ErrorInfoBase".
func (p *Profile) Match(name string) (Rule, bool) {
	if p.VersionedNamespace != "" {
		name = strings.ReplaceAll(name, p.VersionedNamespace, "")
	}
	best := -1
	for i, r := range p.Rules {
		if !prefixMatch(name, r.Prefix) {
			continue
		}
		if best == -1 || len(r.Prefix) > len(p.Rules[best].Prefix) {
			best = i
		}
	}
	if best == -1 {
		return Rule{}, false
	}
	return p.Rules[best], true
}

func prefixMatch(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	if len(name) == len(prefix) {
		return true
	}
	switch name[len(prefix)] {
	case '<', ':', ' ', '*', '&':
		return true
	}
	return false
}

// Merge overlays o on top of p: scalar settings replace when set, rules
// with an already-known prefix replace the existing binding, new prefixes
// append. Longest-prefix matching keeps the result order independent, but
// rules are kept sorted for readable dumps.
func (p *Profile) Merge(o *Profile) {
	if o.PointerAlignment != 0 {
		p.PointerAlignment = o.PointerAlignment
	}
	if o.VersionedNamespace != "" {
		p.VersionedNamespace = o.VersionedNamespace
	}
	for _, r := range o.Rules {
		replaced := false
		for i := range p.Rules {
			if p.Rules[i].Prefix == r.Prefix {
				p.Rules[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			p.Rules = append(p.Rules, r)
		}
	}
	sort.SliceStable(p.Rules, func(i, j int) bool {
		return p.Rules[i].Prefix < p.Rules[j].Prefix
	})
}

// Load reads a TOML overlay and merges it onto the default profile.
func Load(r io.Reader) (*Profile, error) {
	var overlay Profile
	if _, err := toml.NewDecoder(r).Decode(&overlay); err != nil {
		return nil, err
	}
	for _, rule := range overlay.Rules {
		if rule.Prefix == "" {
			return nil, fmt.Errorf("profile rule with empty prefix")
		}
		if !validClass[rule.Class] {
			return nil, fmt.Errorf("profile rule %q: unknown class %q", rule.Prefix, rule.Class)
		}
	}
	p := Default()
	p.Merge(&overlay)
	return p, nil
}

func LoadFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
