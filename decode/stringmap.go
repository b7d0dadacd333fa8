package decode

import (
	"iter"

	"github.com/undebug/memview/host"
)

const stringMapEntryBaseName = "llvm::StringMapEntryBase"

// stringMapSeq walks the flat bucket array of the hash string map. A slot
// is empty (zero), a tombstone (the engine's reserved pattern), or a
// pointer to a variable-length record: key length header, then the value,
// then the inline key bytes. The bucket count bounds the walk since dead
// slots are interspersed with live ones.
func (e *Engine) stringMapSeq(v host.Value) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		t := v.Type()
		proc := v.Process()

		valueT, err := t.TemplateType(0)
		if err != nil {
			yield(Entry{}, layoutErr(t.Name, err))
			return
		}
		entryBase, err := proc.LookupType(stringMapEntryBaseName)
		if err != nil {
			yield(Entry{}, layoutErr(t.Name, err))
			return
		}

		table, err := fieldUint(v, "TheTable")
		if err != nil {
			yield(Entry{}, layoutErr(t.Name, err))
			return
		}
		buckets, err := fieldUint(v, "NumBuckets")
		if err != nil {
			yield(Entry{}, layoutErr(t.Name, err))
			return
		}

		ptrSize := proc.PointerSize()
		keySkip := max(valueT.Size, entryBase.Align)

		for i := uint64(0); i < buckets; i++ {
			slot, err := host.PointerAt(proc, table+i*ptrSize)
			if err != nil {
				yield(Entry{}, layoutErr(t.Name, err))
				return
			}
			if slot == 0 || slot == e.tombstone {
				continue
			}
			keyLen, err := fieldUint(host.NewValue(proc, entryBase, slot), "keyLength")
			if err != nil {
				yield(Entry{}, layoutErr(t.Name, err))
				return
			}
			valueAddr := slot + entryBase.Size
			key, err := host.StringAt(proc, valueAddr+keySkip, keyLen)
			if err != nil {
				yield(Entry{}, layoutErr(t.Name, err))
				return
			}
			entry := Entry{
				Key:   TextKey(key),
				Value: host.NewValue(proc, valueT, valueAddr),
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}
