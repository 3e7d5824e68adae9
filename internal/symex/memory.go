package symex

// MemEntry is one accepted write in the memory state, ordered by insertion.
type MemEntry struct {
	ptr   Pointer
	value *Expr
}

// Memory is the ordered, alias-aware memory store spec.md §3 describes.
// Reads join every entry that might overlap the requested range; writes
// fail (returning false) when the new write cannot be proven to either
// fully alias or fully not-alias every existing entry, which is the
// signal the block partitioner (C2) uses to start a new segment.
type Memory struct {
	entries []MemEntry
}

// NewMemory returns an empty memory state.
func NewMemory() *Memory { return &Memory{} }

// Size returns the number of accepted writes.
func (m *Memory) Size() int { return len(m.entries) }

// Empty reports whether no write has been accepted.
func (m *Memory) Empty() bool { return len(m.entries) == 0 }

// Entries exposes the ordered (pointer, value) pairs for iteration, used by
// the re-emitter (C4) and the dump printer (C5).
func (m *Memory) Entries() []MemEntry { return m.entries }

func (e MemEntry) Pointer() Pointer { return e.ptr }
func (e MemEntry) Value() *Expr     { return e.value }

// aliasRelation classifies how two byte ranges at pointers a/b of widths
// wa/wb (in bits) relate.
type aliasRelation int

const (
	aliasUnknown aliasRelation = iota
	aliasSame
	aliasDisjoint
)

func classifyAlias(a Pointer, b Pointer) aliasRelation {
	d, ok := a.Displacement(b)
	if !ok {
		return aliasUnknown
	}
	if d == 0 && a.BitCount == b.BitCount {
		return aliasSame
	}
	aBytes := int64((a.BitCount + 7) / 8)
	bBytes := int64((b.BitCount + 7) / 8)
	// a starts at b+d; ranges [0,bBytes) and [d,d+aBytes) disjoint iff no overlap.
	if d >= bBytes || d <= -aBytes {
		return aliasDisjoint
	}
	// a fully covers b iff [d,d+aBytes) contains [0,bBytes); any other
	// overlap is partial and cannot supersede b.
	if d <= 0 && d+aBytes >= bBytes {
		return aliasSame
	}
	return aliasUnknown
}

// Write attempts to store value at ptr. It returns false when the write's
// relation to some existing entry cannot be proven (neither full overlap
// nor full disjointness) — an alias_failure in spec.md §7's vocabulary.
func (m *Memory) Write(ptr Pointer, value *Expr) bool {
	kept := m.entries[:0]
	for _, e := range m.entries {
		switch classifyAlias(ptr, e.ptr) {
		case aliasSame:
			// fully superseded, drop the stale entry
		case aliasDisjoint:
			kept = append(kept, e)
		default:
			return false
		}
	}
	m.entries = append(kept, MemEntry{ptr: ptr, value: value})
	return true
}

// Simplify re-normalizes every accepted write's value in place.
func (m *Memory) Simplify(pack bool) {
	for i := range m.entries {
		m.entries[i].value = m.entries[i].value.Simplify(pack)
	}
}

// Read returns the joined value at ptr, synthesizing an initial-memory-at-
// origin variable for any requested bits no accepted write resolves.
// knownMask reports (as a bitmask local to ptr's width) which bits were
// resolved without falling back to that variable.
func (m *Memory) Read(ptr Pointer, origin any, knownMask *uint64) *Expr {
	var known uint64
	result := NewVar(Variable{
		Kind: VarMemory,
		Mem:  &MemVar{Pointer: ptr.Base, BitCount: ptr.BitCount},
		At:   origin,
	}, ptr.BitCount)
	for _, e := range m.entries {
		if d, ok := ptr.Displacement(e.ptr); ok && d == 0 && e.ptr.BitCount == ptr.BitCount {
			result = e.value
			known = mask(ptr.BitCount)
		}
	}
	if knownMask != nil {
		*knownMask = known
	}
	return result
}
