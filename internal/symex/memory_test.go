package symex

import "testing"

func ptrAt(base int64) Pointer {
	return NewPointer(NewConst(base, 64), 64)
}

func TestMemoryWriteReadRoundTrips(t *testing.T) {
	m := NewMemory()
	p := ptrAt(0x1000)
	if ok := m.Write(p, NewConst(42, 64)); !ok {
		t.Fatalf("Write should succeed against an empty store")
	}
	got := m.Read(p, origin(1), nil)
	v, ok := got.ConstValue()
	if !ok || v != 42 {
		t.Fatalf("Read = %s, want 42", got)
	}
}

func TestMemoryDisjointWritesBothSurvive(t *testing.T) {
	m := NewMemory()
	a := ptrAt(0x1000)
	b := ptrAt(0x2000)
	if ok := m.Write(a, NewConst(1, 64)); !ok {
		t.Fatalf("first write should succeed")
	}
	if ok := m.Write(b, NewConst(2, 64)); !ok {
		t.Fatalf("disjoint second write should succeed")
	}
	if m.Size() != 2 {
		t.Fatalf("Size() = %d, want 2 disjoint entries", m.Size())
	}
}

func TestMemorySameAddressSupersedes(t *testing.T) {
	m := NewMemory()
	p := ptrAt(0x1000)
	m.Write(p, NewConst(1, 64))
	m.Write(p, NewConst(2, 64))
	if m.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (second write supersedes the first)", m.Size())
	}
	got := m.Read(p, origin(1), nil)
	v, _ := got.ConstValue()
	if v != 2 {
		t.Fatalf("Read after overwrite = %d, want 2", v)
	}
}

func TestMemoryUnknownOverlapFailsAlias(t *testing.T) {
	m := NewMemory()
	known := ptrAt(0x1000)
	m.Write(known, NewConst(1, 64))

	unresolved := NewPointer(NewVar(Variable{Kind: VarNamed, Name: "p"}, 64), 64)
	if ok := m.Write(unresolved, NewConst(2, 64)); ok {
		t.Fatalf("a write whose relation to an existing entry can't be proven should fail (alias_failure)")
	}
	if m.Size() != 1 {
		t.Fatalf("a failed write must not mutate the store, Size() = %d, want 1", m.Size())
	}
}

func TestMemoryReadUnwrittenSynthesizesOrigin(t *testing.T) {
	m := NewMemory()
	got := m.Read(ptrAt(0x3000), origin(1), nil)
	v, ok := got.Variable()
	if !ok || !v.IsMemory() {
		t.Fatalf("reading never-written memory should synthesize a memory-at-origin variable, got %s", got)
	}
}
