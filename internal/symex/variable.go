package symex

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/vtil-project/vtil-go/internal/vtil/reg"
)

// VariableKind distinguishes the three leaf roles spec.md §6 names:
// a plain named symbol (used by callers that model free inputs directly),
// a register-at-origin variable synthesized by Context.Read, and a
// memory-at-origin variable synthesized by Memory.Read.
type VariableKind uint8

const (
	VarNamed VariableKind = iota
	VarRegister
	VarMemory
)

// MemVar is the payload of a memory-at-origin variable: the pointer
// expression it decays to, and the width of the read that produced it.
type MemVar struct {
	Pointer  *Expr
	BitCount int8
}

// Decay returns the pointer expression backing a memory variable, per
// spec.md §6's `variable.mem().decay()`.
func (m *MemVar) Decay() *Expr { return m.Pointer }

// Variable is the leaf payload of a KindVar expression node. Origin is an
// opaque, comparable position (the analysis package supplies a block
// cursor); two variables are equal only if every field compares equal.
type Variable struct {
	Kind VariableKind
	Name string
	Reg  reg.Desc
	Mem  *MemVar
	At   any
}

// IsMemory reports whether v addresses memory rather than a register or a
// plain named symbol.
func (v *Variable) IsMemory() bool { return v.Kind == VarMemory }

// MemAccessor exposes the memory payload, valid only when IsMemory is true.
func (v *Variable) MemAccessor() *MemVar { return v.Mem }

func (v *Variable) Equals(o *Variable) bool {
	if v == o {
		return true
	}
	if v == nil || o == nil {
		return false
	}
	if v.Kind != o.Kind || v.At != o.At {
		return false
	}
	switch v.Kind {
	case VarNamed:
		return v.Name == o.Name
	case VarRegister:
		return v.Reg == o.Reg
	case VarMemory:
		return v.Mem.BitCount == o.Mem.BitCount && v.Mem.Pointer.Equals(o.Mem.Pointer)
	}
	return false
}

func (v *Variable) hash() uint64 {
	var buf [24]byte
	buf[0] = byte(v.Kind)
	binary.LittleEndian.PutUint32(buf[1:], uint32(v.Reg.ID))
	buf[5] = byte(v.Reg.BitOffset)
	buf[6] = byte(v.Reg.BitCount)
	h := xxhash.Sum64(buf[:8])
	h = mixHash(h, xxhash.Sum64String(v.Name))
	h = mixHash(h, xxhash.Sum64String(fmt.Sprint(v.At)))
	if v.Mem != nil {
		h = mixHash(h, v.Mem.Pointer.hash())
	}
	return h
}

func (v *Variable) String() string {
	switch v.Kind {
	case VarRegister:
		return fmt.Sprintf("reg(%d)@%v", v.Reg.ID, v.At)
	case VarMemory:
		return fmt.Sprintf("mem(%s)@%v", v.Mem.Pointer, v.At)
	default:
		return v.Name
	}
}
