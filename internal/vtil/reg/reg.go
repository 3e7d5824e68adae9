// Package reg defines the register identity shared by the expression layer
// (internal/symex) and the instruction/basic-block layer (internal/vtil). It
// is a dependency-free leaf package, the same role bin.Addr plays for the
// teacher (_examples/mewmew-x/bin/addr.go): a tiny value type both the
// disassembly side and the IR side need without depending on each other.
package reg

// ID names an architectural register or a virtual temporary. It carries no
// width information; ID alone is the "weak identity" spec.md §3 uses as a
// map key when tracking bit coverage across writes of different widths.
type ID uint32

// SP is the reserved identity of the virtual stack pointer.
const SP ID = 1

// Flags are the capability bits a register descriptor may carry.
type Flags uint8

const (
	FlagStackPointer Flags = 1 << iota
	FlagVolatile
	FlagReadOnly
	FlagUndefined
	FlagFlagsRegister
)

// Desc is a register operand: an identity plus the bit slice of it being
// addressed, plus capability flags. Instances with differing BitOffset /
// BitCount but the same ID share a weak identity.
type Desc struct {
	ID        ID
	BitOffset int8
	BitCount  int8
	Flags     Flags
}

// Weak returns the weak identity used to key register state maps.
func (d Desc) Weak() ID { return d.ID }

// IsStackPointer reports whether d addresses the virtual stack pointer.
func (d Desc) IsStackPointer() bool { return d.Flags&FlagStackPointer != 0 }

// IsVolatile reports whether d must not be treated as symbolizable.
func (d Desc) IsVolatile() bool { return d.Flags&FlagVolatile != 0 }

// IsReadOnly reports whether d can never be a write target.
func (d Desc) IsReadOnly() bool { return d.Flags&FlagReadOnly != 0 }

// IsUndefined reports whether d is the ?UD undefined-value marker.
func (d Desc) IsUndefined() bool { return d.Flags&FlagUndefined != 0 }

// IsFlags reports whether d addresses the per-bit flags register.
func (d Desc) IsFlags() bool { return d.Flags&FlagFlagsRegister != 0 }

// Mask returns the bit positions (in the full register's coordinate space)
// that d addresses.
func (d Desc) Mask() uint64 {
	if d.BitCount <= 0 {
		return 0
	}
	m := uint64(1)<<uint(d.BitCount) - 1
	return m << uint(d.BitOffset)
}
