package symex

import (
	"testing"

	"github.com/vtil-project/vtil-go/internal/vtil/reg"
)

type origin int

func TestContextReadUnwrittenSynthesizesOrigin(t *testing.T) {
	ctx := NewContext()
	desc := reg.Desc{ID: 10, BitCount: 64}
	v := ctx.Read(desc, origin(1), nil)
	rv, ok := v.Variable()
	if !ok || rv.Kind != VarRegister {
		t.Fatalf("reading an unwritten register should synthesize a register-at-origin variable, got %s", v)
	}
}

func TestContextWriteThenReadRoundTrips(t *testing.T) {
	ctx := NewContext()
	desc := reg.Desc{ID: 10, BitCount: 64}
	value := NewConst(0x1234, 64)
	ctx.Write(desc, value)

	got := ctx.Read(desc, origin(1), nil)
	if !got.Equals(value) {
		t.Fatalf("Read after Write = %s, want %s", got, value)
	}
}

func TestContextReadJoinsMultipleRuns(t *testing.T) {
	ctx := NewContext()
	lo := reg.Desc{ID: 20, BitOffset: 0, BitCount: 8}
	hi := reg.Desc{ID: 20, BitOffset: 8, BitCount: 8}
	ctx.Write(lo, NewConst(0xAB, 8))
	ctx.Write(hi, NewConst(0xCD, 8))

	full := reg.Desc{ID: 20, BitOffset: 0, BitCount: 16}
	var known uint64
	got := ctx.Read(full, origin(1), &known)
	v, ok := got.ConstValue()
	if !ok || v != 0xCDAB {
		t.Fatalf("joined 16-bit read = %#x, ok=%v, want 0xcdab, true", v, ok)
	}
	if known != 0xFFFF {
		t.Fatalf("known mask = %#x, want 0xffff (both runs fully written)", known)
	}
}

func TestContextReadPartiallyUnwrittenReportsKnownMask(t *testing.T) {
	ctx := NewContext()
	lo := reg.Desc{ID: 30, BitOffset: 0, BitCount: 8}
	ctx.Write(lo, NewConst(0xAB, 8))

	full := reg.Desc{ID: 30, BitOffset: 0, BitCount: 16}
	var known uint64
	ctx.Read(full, origin(1), &known)
	if known != 0xFF {
		t.Fatalf("known mask = %#x, want 0xff (only the low byte was written)", known)
	}
}
