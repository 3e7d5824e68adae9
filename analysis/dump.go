package analysis

import (
	"fmt"
	"io"
	"sort"

	"github.com/mewkiz/pkg/term"

	"github.com/vtil-project/vtil-go/internal/vtil"
)

// Dump is C5: it prints a human-readable trace of every segment to w —
// the current value of each register it touched, its accepted memory
// writes, and how it terminates — in the colored-tag style the rest of this
// module's tooling uses (_examples/mewmew-x/cmd/x/main.go's dbg/warn
// loggers). It distinguishes a real exit (vexit) from a real, non-exiting
// call (vxcall) by the segment's branch opcode, since conflating the two
// would misreport whether control returns to the block.
func Dump(w io.Writer, segments []*Segment) {
	for i, seg := range segments {
		fmt.Fprintf(w, "%s segment %d [%d, %d)\n",
			term.MagentaBold("::"), i, seg.Begin.Index, seg.End.Index)
		if seg.Verbatim != nil {
			fmt.Fprintf(w, "  %s %s\n", term.RedBold("volatile"), seg.Verbatim)
			continue
		}
		dumpRegisters(w, seg)
		dumpMemory(w, seg)
		dumpBranch(w, seg)
	}
}

func dumpRegisters(w io.Writer, seg *Segment) {
	ids := sortedRegisterIDs(seg.RegisterReferences)
	for _, id := range ids {
		desc := seg.RegisterReferences[id]
		value := seg.Registers.Read(desc, seg.Begin, nil)
		fmt.Fprintf(w, "  %s r%d = %s\n", term.GreenBold("reg"), id, value)
	}
}

func dumpMemory(w io.Writer, seg *Segment) {
	entries := seg.Memory.Entries()
	ordered := make([]int, len(entries))
	for i := range ordered {
		ordered[i] = i
	}
	sort.Slice(ordered, func(a, b int) bool {
		return entries[ordered[a]].Pointer().String() < entries[ordered[b]].Pointer().String()
	})
	for _, i := range ordered {
		e := entries[i]
		fmt.Fprintf(w, "  %s [%s] = %s\n", term.YellowBold("mem"), e.Pointer(), e.Value())
	}
}

func dumpBranch(w io.Writer, seg *Segment) {
	switch seg.BranchOp {
	case vtil.OpJs:
		fmt.Fprintf(w, "  %s %s ? %s : %s\n", term.CyanBold("js"), seg.Cond, seg.T1, seg.T0)
	case vtil.OpJmp:
		fmt.Fprintf(w, "  %s %s\n", term.CyanBold("jmp"), seg.Branch)
	case vtil.OpVexit:
		fmt.Fprintf(w, "  %s %s\n", term.RedBold("vexit"), seg.Branch)
	case vtil.OpVxcall:
		fmt.Fprintf(w, "  %s %s\n", term.RedBold("vxcall"), seg.Branch)
	default:
		fmt.Fprintf(w, "  %s\n", term.RedBold("(no branch — alias failure or volatile cut)"))
	}
}
