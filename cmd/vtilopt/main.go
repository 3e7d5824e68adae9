// Command vtilopt runs the symbolic block analyzer and re-emitter over a
// JSON-encoded basic block, printing the segment trace (C5) and, unless
// -q is set, a before/after instruction count.
//
// Separation of concern is handled through reliance on an oracle file
// describing the block's instructions, the same convention
// _examples/mewmew-x's x tool uses for addresses and calling conventions.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/mewkiz/pkg/term"

	"github.com/vtil-project/vtil-go/analysis"
)

var (
	// dbg is a logger which logs debug messages with "vtilopt:" prefix to
	// standard error.
	dbg = log.New(os.Stderr, term.MagentaBold("vtilopt:")+" ", 0)
	// warn is a logger which logs warning messages with "warning:" prefix
	// to standard error.
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

func main() {
	var (
		quiet bool
		pack  bool
	)
	flag.BoolVar(&quiet, "q", false, "suppress non-error messages")
	flag.BoolVar(&pack, "pack", true, "pack sub-register writes during preparation")
	flag.Parse()

	if quiet {
		dbg.SetOutput(ioutil.Discard)
	}

	for _, jsonPath := range flag.Args() {
		if err := run(jsonPath, pack, quiet); err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

func run(jsonPath string, pack, quiet bool) error {
	dbg.Printf("run(jsonPath = %q)", jsonPath)
	block, err := loadBlock(jsonPath)
	if err != nil {
		return err
	}
	before := len(block.Instructions)

	a := analysis.New(block)
	a.Update()
	a.Prepare(pack)
	a.Reemit()
	a.Dump(os.Stdout)

	if !quiet {
		after := len(block.Instructions)
		fmt.Fprintf(os.Stdout, "%s %d -> %d instructions\n", term.GreenBold("result:"), before, after)
	}
	return nil
}
