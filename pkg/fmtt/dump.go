// Package fmtt prints values and error chains for debugging.
package fmtt

import (
	"errors"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump writes a labelled deep dump of v to w.
func Dump(w io.Writer, label string, v any) {
	fmt.Fprintf(w, "--- %s\n", label)
	dumper.Fdump(w, v)
}

// PrintErrChain walks an error chain and prints each layer with its type.
// Joined errors are walked depth-first.
func PrintErrChain(w io.Writer, err error) {
	if err == nil {
		fmt.Fprintln(w, "<nil>")
		return
	}
	printErr(w, err, 0)
}

func printErr(w io.Writer, err error, depth int) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(w, "%*s[%d] %T: %v\n", 2*depth, "", depth, e, e)
		if multi, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range multi.Unwrap() {
				printErr(w, inner, depth+1)
			}
			return
		}
		depth++
	}
}
