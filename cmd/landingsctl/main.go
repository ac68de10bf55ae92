// Command landingsctl checks a landings CSV from the terminal using the same
// parser and reference validation as the upload endpoint.
//
// Examples:
//
//	landingsctl parse landings.csv
//	landingsctl parse --output yaml --max-landings 50 landings.csv
//	landingsctl validate --reference-url http://localhost:9000 landings.csv
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/catchcert/internal/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

// errorLine renders err for the terminal: the catalogue message and code
// when one applies, then the underlying error.
func errorLine(err error) string {
	if !core.IsUserFacing(err) {
		return "error: " + err.Error()
	}
	return fmt.Sprintf("error: %s\n  detail: %v", core.FormatUserError(err), err)
}
