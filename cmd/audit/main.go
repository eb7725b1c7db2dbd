package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1 // configuration or runtime error
	ExitNoData  = 2 // the analysis ran but no source produced usable data
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)

		var noData *audit.NoUsableDataError
		if errors.As(err, &noData) {
			os.Exit(ExitNoData)
		}
		os.Exit(ExitError)
	}
}
