// Command reviews serves the company reviews API and manages its data.
//
//	reviews serve
//	reviews user create --username adam
//	reviews company list
package main

import (
	"os"

	"github.com/sakif/company-reviews/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// cobra has already printed the error.
		os.Exit(1)
	}
}
