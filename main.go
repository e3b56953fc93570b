// The main package for the venue-ingest executable.
package main

import (
	"context"
	"os"

	"github.com/JakeFAU/venue-ingest/cmd"
)

func main() {
	os.Exit(cmd.Execute(context.Background()))
}
