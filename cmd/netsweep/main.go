// Command netsweep drives an external host discovery tool over a CSV
// worklist of network prefixes and reconciles the results into a merged
// inventory table.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/perimeterhq/netsweep/internal/cmd"
	"github.com/perimeterhq/netsweep/internal/observability"
)

// Build-time version metadata, injected via ldflags.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cmd.Execute(ctx)
	observability.Sync()
	os.Exit(code)
}
