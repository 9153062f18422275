// Command worker runs the billing reconciliation loop as its own process.
package main

import (
	"context"
	"os"

	"github.com/repolens/gatekeeper/internal/interfaces/cli/reconcile"
)

func main() {
	cmd := reconcile.NewCommand()
	cmd.Use = "worker"
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
