// sequence-sync catches category counters up with manually entered part
// numbers. Safe to run while the API is live; the counter only moves
// forward.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/sequence-sync
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/workflow"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	if err := workflow.SyncCategorySequences(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "sequence sync failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("sequence sync completed")
}
