// inventory-export writes the full inventory dataset to an xlsx file, for
// scheduled backups outside the API.
//
// Usage:
//   DB_USER=... DB_HOST=... go run ./cmd/inventory-export [output.xlsx]
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/workflow"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	filename := "inventory_" + time.Now().Format("20060102_150405") + ".xlsx"
	if len(os.Args) > 1 {
		filename = os.Args[1]
	}

	f, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", filename, err)
		os.Exit(1)
	}
	defer f.Close()

	if err := workflow.ExportInventoryWorkbook(context.Background(), f); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("exported inventory to %s\n", filename)
}
