// Command tabload bulk-loads FSDB or JSON-lines tables into a relational
// store (sqlite3, PostgreSQL, MariaDB) or prints the statements it would run.
//
//	tabload load data.fsdb out.sqlite -i a,b -e src=string -v src=loaderA
//	tabload load -t pg data.jsonl postgres://user@host/db --delete
//	tabload json2fsdb records.jsonl.gz records.fsdb
//	tabload backends
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	// register every sink backend with the storage registry.
	_ "tabload/internal/storage/all"
)

func main() {
	_ = godotenv.Load() // .env is optional

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "tabload:", err)
		stop()
		os.Exit(1)
	}
}
