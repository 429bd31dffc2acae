// Command inspect dumps the directory store as a table, one row per key
// under the requested prefix. Read-only: safe to run next to a live server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/jasurbek-jolanboyev/safechat.uz/internal"
)

func main() {
	prefix := flag.String("prefix", "msg:", "key prefix to dump (msg:, idx:msg:, user:, entity:, member:, block:)")
	limit := flag.Int("limit", 50, "maximum rows to print")
	flag.Parse()

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Value"})
	table.SetAutoWrapText(false)

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek([]byte(*prefix)); it.ValidForPrefix([]byte(*prefix)) && count < *limit; it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			table.Append([]string{string(item.Key()), renderValue(val)})
			count++
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	table.Render()
	fmt.Printf("%d rows under %q\n", count, *prefix)
}

// renderValue compacts JSON records and falls back to hex length for the
// raw uuid values stored under index keys.
func renderValue(val []byte) string {
	if json.Valid(val) {
		return string(val)
	}
	return fmt.Sprintf("<%d raw bytes>", len(val))
}
