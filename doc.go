// SPDX-License-Identifier: MIT

// Package sqlitepg copies one table from a local SQLite file into a
// PostgreSQL database.  It is a one-shot data move: read every row from
// the source, truncate the destination table, and insert the rows again
// with their original ids.
//
// Schema is not managed here.  Create the destination table first with
// whatever migration tool owns it (Prisma, gostgrator, ...).
//
// # Install
//
//	go install github.com/bcomnes/sqlitepg/cmd/sqlitepg@latest
//
// # Quick start
//
//	import (
//	    "context"
//	    "log"
//	    "os"
//
//	    "github.com/bcomnes/sqlitepg"
//	)
//
//	func main() {
//	    m, err := sqlitepg.NewMigrator(sqlitepg.Config{
//	        DestinationURL: os.Getenv("DATABASE_URL"),
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    res, err := m.Run(context.Background())
//	    ...
//	}
//
// # Configuration
//
//   - SourcePath      — SQLite file to read (default "./prisma/dev.db")
//   - Table           — table copied, same name on both sides (default "Post")
//   - DestinationURL  — PostgreSQL connection string, required
//   - Atomic          — wrap truncate + inserts in one transaction
//   - AllowInsecure   — allow a destination without TLS
//
// A schema-qualified Table such as "public.Post" is used as given in
// PostgreSQL; the SQLite side reads the unqualified "Post".
//
// LoadConfig reads the same fields from a JSON or YAML file.
//
// # Table shape
//
// The copied table has the columns id, username, content, image (nullable)
// and "createdAt".  createdAt may be stored in SQLite as a DATETIME, as
// epoch milliseconds, or as text; it is written as a timestamp.
//
// # Transport
//
// The destination connection must be encrypted.  A connection string
// without an sslmode gets sslmode=require; one that permits a plaintext
// connection (disable, allow, prefer) is rejected with ErrInsecureTransport
// unless AllowInsecure is set.
//
// # Failure behaviour
//
// Without Atomic each insert is its own statement, so a failure part way
// through leaves the destination table partially filled.  RunError reports
// how many records were inserted before the failure.  Every error wraps
// one of ErrArgumentMissing, ErrSourceConnect, ErrSourceRead,
// ErrDestinationConnect or ErrQuery.
package sqlitepg
