package sqlitepg

import (
	"strings"

	"github.com/lib/pq"
)

// recordColumns lists the copied columns in Record field order.
var recordColumns = []string{"id", "username", "content", "image", "createdAt"}

// quoteIdent quotes a table or column name. A dotted name is quoted part by
// part so "public.Post" becomes "public"."Post". Double-quoted identifiers
// are valid in both PostgreSQL and SQLite.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// quoteSourceTable quotes the table name for the SQLite side. A SQLite file
// has no PostgreSQL schemas, so only the last part of a dotted name is used.
func quoteSourceTable(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return pq.QuoteIdentifier(name)
}

// columnList returns the quoted, comma separated record columns.
func columnList() string {
	quoted := make([]string, len(recordColumns))
	for i, col := range recordColumns {
		quoted[i] = quoteIdent(col)
	}
	return strings.Join(quoted, ", ")
}
