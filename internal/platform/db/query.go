package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the read surface shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var (
	prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// Tables resolves ledger table names under an optional prefix.
type Tables struct {
	prefix string
}

// NewTables validates the table prefix.
func NewTables(prefix string) (Tables, error) {
	if !prefixPattern.MatchString(prefix) {
		return Tables{}, fmt.Errorf("platform/db: invalid table prefix %q", prefix)
	}
	return Tables{prefix: prefix}, nil
}

// Name returns the prefixed table name.
func (t Tables) Name(table string) string {
	return t.prefix + table
}

// Args collects positional parameters while a statement is assembled.
type Args struct {
	values []any
}

// Add appends v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

// Values returns the collected parameters.
func (a *Args) Values() []any {
	return a.values
}

// LikePattern turns free text into a contains pattern where whitespace
// matches any run of characters.
func LikePattern(s string) string {
	s = strings.TrimSpace(s)
	return "%" + spaceRun.ReplaceAllString(s, "%%") + "%"
}

// SQLState extracts the Postgres error code, if any.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
