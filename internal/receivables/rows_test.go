package receivables

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// stubRows replays fixed values through pgx.Rows.
type stubRows struct {
	values  [][]any
	pos     int
	scanErr error
	iterErr error
	closed  bool
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return r.iterErr }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *stubRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

func (r *stubRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.values[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("stub rows: %d destinations for %d values", len(dest), len(row))
	}
	for i, v := range row {
		target := reflect.ValueOf(dest[i]).Elem()
		value := reflect.ValueOf(v)
		if !value.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("stub rows: column %d: cannot assign %T to %s", i, v, target.Type())
		}
		target.Set(value)
	}
	return nil
}

// stubQuerier serves one stubRows per call, in order.
type stubQuerier struct {
	rows     []*stubRows
	err      error
	calls    int
	lastArgs []any
}

func (q *stubQuerier) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	q.lastArgs = args
	if q.err != nil {
		return nil, q.err
	}
	if q.calls >= len(q.rows) {
		return nil, errors.New("stub querier: unexpected query")
	}
	rows := q.rows[q.calls]
	q.calls++
	return rows, nil
}
