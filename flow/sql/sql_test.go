package sql_test

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lguimbarda/fibflow/flow"
	"github.com/lguimbarda/fibflow/flow/core"
	"github.com/lguimbarda/fibflow/flow/filter"
	"github.com/lguimbarda/fibflow/flow/sequence"
	flowsql "github.com/lguimbarda/fibflow/flow/sql"
	"github.com/lguimbarda/fibflow/flow/transform"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE terms (position INTEGER PRIMARY KEY, value TEXT NOT NULL)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return db
}

func seed(t *testing.T, db *sql.DB, values ...string) {
	t.Helper()
	for i, v := range values {
		if _, err := db.Exec(`INSERT INTO terms (position, value) VALUES (?, ?)`, i, v); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}
}

func scanTerm(rows *sql.Rows) (*big.Int, error) {
	var s string
	if err := rows.Scan(&s); err != nil {
		return nil, err
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.New("not a decimal integer: " + s)
	}
	return v, nil
}

func TestQuery(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, "1", "1", "2", "3", "5")

	got, err := flow.Slice(context.Background(), flowsql.Query(db, `SELECT value FROM terms ORDER BY position`, scanTerm))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{1, 1, 2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Int64() != want[i] {
			t.Errorf("row %d: got %s, want %d", i, got[i], want[i])
		}
	}
}

func TestQuery_WithArgs(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, "1", "1", "2", "3", "5")

	got, err := flow.Slice(context.Background(),
		flowsql.Query(db, `SELECT value FROM terms WHERE position >= ? ORDER BY position`, scanTerm, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Int64() != 3 {
		t.Errorf("unexpected rows %v", got)
	}
}

func TestQuery_IsLazy(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, "1", "1", "2")

	scanned := 0
	counting := func(rows *sql.Rows) (*big.Int, error) {
		scanned++
		return scanTerm(rows)
	}

	s := filter.Take[*big.Int](1).Apply(flowsql.Query(db, `SELECT value FROM terms ORDER BY position`, counting))
	if scanned != 0 {
		t.Fatalf("expected no rows read before the first pull")
	}
	if _, err := flow.Slice(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scanned != 1 {
		t.Errorf("expected a single row scanned, got %d", scanned)
	}

	// The result set was closed, so the single connection is free again.
	if _, err := db.Exec(`DELETE FROM terms`); err != nil {
		t.Errorf("connection still held by the query: %v", err)
	}
}

func TestQuery_Error(t *testing.T) {
	db := setupTestDB(t)

	_, err := flow.Slice(context.Background(), flowsql.Query(db, `SELECT value FROM missing`, scanTerm))
	if err == nil {
		t.Fatal("expected an error for a missing table")
	}
	var te *core.TransformError
	if !errors.As(err, &te) || te.Stage != "sql-query" {
		t.Errorf("expected the query stage to be blamed, got %v", err)
	}
}

func TestQuery_ScanError(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, "1", "oops")

	_, err := flow.Slice(context.Background(), flowsql.Query(db, `SELECT value FROM terms ORDER BY position`, scanTerm))
	if err == nil {
		t.Fatal("expected a scan error")
	}
}

func TestExec(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, "1", "1", "2")

	res, err := flow.First(context.Background(), flowsql.Exec(db, `DELETE FROM terms WHERE position > ?`, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RowsAffected != 2 {
		t.Errorf("expected 2 rows affected, got %d", res.RowsAffected)
	}

	results := flow.Collect(context.Background(), flowsql.Exec(db, `DELETE FROM terms`))
	if len(results) != 2 || !results[1].IsEndOfStream() {
		t.Errorf("expected a single result then end of stream, got %d results", len(results))
	}
}

func TestInsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	pipeline := flowsql.Insert(db, `INSERT INTO terms (position, value) VALUES (?, ?)`,
		func(item transform.Indexed[*big.Int]) []any {
			return []any{item.Index, item.Value.String()}
		},
	).Apply(transform.WithIndex[*big.Int]().Apply(sequence.New(sequence.Count(9))))

	forwarded, err := flow.Slice(ctx, pipeline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forwarded) != 10 {
		t.Fatalf("expected 10 forwarded elements, got %d", len(forwarded))
	}

	var count int
	var last string
	if err := db.QueryRow(`SELECT COUNT(*), MAX(CAST(value AS INTEGER)) FROM terms`).Scan(&count, &last); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 10 || last != "55" {
		t.Errorf("expected 10 rows up to 55, got %d rows up to %s", count, last)
	}
}

func TestInsert_FailureStopsSource(t *testing.T) {
	db := setupTestDB(t)
	src := sequence.New(sequence.Unbounded())

	// Every element goes to position 0, so the second insert violates the key.
	s := flowsql.Insert(db, `INSERT INTO terms (position, value) VALUES (0, ?)`, func(v *big.Int) []any {
		return []any{v.String()}
	}).Apply(src)

	_, err := flow.Slice(context.Background(), s)
	if err == nil {
		t.Fatal("expected a constraint violation")
	}
	if src.Steps() != 2 || src.State() != core.Destroyed {
		t.Errorf("expected the source stopped after 2 steps, got %d steps, %s", src.Steps(), src.State())
	}
}
