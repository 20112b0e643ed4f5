// Package store checkpoints emitted terms in a sqlite database and reads
// them back as a stream.
package store

import (
	"database/sql"
	"fmt"
	"math/big"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lguimbarda/fibflow/flow/core"
	flowsql "github.com/lguimbarda/fibflow/flow/sql"
	"github.com/lguimbarda/fibflow/flow/transform"
)

const schema = `CREATE TABLE IF NOT EXISTS terms (
	position INTEGER PRIMARY KEY,
	value    TEXT NOT NULL
)`

// Open opens the database at path and creates the terms table if needed.
// Terms are stored as decimal text, so they keep their full precision.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection, so ":memory:" databases are shared by every query.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// Reset deletes every stored term.
func Reset(db *sql.DB) error {
	if _, err := db.Exec(`DELETE FROM terms`); err != nil {
		return fmt.Errorf("reset terms: %w", err)
	}
	return nil
}

// Checkpoint creates a Transformer storing every term at its position and
// forwarding it unchanged. Positions start at 0 for each application; a
// position already stored is overwritten.
//
// A term is stored when it passes through, before any sink downstream has
// written it. If the destination closes while writing a term, that term is
// stored but not delivered, so the store holds one term more than the
// sink's Report.Delivered.
func Checkpoint(db *sql.DB) core.Transformer[*big.Int, *big.Int] {
	return core.Transmit(func(in core.Stream[*big.Int]) core.Stream[*big.Int] {
		indexed := transform.WithIndex[*big.Int]().Apply(in)
		stored := flowsql.Insert(db,
			`INSERT OR REPLACE INTO terms (position, value) VALUES (?, ?)`,
			func(item transform.Indexed[*big.Int]) []any {
				return []any{item.Index, item.Value.String()}
			},
		).Apply(indexed)
		return core.Map(func(item transform.Indexed[*big.Int]) (*big.Int, error) {
			return item.Value, nil
		}).Apply(stored)
	})
}

// Terms streams the stored terms in position order.
func Terms(db *sql.DB) core.Stream[*big.Int] {
	return flowsql.Query(db, `SELECT value FROM terms ORDER BY position`, scanTerm)
}

func scanTerm(rows *sql.Rows) (*big.Int, error) {
	var s string
	if err := rows.Scan(&s); err != nil {
		return nil, err
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("stored term %q is not a decimal integer", s)
	}
	return v, nil
}
