// Package trace implements lumen's optional execution trace store: a
// SQLite-backed sink that records one row per dispatched opcode, the
// persistent, queryable counterpart to the stdout disassembler.
package trace

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Sink records dispatched opcodes to a SQLite database. The zero value
// is not usable; construct one with Open.
type Sink struct {
	db   *sql.DB
	seq  int64
	stmt *sql.Stmt
}

// Open creates (or appends to) the trace database at path and prepares
// its vm_trace table.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS vm_trace (
	seq         INTEGER PRIMARY KEY,
	frame       TEXT NOT NULL,
	ip          INTEGER NOT NULL,
	op          TEXT NOT NULL,
	stack_depth INTEGER NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: create schema: %w", err)
	}

	var lastSeq int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM vm_trace`).Scan(&lastSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: read last seq: %w", err)
	}

	stmt, err := db.Prepare(`INSERT INTO vm_trace (seq, frame, ip, op, stack_depth) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: prepare insert: %w", err)
	}

	return &Sink{db: db, stmt: stmt, seq: lastSeq}, nil
}

// Record appends one row describing an about-to-be-executed opcode.
// frame identifies the function the VM is currently running (its name,
// or "main" at the top level); op is its disassembled mnemonic.
func (s *Sink) Record(frame string, ip int, op string, stackDepth int) error {
	s.seq++
	_, err := s.stmt.Exec(s.seq, frame, ip, op, stackDepth)
	if err != nil {
		return fmt.Errorf("trace: insert row %d: %w", s.seq, err)
	}
	return nil
}

// Close releases the prepared statement and underlying database handle.
func (s *Sink) Close() error {
	s.stmt.Close()
	return s.db.Close()
}
