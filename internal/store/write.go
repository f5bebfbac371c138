package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PutSelect stores rec under rec.Name, replacing any earlier row.
// Rewriting an identical select at the same location is a no-op and
// reports false.
func (s *Store) PutSelect(ctx context.Context, rec Record) (bool, error) {
	if rec.Name == "" {
		return false, fmt.Errorf("put select: empty name")
	}
	sources, err := marshalSources(rec.Sources)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO compiled_selects
			(name, fingerprint, ir, sources, location, ir_version, compiler_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM compiled_selects))
		ON CONFLICT(name) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			ir = excluded.ir,
			sources = excluded.sources,
			location = excluded.location,
			ir_version = excluded.ir_version,
			compiler_version = excluded.compiler_version,
			seq = excluded.seq
		WHERE compiled_selects.fingerprint != excluded.fingerprint
			OR compiled_selects.sources != excluded.sources
			OR compiled_selects.location != excluded.location
	`, rec.Name, rec.Fingerprint, rec.IR, sources, rec.Location, rec.IRVersion, rec.CompilerVersion)
	if err != nil {
		return false, fmt.Errorf("insert select %q: %w", rec.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := writeParams(ctx, tx, rec); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func writeParams(ctx context.Context, tx *sql.Tx, rec Record) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM compiled_params WHERE select_name = ?`, rec.Name); err != nil {
		return fmt.Errorf("clear params for %q: %w", rec.Name, err)
	}
	for i, p := range rec.Params {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO compiled_params (select_name, position, name, type)
			VALUES (?, ?, ?, ?)
		`, rec.Name, i, p.Name, p.Type)
		if err != nil {
			return fmt.Errorf("insert param %d for %q: %w", i, rec.Name, err)
		}
	}
	return nil
}

// DeleteSelect removes the select stored under name, reporting whether
// a row existed.
func (s *Store) DeleteSelect(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM compiled_selects WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete select %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
