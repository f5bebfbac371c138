package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const selectColumns = `name, fingerprint, ir, sources, location, ir_version, compiler_version, seq`

// GetSelect returns the select stored under name. It wraps ErrNotFound
// when there is none.
func (s *Store) GetSelect(ctx context.Context, name string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM compiled_selects
		WHERE name = ?
	`, name)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("select %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Record{}, err
	}

	params, err := s.readParams(ctx, name)
	if err != nil {
		return Record{}, err
	}
	rec.Params = params
	return rec, nil
}

// ListSelects returns every stored select ordered by name.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListSelects(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM compiled_selects
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query selects: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selects: %w", err)
	}

	for i := range records {
		params, err := s.readParams(ctx, records[i].Name)
		if err != nil {
			return nil, err
		}
		records[i].Params = params
	}
	return records, nil
}

// FindByFingerprint returns the names of all selects whose IR hashes to
// fingerprint, ordered by name.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name
		FROM compiled_selects
		WHERE fingerprint = ?
		ORDER BY name COLLATE BINARY ASC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query fingerprint: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

func (s *Store) readParams(ctx context.Context, name string) ([]Param, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type
		FROM compiled_params
		WHERE select_name = ?
		ORDER BY position ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query params for %q: %w", name, err)
	}
	defer rows.Close()

	params := []Param{}
	for rows.Next() {
		var p Param
		if err := rows.Scan(&p.Name, &p.Type); err != nil {
			return nil, fmt.Errorf("scan param: %w", err)
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate params: %w", err)
	}
	return params, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var sources string
	err := row.Scan(&rec.Name, &rec.Fingerprint, &rec.IR, &sources, &rec.Location,
		&rec.IRVersion, &rec.CompilerVersion, &rec.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan select: %w", err)
	}
	rec.Sources, err = unmarshalSources(sources)
	if err != nil {
		return Record{}, fmt.Errorf("select %q: %w", rec.Name, err)
	}
	return rec, nil
}
