package index

import (
	"context"
	"database/sql"
	"fmt"
)

/*
SQLIndex persists range index entries for any number of data sources in a
single SQLite table. A lookup reads all matching references and closes its
rows before returning, so no cursor outlives the call and concurrent lookups
never wait on a connection held by an abandoned iterator.
*/

////////////////////////////////////////////////////////////////////////////////

// SQLIndex is a persistent range index store.
type SQLIndex struct {
	db *sql.DB
}

// NewSQLIndex returns a new SQL index, creating its table if required.
func NewSQLIndex(db *sql.DB) (*SQLIndex, error) {
	idx := &SQLIndex{db: db}
	if err := idx.initialize(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *SQLIndex) initialize() error {
	var maxApplied int64
	err := s.db.QueryRow("select max(version) from schema_migrations").Scan(&maxApplied)
	if err == nil && maxApplied == 1 {
		return nil
	}
	if _, err := s.db.Exec(`
	create table if not exists range_index (
		source text not null,
		kind integer not null,
		ref integer not null,
		value real not null,
		primary key (source, kind, ref)
	);

	create index if not exists range_index_value on range_index (source, kind, value);

	create table if not exists schema_migrations(
		version bigint not null,
		timestamp text not null default current_timestamp
	);

	insert into schema_migrations(version) values (1);
	`); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Put records a reference for a data source.
func (s *SQLIndex) Put(ctx context.Context, source string, kind Kind, ref int, v float64) error {
	_, err := s.db.ExecContext(ctx, `
	insert into range_index (source, kind, ref, value) values ($1, $2, $3, $4)
	on conflict (source, kind, ref) do update set value = excluded.value`,
		source, int(kind), ref, v,
	)
	if err != nil {
		return fmt.Errorf("failed to store index entry: %w", err)
	}
	return nil
}

// Delete removes all entries of a data source.
func (s *SQLIndex) Delete(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, `delete from range_index where source = $1`, source); err != nil {
		return fmt.Errorf("failed to delete index entries: %w", err)
	}
	return nil
}

// Source returns the index of a single data source.
func (s *SQLIndex) Source(source string) Index {
	return &sqlSourceIndex{db: s.db, source: source}
}

type sqlSourceIndex struct {
	db     *sql.DB
	source string
}

func (s *sqlSourceIndex) RangeIter(ctx context.Context, token RangeToken) (Iterator, error) {
	if token.Min > token.Max {
		return nil, ErrInvalidRange
	}
	rows, err := s.db.QueryContext(ctx, `
	select ref from range_index
	where source = $1 and kind = $2 and value between $3 and $4
	order by ref`,
		s.source, int(token.Kind), token.Min, token.Max,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query range index: %w", err)
	}
	defer rows.Close()
	refs := []int{}
	for rows.Next() {
		var ref int
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read range index: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to close rows: %w", err)
	}
	return NewSliceIterator(refs...), nil
}
