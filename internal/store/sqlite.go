package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"tabedit/internal/coerce"
	"tabedit/internal/model"
)

// SQLite is the fallback bridge format. The table is stored as TEXT cells in a
// "cells" table (c0..cN) with column names and types in "columns"; NULL is null.

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, p := range []string{"PRAGMA journal_mode=OFF;", "PRAGMA synchronous=OFF;"} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// WriteSQLiteFile replaces path with a SQLite database holding t.
func WriteSQLiteFile(ctx context.Context, path string, t *model.Table) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	db, err := openSQLite(ctx, path)
	if err != nil {
		return &FormatError{Format: "sqlite", Err: err}
	}
	defer db.Close()

	if err := writeSQLite(ctx, db, t); err != nil {
		return &FormatError{Format: "sqlite", Err: err}
	}
	return db.Close()
}

func writeSQLite(ctx context.Context, db *sql.DB, t *model.Table) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE columns (pos INTEGER PRIMARY KEY, name TEXT NOT NULL, type TEXT NOT NULL);`); err != nil {
		return err
	}
	defs := []string{"row INTEGER PRIMARY KEY"}
	marks := []string{"?"}
	for i, c := range t.Columns {
		if _, err := tx.ExecContext(ctx, `INSERT INTO columns(pos, name, type) VALUES(?, ?, ?);`, i, c.Name, string(c.Type)); err != nil {
			return err
		}
		defs = append(defs, fmt.Sprintf("c%d TEXT", i))
		marks = append(marks, "?")
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE cells (`+strings.Join(defs, ", ")+`);`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cells VALUES(`+strings.Join(marks, ", ")+`);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, t.NumCols()+1)
	for r := 0; r < t.NumRows(); r++ {
		args[0] = r
		for c := range t.Columns {
			v := t.Cell(r, c)
			if v == nil {
				args[c+1] = nil
				continue
			}
			args[c+1] = coerce.Format(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReadSQLiteFile loads a table written by WriteSQLiteFile.
func ReadSQLiteFile(ctx context.Context, path string) (*model.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, &FormatError{Format: "sqlite", Err: err}
	}
	defer db.Close()
	t, err := readSQLite(ctx, db)
	if err != nil {
		return nil, &FormatError{Format: "sqlite", Err: err}
	}
	return t, nil
}

func readSQLite(ctx context.Context, db *sql.DB) (*model.Table, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, type FROM columns ORDER BY pos;`)
	if err != nil {
		return nil, err
	}
	t := &model.Table{}
	for rows.Next() {
		var name, typName string
		if err := rows.Scan(&name, &typName); err != nil {
			_ = rows.Close()
			return nil, err
		}
		typ, err := model.ParseColumnType(typName)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		t.Columns = append(t.Columns, &model.Column{Name: name, Type: typ})
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(t.Columns) == 0 {
		return t, nil
	}

	cells, err := db.QueryContext(ctx, `SELECT * FROM cells ORDER BY row;`)
	if err != nil {
		return nil, err
	}
	defer cells.Close()

	dest := make([]sql.NullString, len(t.Columns)+1)
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	r := 0
	for cells.Next() {
		if err := cells.Scan(ptrs...); err != nil {
			return nil, err
		}
		for c, col := range t.Columns {
			cell := dest[c+1]
			if !cell.Valid {
				col.Values = append(col.Values, nil)
				continue
			}
			if col.Type == model.TypeText {
				col.Values = append(col.Values, cell.String)
				continue
			}
			v, err := coerce.Coerce(cell.String, col.Type)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", r+1, err)
			}
			col.Values = append(col.Values, v)
		}
		r++
	}
	return t, cells.Err()
}
