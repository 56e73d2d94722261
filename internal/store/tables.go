package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"tabedit/internal/model"
)

// Table file formats exchanged with the worker process.
const (
	FormatColumnar = "tcol"
	FormatSQLite   = "sqlite"
)

const sqliteMagic = "SQLite format 3\x00"

// SniffFormat identifies a table file by its leading bytes.
func SniffFormat(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	head := make([]byte, len(sqliteMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, []byte(columnarMagic)):
		return FormatColumnar, nil
	case bytes.Equal(head, []byte(sqliteMagic)):
		return FormatSQLite, nil
	}
	return "", &FormatError{Format: filepath.Base(path), Err: errors.New("unrecognised table file")}
}

// WriteTableFile writes t to path in the given format.
func WriteTableFile(ctx context.Context, path, format string, t *model.Table) error {
	switch format {
	case FormatColumnar:
		return writeColumnarFile(path, []NamedTable{{Name: "table", Table: t}})
	case FormatSQLite:
		return WriteSQLiteFile(ctx, path, t)
	}
	return fmt.Errorf("unknown table format %q", format)
}

// WriteTableFileWithFallback writes columnar and falls back to SQLite when columnar
// encoding fails. It returns the format actually written.
func WriteTableFileWithFallback(ctx context.Context, path string, t *model.Table) (string, error) {
	err := WriteTableFile(ctx, path, FormatColumnar, t)
	if err == nil {
		return FormatColumnar, nil
	}
	if err := WriteTableFile(ctx, path, FormatSQLite, t); err != nil {
		return "", err
	}
	return FormatSQLite, nil
}

// ReadTableFile reads a single-table file. An empty format or a format that does not
// match the file contents is resolved by sniffing.
func ReadTableFile(ctx context.Context, path, format string) (*model.Table, error) {
	sniffed, err := SniffFormat(path)
	if err != nil {
		return nil, err
	}
	if format != "" && format != sniffed {
		slog.Warn("table format mismatch", "path", path, "want", format, "got", sniffed)
	}
	switch sniffed {
	case FormatSQLite:
		return ReadSQLiteFile(ctx, path)
	default:
		sheets, err := readColumnarFile(path)
		if err != nil {
			return nil, err
		}
		if len(sheets) == 0 {
			return model.BlankTable(), nil
		}
		return sheets[0].Table, nil
	}
}

func writeColumnarFile(path string, sheets []NamedTable) error {
	var buf bytes.Buffer
	if err := EncodeColumnar(&buf, sheets); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	return atomicWriteFile(dir, filepath.Base(path)+".*.tmp", path, buf.Bytes(), 0o644)
}

func readColumnarFile(path string) ([]NamedTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeColumnar(f)
}
