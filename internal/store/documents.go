package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tabedit/internal/document"
	"tabedit/internal/model"
)

// UnsupportedFormatError is returned for files that are neither .csv nor .tcol.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	ext := filepath.Ext(e.Path)
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("unsupported file type %s: %s (want .csv or .tcol)", ext, e.Path)
}

// DocumentFormat returns "csv" or "tcol" for a path.
func DocumentFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv", nil
	case ".tcol":
		return FormatColumnar, nil
	}
	return "", &UnsupportedFormatError{Path: path}
}

// Load opens an existing document.
func Load(path string) (*document.Document, error) {
	format, err := DocumentFormat(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case "csv":
		t, err := ReadCSV(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		t.EnsureNonEmpty()
		return document.New(t), nil
	default:
		named, err := DecodeColumnar(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		if len(named) == 0 {
			return document.New(model.BlankTable()), nil
		}
		sheets := make([]*document.Sheet, 0, len(named))
		for _, n := range named {
			n.Table.EnsureNonEmpty()
			sheets = append(sheets, document.NewSheet(n.Name, n.Table))
		}
		return document.FromSheets(sheets...), nil
	}
}

// LoadOrCreate opens path, or returns a blank document when the file does not exist.
// created reports the latter.
func LoadOrCreate(path string) (doc *document.Document, created bool, err error) {
	if _, err := DocumentFormat(path); err != nil {
		return nil, false, err
	}
	doc, err = Load(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("new document", "path", path)
		return document.New(model.BlankTable()), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, false, nil
}

// Save writes doc to path. CSV holds only the active sheet.
func Save(path string, doc *document.Document) error {
	format, err := DocumentFormat(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	switch format {
	case "csv":
		if n := len(doc.Sheets()); n > 1 {
			slog.Warn("csv keeps only the active sheet", "path", path, "sheets", n)
		}
		if err := WriteCSV(&buf, doc.Table()); err != nil {
			return err
		}
	default:
		sheets := make([]NamedTable, 0, len(doc.Sheets()))
		for _, s := range doc.Sheets() {
			sheets = append(sheets, NamedTable{Name: s.Name, Table: s.Table})
		}
		if err := EncodeColumnar(&buf, sheets); err != nil {
			return err
		}
	}
	if err := atomicWriteFile(dir, filepath.Base(path)+".*.tmp", path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	doc.MarkSaved()
	slog.Info("saved", "path", path, "format", format, "bytes", buf.Len())
	return nil
}
