package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"tabedit/internal/coerce"
	"tabedit/internal/model"
)

// inferOrder is tried per column; the first type every non-empty cell coerces to wins.
var inferOrder = []model.ColumnType{model.TypeInt, model.TypeFloat, model.TypeBool, model.TypeTimestamp}

// ReadCSV parses a header row plus records. Short records are padded with nulls and
// column types are inferred from the data.
func ReadCSV(r io.Reader) (*model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &FormatError{Format: "csv", Err: err}
	}
	if len(records) == 0 {
		t := model.BlankTable()
		return t, nil
	}

	header := records[0]
	width := len(header)
	for _, rec := range records[1:] {
		if len(rec) > width {
			width = len(rec)
		}
	}

	t := &model.Table{}
	for c := 0; c < width; c++ {
		raw := make([]string, len(records)-1)
		for r, rec := range records[1:] {
			if c < len(rec) {
				raw[r] = rec[c]
			}
		}
		name := ""
		if c < len(header) {
			name = norm.NFC.String(strings.TrimSpace(strings.TrimPrefix(header[c], "\ufeff")))
		}
		if name == "" {
			name = fmt.Sprintf("column%d", c+1)
		}
		if existing, _ := t.Column(name); existing != nil {
			name = t.UniqueColumnName(name)
		}
		col, err := typedColumn(name, raw)
		if err != nil {
			return nil, &FormatError{Format: "csv", Err: err}
		}
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}

func typedColumn(name string, raw []string) (*model.Column, error) {
	typ := inferColumnType(raw)
	vals := make([]any, len(raw))
	for i, s := range raw {
		if typ == model.TypeText {
			if s != "" {
				vals[i] = s
			}
			continue
		}
		v, err := coerce.Coerce(s, typ)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i+1, err)
		}
		vals[i] = v
	}
	return &model.Column{Name: name, Type: typ, Values: vals}, nil
}

func inferColumnType(raw []string) model.ColumnType {
	nonEmpty := 0
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return model.TypeText
	}
	for _, typ := range inferOrder {
		ok := true
		for _, s := range raw {
			if strings.TrimSpace(s) == "" {
				continue
			}
			if _, err := coerce.Coerce(s, typ); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return typ
		}
	}
	return model.TypeText
}

// WriteCSV writes t with a header row. Nulls are written as empty fields.
func WriteCSV(w io.Writer, t *model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	rec := make([]string, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for c := range rec {
			rec[c] = ""
			if v := t.Cell(r, c); v != nil {
				rec[c] = coerce.Format(v)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
