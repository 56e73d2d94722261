package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"

	"tabedit/internal/model"
)

// Columnar (.tcol) layout: magic, version byte, then a zstd stream of
//
//	uvarint sheets
//	per sheet: string name, uvarint rows, uvarint cols
//	per column: string name, string type, null bitmap, non-null values
//
// Strings are uvarint length + bytes. Ints are zigzag varints, floats are IEEE bits,
// timestamps are RFC3339Nano strings so the zone offset survives.
const (
	columnarMagic   = "TCOL"
	columnarVersion = 1
)

// Decode limits. Sizes above them are treated as corruption before anything is
// allocated.
const (
	maxColumnarSheets = 1 << 12
	maxColumnarCols   = 1 << 16
	maxColumnarRows   = 1 << 24
)

// NamedTable is one sheet in a multi-sheet file.
type NamedTable struct {
	Name  string
	Table *model.Table
}

// FormatError reports a table file that could not be decoded.
type FormatError struct {
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

var errTruncated = errors.New("truncated data")

type colWriter struct {
	buf     bytes.Buffer
	scratch [binary.MaxVarintLen64]byte
}

func (w *colWriter) uvarint(v uint64) {
	n := binary.PutUvarint(w.scratch[:], v)
	w.buf.Write(w.scratch[:n])
}

func (w *colWriter) varint(v int64) {
	n := binary.PutVarint(w.scratch[:], v)
	w.buf.Write(w.scratch[:n])
}

func (w *colWriter) str(s string) {
	w.uvarint(uint64(len(s)))
	w.buf.WriteString(s)
}

// EncodeColumnar writes sheets to w in the .tcol format.
func EncodeColumnar(w io.Writer, sheets []NamedTable) error {
	var cw colWriter
	cw.uvarint(uint64(len(sheets)))
	for _, s := range sheets {
		if s.Table == nil {
			return &FormatError{Format: "tcol", Err: fmt.Errorf("sheet %q has no table", s.Name)}
		}
		rows := s.Table.NumRows()
		cw.str(s.Name)
		cw.uvarint(uint64(rows))
		cw.uvarint(uint64(s.Table.NumCols()))
		for _, c := range s.Table.Columns {
			if err := cw.column(c, rows); err != nil {
				return &FormatError{Format: "tcol", Err: fmt.Errorf("column %q: %w", c.Name, err)}
			}
		}
	}

	if _, err := io.WriteString(w, columnarMagic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{columnarVersion}); err != nil {
		return err
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := enc.Write(cw.buf.Bytes()); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (w *colWriter) column(c *model.Column, rows int) error {
	w.str(c.Name)
	w.str(string(c.Type))
	bitmap := make([]byte, (rows+7)/8)
	for i, v := range c.Values {
		if v == nil {
			bitmap[i/8] |= 1 << (i % 8)
		}
	}
	w.buf.Write(bitmap)
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		switch c.Type {
		case model.TypeInt:
			x, ok := v.(int64)
			if !ok {
				return fmt.Errorf("row %d: %T in int column", i+1, v)
			}
			w.varint(x)
		case model.TypeFloat:
			x, ok := v.(float64)
			if !ok {
				return fmt.Errorf("row %d: %T in float column", i+1, v)
			}
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
			w.buf.Write(b[:])
		case model.TypeBool:
			x, ok := v.(bool)
			if !ok {
				return fmt.Errorf("row %d: %T in bool column", i+1, v)
			}
			if x {
				w.buf.WriteByte(1)
			} else {
				w.buf.WriteByte(0)
			}
		case model.TypeTimestamp:
			x, ok := v.(time.Time)
			if !ok {
				return fmt.Errorf("row %d: %T in timestamp column", i+1, v)
			}
			w.str(x.Format(time.RFC3339Nano))
		case model.TypeText:
			x, ok := v.(string)
			if !ok {
				return fmt.Errorf("row %d: %T in text column", i+1, v)
			}
			w.str(x)
		default:
			return fmt.Errorf("unknown column type %q", c.Type)
		}
	}
	return nil
}

type colReader struct {
	r *bufio.Reader
}

func (r colReader) uvarint() (uint64, error) {
	v, err := binary.ReadUvarint(r.r)
	if err == io.EOF {
		return 0, errTruncated
	}
	return v, err
}

func (r colReader) str() (string, error) {
	n, err := r.uvarint()
	if err != nil {
		return "", err
	}
	if n > 1<<30 {
		return "", fmt.Errorf("string length %d too large", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return "", errTruncated
	}
	return string(b), nil
}

// DecodeColumnar reads a .tcol stream.
func DecodeColumnar(rd io.Reader) ([]NamedTable, error) {
	head := make([]byte, len(columnarMagic)+1)
	if _, err := io.ReadFull(rd, head); err != nil {
		return nil, &FormatError{Format: "tcol", Err: errTruncated}
	}
	if string(head[:len(columnarMagic)]) != columnarMagic {
		return nil, &FormatError{Format: "tcol", Err: errors.New("bad magic")}
	}
	if head[len(columnarMagic)] != columnarVersion {
		return nil, &FormatError{Format: "tcol", Err: fmt.Errorf("unsupported version %d", head[len(columnarMagic)])}
	}
	dec, err := zstd.NewReader(rd)
	if err != nil {
		return nil, &FormatError{Format: "tcol", Err: err}
	}
	defer dec.Close()

	sheets, err := decodeSheets(colReader{r: bufio.NewReader(dec)})
	if err != nil {
		return nil, &FormatError{Format: "tcol", Err: err}
	}
	return sheets, nil
}

func decodeSheets(r colReader) ([]NamedTable, error) {
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if n > maxColumnarSheets {
		return nil, fmt.Errorf("sheet count %d too large", n)
	}
	var out []NamedTable
	for s := uint64(0); s < n; s++ {
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		rows, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		cols, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if rows > maxColumnarRows {
			return nil, fmt.Errorf("sheet %q: row count %d too large", name, rows)
		}
		if cols > maxColumnarCols {
			return nil, fmt.Errorf("sheet %q: column count %d too large", name, cols)
		}
		t := &model.Table{}
		for c := uint64(0); c < cols; c++ {
			col, err := r.column(int(rows))
			if err != nil {
				return nil, fmt.Errorf("sheet %q: %w", name, err)
			}
			t.Columns = append(t.Columns, col)
		}
		out = append(out, NamedTable{Name: name, Table: t})
	}
	return out, nil
}

func (r colReader) column(rows int) (*model.Column, error) {
	name, err := r.str()
	if err != nil {
		return nil, err
	}
	typName, err := r.str()
	if err != nil {
		return nil, err
	}
	typ, err := model.ParseColumnType(typName)
	if err != nil {
		return nil, err
	}
	bitmap := make([]byte, (rows+7)/8)
	if _, err := io.ReadFull(r.r, bitmap); err != nil {
		return nil, errTruncated
	}
	vals := make([]any, rows)
	for i := range vals {
		if bitmap[i/8]&(1<<(i%8)) != 0 {
			continue
		}
		switch typ {
		case model.TypeInt:
			x, err := binary.ReadVarint(r.r)
			if err != nil {
				return nil, errTruncated
			}
			vals[i] = x
		case model.TypeFloat:
			var b [8]byte
			if _, err := io.ReadFull(r.r, b[:]); err != nil {
				return nil, errTruncated
			}
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
		case model.TypeBool:
			b, err := r.r.ReadByte()
			if err != nil {
				return nil, errTruncated
			}
			vals[i] = b != 0
		case model.TypeTimestamp:
			s, err := r.str()
			if err != nil {
				return nil, err
			}
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", name, i+1, err)
			}
			vals[i] = ts
		default:
			s, err := r.str()
			if err != nil {
				return nil, err
			}
			vals[i] = s
		}
	}
	return &model.Column{Name: name, Type: typ, Values: vals}, nil
}
