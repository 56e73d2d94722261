package document

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"tabedit/internal/coerce"
)

// RowJSON renders row as an indented JSON object whose keys keep column order.
func (d *Document) RowJSON(row int) ([]byte, error) {
	t := d.Table()
	if row < 0 || row >= t.NumRows() {
		return nil, opErr("preview row", "row %d out of range", row+1)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range t.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(jsonValue(c.Values[row]))
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return coerce.Format(x)
		}
		return x
	case time.Time:
		return coerce.Format(x)
	default:
		return v
	}
}
