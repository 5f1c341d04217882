package row

import (
	"bytes"
	"encoding/json"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/memdb/schema"
)

var jsonNull = []byte("null")

// FromJSON converts a decoded JSON object into a Row using the layout's
// column types. Integers keep full int64 precision. Fields the layout does
// not define are ignored, so snapshots written before a column was dropped
// still load.
func (l *Layout) FromJSON(fields map[string]json.RawMessage) (Row, error) {
	r := make(Row, len(fields))
	for name, raw := range fields {
		i, ok := l.index[name]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
			continue
		}

		f := l.fields[i]
		switch f.col.Type {
		case schema.TypeInt, schema.TypeFloat:
			if raw[0] == '"' {
				return nil, fieldErr(name, string(raw), ErrTypeMismatch)
			}
			r[name] = json.Number(raw)
		case schema.TypeString:
			var s string
			if err := gojson.Unmarshal(raw, &s); err != nil {
				return nil, fieldErr(name, string(raw), ErrTypeMismatch)
			}
			r[name] = s
		}
	}
	return r, nil
}
