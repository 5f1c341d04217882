// Package row implements the fixed-width row codec used by memdb tables.
//
// A Layout is compiled from a schema.Schema and maps every column to a fixed
// byte range inside a row slot:
//
//	Int    width bytes, little endian, two's complement
//	Float  8 bytes, IEEE-754
//	String length prefix (1, 2 or 4 bytes, sized from maxLen) + maxLen bytes
//
// Encoding validates the whole row before touching the destination slot, so
// a failed write never leaves a partially updated row behind.
package row

// Row is a decoded row keyed by column name.
//
// Decoded rows hold int64, float64 and string values. Rows passed to Encode
// may use any integer or float kind, json.Number, string or []byte.
type Row map[string]any

// Int returns the named integer value.
func (r Row) Int(name string) (int64, bool) {
	v, ok := r[name].(int64)
	return v, ok
}

// Float returns the named float value.
func (r Row) Float(name string) (float64, bool) {
	v, ok := r[name].(float64)
	return v, ok
}

// String returns the named string value.
func (r Row) String(name string) (string, bool) {
	v, ok := r[name].(string)
	return v, ok
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
