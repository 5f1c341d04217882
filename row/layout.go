package row

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/memdb/schema"
)

type field struct {
	col    schema.Column
	off    int // start of the field inside the slot
	prefix int // length prefix bytes, strings only
	width  int // value bytes
}

func (f field) size() int { return f.prefix + f.width }

// Layout is the compiled, fixed-width representation of a schema.
// A Layout is immutable and safe for concurrent use.
type Layout struct {
	schema schema.Schema
	fields []field
	index  map[string]int
	width  int
}

// Compile validates the schema and computes the slot layout.
func Compile(s schema.Schema) (*Layout, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	l := &Layout{
		schema: s.Clone(),
		fields: make([]field, len(s)),
		index:  make(map[string]int, len(s)),
	}

	off := 0
	for i, c := range s {
		f := field{col: c, off: off, width: c.Width()}
		if c.Type == schema.TypeString {
			f.prefix = lengthPrefix(c.Size)
		}
		l.fields[i] = f
		l.index[c.Name] = i
		off += f.size()
	}
	l.width = off

	return l, nil
}

func lengthPrefix(maxLen int) int {
	switch {
	case maxLen <= math.MaxUint8:
		return 1
	case maxLen <= math.MaxUint16:
		return 2
	default:
		return 4
	}
}

// Width returns the slot size in bytes.
func (l *Layout) Width() int { return l.width }

// Schema returns a copy of the compiled schema.
func (l *Layout) Schema() schema.Schema { return l.schema.Clone() }

// Column returns the named column definition.
func (l *Layout) Column(name string) (schema.Column, bool) {
	i, ok := l.index[name]
	if !ok {
		return schema.Column{}, false
	}
	return l.fields[i].col, true
}

// Encode validates values and returns a new slot. Missing columns hold zero values.
func (l *Layout) Encode(values Row) ([]byte, error) {
	slot := make([]byte, l.width)
	if err := l.EncodeInto(slot, values); err != nil {
		return nil, err
	}
	return slot, nil
}

// EncodeInto writes values over an existing slot. Columns absent from values
// keep their current bytes. Either every value is written or none is.
func (l *Layout) EncodeInto(dst []byte, values Row) error {
	if len(dst) != l.width {
		return fmt.Errorf("slot size %d does not match layout width %d", len(dst), l.width)
	}

	scratch := make([]byte, l.width)
	copy(scratch, dst)

	for name, v := range values {
		i, ok := l.index[name]
		if !ok {
			return fieldErr(name, v, ErrUnknownColumn)
		}
		if err := l.put(scratch, l.fields[i], v); err != nil {
			return err
		}
	}

	copy(dst, scratch)
	return nil
}

func (l *Layout) put(slot []byte, f field, v any) error {
	b := slot[f.off : f.off+f.size()]

	if v == nil {
		clear(b)
		return nil
	}

	switch f.col.Type {
	case schema.TypeInt:
		n, err := toInt64(v)
		if err != nil {
			return fieldErr(f.col.Name, v, err)
		}
		if !fits(n, f.width) {
			return fieldErr(f.col.Name, v, ErrOutOfRange)
		}
		putInt(b, f.width, n)
	case schema.TypeFloat:
		x, err := toFloat64(v)
		if err != nil {
			return fieldErr(f.col.Name, v, err)
		}
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
	case schema.TypeString:
		s, err := toString(v)
		if err != nil {
			return fieldErr(f.col.Name, v, err)
		}
		if len(s) > f.width {
			return fieldErr(f.col.Name, v, ErrLengthExceeded)
		}
		putLen(b[:f.prefix], len(s))
		n := copy(b[f.prefix:], s)
		clear(b[f.prefix+n:])
	}
	return nil
}

// Decode returns every column of the slot.
func (l *Layout) Decode(slot []byte) Row {
	r := make(Row, len(l.fields))
	for _, f := range l.fields {
		r[f.col.Name] = l.get(slot, f)
	}
	return r
}

// DecodeField returns a single column of the slot.
func (l *Layout) DecodeField(slot []byte, name string) (any, error) {
	i, ok := l.index[name]
	if !ok {
		return nil, fieldErr(name, nil, ErrUnknownColumn)
	}
	return l.get(slot, l.fields[i]), nil
}

func (l *Layout) get(slot []byte, f field) any {
	b := slot[f.off : f.off+f.size()]
	switch f.col.Type {
	case schema.TypeInt:
		return getInt(b, f.width)
	case schema.TypeFloat:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case schema.TypeString:
		n := getLen(b[:f.prefix])
		if n > f.width {
			n = f.width
		}
		return string(b[f.prefix : f.prefix+n])
	default:
		return nil
	}
}

// AddInt adds delta to an integer column in place and returns the new value.
func (l *Layout) AddInt(slot []byte, name string, delta int64) (int64, error) {
	f, err := l.numeric(name, schema.TypeInt)
	if err != nil {
		return 0, err
	}
	b := slot[f.off : f.off+f.width]
	old := getInt(b, f.width)
	sum := old + delta
	if (delta > 0 && sum < old) || (delta < 0 && sum > old) || !fits(sum, f.width) {
		return 0, fieldErr(name, delta, ErrOutOfRange)
	}
	putInt(b, f.width, sum)
	return sum, nil
}

// AddFloat adds delta to a float column in place and returns the new value.
// A sum that is not finite fails with ErrOutOfRange and leaves the slot unchanged.
func (l *Layout) AddFloat(slot []byte, name string, delta float64) (float64, error) {
	f, err := l.numeric(name, schema.TypeFloat)
	if err != nil {
		return 0, err
	}
	b := slot[f.off : f.off+f.width]
	sum := math.Float64frombits(binary.LittleEndian.Uint64(b)) + delta
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, fieldErr(name, delta, ErrOutOfRange)
	}
	binary.LittleEndian.PutUint64(b, math.Float64bits(sum))
	return sum, nil
}

func (l *Layout) numeric(name string, want schema.Type) (field, error) {
	i, ok := l.index[name]
	if !ok {
		return field{}, fieldErr(name, nil, ErrUnknownColumn)
	}
	f := l.fields[i]
	if f.col.Type != want {
		return field{}, fieldErr(name, f.col.Type.String(), ErrTypeMismatch)
	}
	return f, nil
}

func fits(n int64, width int) bool {
	switch width {
	case 1:
		return n >= math.MinInt8 && n <= math.MaxInt8
	case 2:
		return n >= math.MinInt16 && n <= math.MaxInt16
	case 4:
		return n >= math.MinInt32 && n <= math.MaxInt32
	default:
		return true
	}
}

func putInt(b []byte, width int, n int64) {
	switch width {
	case 1:
		b[0] = byte(int8(n))
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(int16(n)))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(int32(n)))
	default:
		binary.LittleEndian.PutUint64(b, uint64(n))
	}
}

func getInt(b []byte, width int) int64 {
	switch width {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	default:
		return int64(binary.LittleEndian.Uint64(b))
	}
}

func putLen(b []byte, n int) {
	switch len(b) {
	case 1:
		b[0] = byte(n)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(n))
	default:
		binary.LittleEndian.PutUint32(b, uint32(n))
	}
}

func getLen(b []byte) int {
	switch len(b) {
	case 1:
		return int(b[0])
	case 2:
		return int(binary.LittleEndian.Uint16(b))
	default:
		return int(binary.LittleEndian.Uint32(b))
	}
}
