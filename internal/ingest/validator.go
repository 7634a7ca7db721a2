package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/tigerroll/forecastpipe/internal/support/exception"
)

// CoercionError reports a cell that could not be converted to its column type.
type CoercionError struct {
	Object string
	// Row is the 1-based data row, not counting the header.
	Row    int
	Column string
	Value  string
	Target ColumnType
	Err    error
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("object '%s' row %d column '%s': cannot coerce %q to %s", e.Object, e.Row, e.Column, e.Value, e.Target)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() error { return e.Err }

var errNullValue = errors.New("null value in non-nullable column")

// Batch is a validated set of typed rows in schema column order. A nil cell is NULL.
type Batch struct {
	Schema Schema
	Object string
	Rows   [][]interface{}
}

// Maps converts the rows into column-name maps for appending.
func (b *Batch) Maps() []map[string]interface{} {
	out := make([]map[string]interface{}, len(b.Rows))
	for i, row := range b.Rows {
		m := make(map[string]interface{}, len(row))
		for j, col := range b.Schema.Columns {
			m[col.Name] = row[j]
		}
		out[i] = m
	}
	return out
}

// Validator parses and checks one CSV object.
type Validator struct {
	MinRows int
	MaxRows int
}

// Validate parses r as CSV with a header row, coerces every declared column and
// rejects duplicate keys, null keys and row counts outside [MinRows, MaxRows], in
// that order. Columns not in the schema are ignored.
func (v Validator) Validate(object string, schema Schema, r io.Reader) (*Batch, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, exception.Newf(moduleName, exception.KindValidation, "object '%s' is not valid CSV", object, err)
	}
	if len(records) == 0 {
		return nil, exception.Newf(moduleName, exception.KindValidation, "object '%s' has no header row", object)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[name] = i
	}
	index := make([]int, len(schema.Columns))
	for i, col := range schema.Columns {
		pos, ok := header[col.Name]
		if !ok {
			return nil, exception.Newf(moduleName, exception.KindValidation, "object '%s' is missing column '%s'", object, col.Name)
		}
		index[i] = pos
	}

	batch := &Batch{Schema: schema, Object: object, Rows: make([][]interface{}, 0, len(records)-1)}
	for rowNum, record := range records[1:] {
		row := make([]interface{}, len(schema.Columns))
		for i, col := range schema.Columns {
			raw := record[index[i]]
			val, err := coerce(col, col.Name == schema.Key, raw)
			if err != nil {
				cerr := &CoercionError{Object: object, Row: rowNum + 1, Column: col.Name, Value: raw, Target: col.Type, Err: err}
				return nil, exception.New(moduleName, exception.KindValidation, "schema coercion failed", cerr)
			}
			row[i] = val
		}
		batch.Rows = append(batch.Rows, row)
	}

	if err := v.check(batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (v Validator) check(b *Batch) error {
	keyIdx := -1
	for i, col := range b.Schema.Columns {
		if col.Name == b.Schema.Key {
			keyIdx = i
		}
	}
	if keyIdx < 0 {
		return exception.Newf(moduleName, exception.KindValidation, "schema for '%s' has no key column '%s'", b.Schema.Table, b.Schema.Key)
	}

	// Nulls compare equal to each other, so two null keys are a duplicate.
	seen := make(map[interface{}]bool, len(b.Rows))
	for _, row := range b.Rows {
		key := row[keyIdx]
		if seen[key] {
			return exception.Newf(moduleName, exception.KindValidation, "duplicate values found in the '%s' column of object '%s'", b.Schema.Key, b.Object)
		}
		seen[key] = true
	}
	for _, row := range b.Rows {
		if row[keyIdx] == nil {
			return exception.Newf(moduleName, exception.KindValidation, "null values found in the '%s' column of object '%s'", b.Schema.Key, b.Object)
		}
	}
	if n := len(b.Rows); n < v.MinRows || n > v.MaxRows {
		return exception.Newf(moduleName, exception.KindValidation, "object '%s' has %d rows, outside [%d, %d]", b.Object, n, v.MinRows, v.MaxRows)
	}
	return nil
}

// coerce converts one cell. An empty cell is NULL; it is accepted for nullable
// columns and for the key, whose nulls are reported by the key checks.
func coerce(col Column, isKey bool, raw string) (interface{}, error) {
	if raw == "" {
		if col.Nullable || isKey {
			return nil, nil
		}
		return nil, errNullValue
	}
	switch col.Type {
	case Int64:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) || f >= 0x1p63 || f < -0x1p63 {
			return nil, fmt.Errorf("not an integer")
		}
		return int64(f), nil
	case Float64:
		return strconv.ParseFloat(raw, 64)
	case Text:
		return raw, nil
	case Temporal:
		// Timestamps are local wall-clock times without an offset.
		return time.ParseInLocation(col.Layout, raw, time.UTC)
	default:
		return nil, fmt.Errorf("unsupported column type %s", col.Type)
	}
}
