// Package ingest selects recent forecast objects, validates them against an
// explicit column schema and appends them to the grain tables in one transaction.
package ingest

import (
	"fmt"

	"github.com/tigerroll/forecastpipe/internal/forecast"
)

const moduleName = "ingest"

// ColumnType is the semantic type of a column.
type ColumnType int

const (
	Int64 ColumnType = iota
	Float64
	Text
	Temporal
)

func (t ColumnType) String() string {
	switch t {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Text:
		return "text"
	case Temporal:
		return "temporal"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Column declares one column of a grain table.
type Column struct {
	Name     string
	Type     ColumnType
	Layout   string // Temporal only
	Nullable bool
}

// Schema is the explicit column schema of one grain.
type Schema struct {
	Grain      forecast.Grain
	Table      string
	Key        string
	DateColumn string
	Columns    []Column
}

var intColumns = map[string]bool{
	"id": true, "pressure": true, "humidity": true, "clouds": true, "visibility": true,
	"wind_deg": true, "weather_id": true, "pressure_day": true, "humidity_day": true,
	"wind_deg_day": true,
}

var textColumns = map[string]bool{
	"tz": true, "units": true, "summary": true, "weather_main": true,
	"weather_description": true, "weather_icon": true,
}

var temporalLayouts = map[string]string{
	"date":    forecast.DateLayout,
	"sunrise": forecast.TimestampLayout,
	"sunset":  forecast.TimestampLayout,
	"dt":      forecast.TimestampLayout,
}

var dateColumns = map[forecast.Grain]string{
	forecast.GrainCurrent: "date",
	forecast.GrainDaily:   "sunrise",
	forecast.GrainHourly:  "dt",
}

// SchemaFor builds the schema of a grain. The table is tablePrefix + grain.
func SchemaFor(g forecast.Grain, tablePrefix string) (Schema, error) {
	names := forecast.FieldNames(g)
	if len(names) == 0 {
		return Schema{}, fmt.Errorf("no schema for grain '%s'", g)
	}
	s := Schema{
		Grain:      g,
		Table:      tablePrefix + string(g),
		Key:        "id",
		DateColumn: dateColumns[g],
		Columns:    make([]Column, 0, len(names)),
	}
	for _, name := range names {
		col := Column{Name: name, Type: Float64, Nullable: forecast.IsOptional(g, name)}
		switch {
		case intColumns[name]:
			col.Type = Int64
		case textColumns[name]:
			col.Type = Text
		case temporalLayouts[name] != "":
			col.Type = Temporal
			col.Layout = temporalLayouts[name]
		}
		s.Columns = append(s.Columns, col)
	}
	return s, nil
}

// SchemasFor builds the schemas of the named grains, in the given order.
func SchemasFor(grains []string, tablePrefix string) ([]Schema, error) {
	schemas := make([]Schema, 0, len(grains))
	for _, name := range grains {
		g, err := forecast.ParseGrain(name)
		if err != nil {
			return nil, err
		}
		s, err := SchemaFor(g, tablePrefix)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// ColumnNames returns the column names in schema order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
