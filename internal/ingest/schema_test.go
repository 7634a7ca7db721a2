package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/forecastpipe/internal/forecast"
)

func column(t *testing.T, s Schema, name string) Column {
	t.Helper()
	for _, c := range s.Columns {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %s not in schema %s", name, s.Table)
	return Column{}
}

func TestSchemaFor_Current(t *testing.T) {
	s, err := SchemaFor(forecast.GrainCurrent, "weather_data_")
	require.NoError(t, err)

	assert.Equal(t, "weather_data_current", s.Table)
	assert.Equal(t, "id", s.Key)
	assert.Equal(t, "date", s.DateColumn)
	assert.Equal(t, forecast.FieldNames(forecast.GrainCurrent), s.ColumnNames())

	assert.Equal(t, Int64, column(t, s, "id").Type)
	assert.Equal(t, Float64, column(t, s, "lat").Type)
	assert.Equal(t, Text, column(t, s, "tz").Type)
	assert.Equal(t, Int64, column(t, s, "pressure").Type)
	date := column(t, s, "date")
	assert.Equal(t, Temporal, date.Type)
	assert.Equal(t, forecast.DateLayout, date.Layout)
	assert.True(t, column(t, s, "wind_gust").Nullable)
	assert.False(t, column(t, s, "wind_speed").Nullable)
}

func TestSchemaFor_DailyAndHourly(t *testing.T) {
	daily, err := SchemaFor(forecast.GrainDaily, "weather_data_")
	require.NoError(t, err)
	assert.Equal(t, "sunrise", daily.DateColumn)
	assert.Equal(t, forecast.TimestampLayout, column(t, daily, "sunset").Layout)
	assert.Equal(t, Int64, column(t, daily, "wind_deg_day").Type)
	assert.Equal(t, Text, column(t, daily, "summary").Type)

	hourly, err := SchemaFor(forecast.GrainHourly, "weather_data_")
	require.NoError(t, err)
	assert.Equal(t, "dt", hourly.DateColumn)
	assert.Equal(t, Int64, column(t, hourly, "weather_id").Type)
	assert.True(t, column(t, hourly, "pop").Nullable)
}

func TestSchemasFor(t *testing.T) {
	schemas, err := SchemasFor([]string{"hourly", "current"}, "wx_")
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, "wx_hourly", schemas[0].Table)
	assert.Equal(t, "wx_current", schemas[1].Table)

	_, err = SchemasFor([]string{"weekly"}, "wx_")
	assert.Error(t, err)
}
