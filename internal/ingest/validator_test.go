package ingest

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/forecastpipe/internal/forecast"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
)

const currentHeader = "id,lat,lon,tz,date,units,current_temp,feels_like,pressure,humidity,dew_point,uvi,clouds,visibility,wind_speed,wind_deg,wind_gust\n"

func currentRow(id string) string {
	return id + ",33.17,96.95,America/Chicago,2023-11-14,standard,291.45,290.8,1016,58,283.01,0,0,10000,3.6,170,\n"
}

func currentSchema(t *testing.T) Schema {
	t.Helper()
	s, err := SchemaFor(forecast.GrainCurrent, "weather_data_")
	require.NoError(t, err)
	return s
}

var defaultValidator = Validator{MinRows: 1, MaxRows: 10000}

func TestValidate_Coerces(t *testing.T) {
	s := currentSchema(t)
	batch, err := defaultValidator.Validate("a.csv", s, strings.NewReader(currentHeader+currentRow("1700000000")))
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)

	row := batch.Maps()[0]
	assert.Equal(t, int64(1700000000), row["id"])
	assert.Equal(t, 33.17, row["lat"])
	assert.Equal(t, "America/Chicago", row["tz"])
	assert.Equal(t, time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC), row["date"])
	assert.Equal(t, int64(1016), row["pressure"])
	assert.Equal(t, 3.6, row["wind_speed"])
	assert.Nil(t, row["wind_gust"])
	assert.Len(t, row, len(s.Columns))
}

func TestValidate_IntegralFloatInIntColumn(t *testing.T) {
	body := currentHeader + strings.Replace(currentRow("1700000000"), ",1016,", ",1016.0,", 1)
	batch, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, int64(1016), batch.Maps()[0]["pressure"])
}

func TestValidate_ExtraColumnsIgnored(t *testing.T) {
	body := "extra," + currentHeader + "x," + currentRow("1")
	batch, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(body))
	require.NoError(t, err)
	_, ok := batch.Maps()[0]["extra"]
	assert.False(t, ok)
}

func TestValidate_CoercionError(t *testing.T) {
	body := currentHeader + currentRow("1") + strings.Replace(currentRow("2"), ",1016,", ",high,", 1)
	_, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(body))
	require.Error(t, err)
	assert.Equal(t, exception.KindValidation, exception.KindOf(err))

	var cerr *CoercionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "a.csv", cerr.Object)
	assert.Equal(t, 2, cerr.Row)
	assert.Equal(t, "pressure", cerr.Column)
	assert.Equal(t, "high", cerr.Value)
	assert.Equal(t, Int64, cerr.Target)
}

func TestValidate_NullInRequiredColumn(t *testing.T) {
	body := currentHeader + strings.Replace(currentRow("1"), ",standard,", ",,", 1)
	_, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(body))

	var cerr *CoercionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "units", cerr.Column)
	assert.ErrorIs(t, err, errNullValue)
}

func TestValidate_BadDate(t *testing.T) {
	body := currentHeader + strings.Replace(currentRow("1"), "2023-11-14", "14/11/2023", 1)
	_, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(body))

	var cerr *CoercionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "date", cerr.Column)
	assert.Equal(t, Temporal, cerr.Target)
}

func TestValidate_MissingColumn(t *testing.T) {
	body := strings.Replace(currentHeader, ",wind_gust", "", 1)
	_, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column 'wind_gust'")
}

func TestValidate_DuplicateKey(t *testing.T) {
	body := currentHeader + currentRow("7") + currentRow("7")
	_, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate values")
}

func TestValidate_NullKey(t *testing.T) {
	body := currentHeader + currentRow("7") + currentRow("")
	_, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null values")
}

func TestValidate_TwoNullKeysAreDuplicates(t *testing.T) {
	body := currentHeader + currentRow("") + currentRow("")
	_, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate values")
}

func TestValidate_RowCountBounds(t *testing.T) {
	s := currentSchema(t)

	_, err := defaultValidator.Validate("a.csv", s, strings.NewReader(currentHeader))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 rows")

	v := Validator{MinRows: 1, MaxRows: 2}
	_, err = v.Validate("a.csv", s, strings.NewReader(currentHeader+currentRow("1")+currentRow("2")+currentRow("3")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 rows")

	_, err = v.Validate("a.csv", s, strings.NewReader(currentHeader+currentRow("1")+currentRow("2")))
	assert.NoError(t, err)
}

func TestValidate_EmptyObject(t *testing.T) {
	_, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header")
}

func TestValidate_RaggedRows(t *testing.T) {
	_, err := defaultValidator.Validate("a.csv", currentSchema(t), strings.NewReader(currentHeader+"1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid CSV")
}

func TestValidate_IntegerRange(t *testing.T) {
	s := currentSchema(t)

	batch, err := defaultValidator.Validate("a.csv", s, strings.NewReader(currentHeader+currentRow("9223372036854775807")))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), batch.Maps()[0]["id"])

	batch, err = defaultValidator.Validate("a.csv", s, strings.NewReader(currentHeader+currentRow("-9223372036854775808.0")))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), batch.Maps()[0]["id"])

	// 2^63 as a float does not fit in an int64.
	for _, id := range []string{"9223372036854775807.0", "9223372036854775808", "1e19", "-1e19"} {
		_, err := defaultValidator.Validate("a.csv", s, strings.NewReader(currentHeader+currentRow(id)))
		require.Error(t, err, id)
		var cerr *CoercionError
		require.True(t, errors.As(err, &cerr), id)
		assert.Equal(t, "id", cerr.Column)
		assert.Equal(t, id, cerr.Value)
	}
}

func rows(n int) string {
	var b strings.Builder
	b.WriteString(currentHeader)
	for i := 1; i <= n; i++ {
		b.WriteString(currentRow(strconv.Itoa(1700000000 + i)))
	}
	return b.String()
}

func TestValidate_DefaultRowBounds(t *testing.T) {
	s := currentSchema(t)

	batch, err := defaultValidator.Validate("a.csv", s, strings.NewReader(rows(10000)))
	require.NoError(t, err)
	assert.Len(t, batch.Rows, 10000)

	_, err = defaultValidator.Validate("a.csv", s, strings.NewReader(rows(10001)))
	require.Error(t, err)
	assert.Equal(t, exception.KindValidation, exception.KindOf(err))
	assert.Contains(t, err.Error(), "10001 rows")
}
