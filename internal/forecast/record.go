package forecast

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Grain identifies one of the three record shapes derived from a snapshot.
type Grain string

const (
	GrainCurrent Grain = "current"
	GrainDaily   Grain = "daily"
	GrainHourly  Grain = "hourly"
)

// Grains lists every grain in write order.
var Grains = []Grain{GrainCurrent, GrainDaily, GrainHourly}

// Timestamp layouts used when rendering epoch values in local time.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// ParseGrain validates a grain name.
func ParseGrain(s string) (Grain, error) {
	for _, g := range Grains {
		if string(g) == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown grain '%s'", s)
}

// ObjectSuffix is the name suffix shared by every object of the grain.
func (g Grain) ObjectSuffix() string {
	return "_forecast_" + string(g) + ".csv"
}

// ObjectName returns the storage object name for a fetch: <epoch-seconds>_forecast_<grain>.csv.
func ObjectName(fetchID int64, g Grain) string {
	return strconv.FormatInt(fetchID, 10) + g.ObjectSuffix()
}

var fieldNames = map[Grain][]string{
	GrainCurrent: {
		"id", "lat", "lon", "tz", "date", "units", "current_temp", "feels_like", "pressure",
		"humidity", "dew_point", "uvi", "clouds", "visibility", "wind_speed", "wind_deg", "wind_gust",
	},
	GrainDaily: {
		"id", "lat", "lon", "tz", "units", "sunrise", "sunset", "moon_phase", "summary",
		"day_temp", "min_temp", "max_temp", "night_temp", "eve_temp", "morn_temp",
		"feels_like_day", "feels_like_night", "feels_like_eve", "feels_like_morn",
		"pressure_day", "humidity_day", "dew_point_day", "wind_speed_day", "wind_deg_day", "wind_gust_day",
	},
	GrainHourly: {
		"id", "lat", "lon", "tz", "dt", "temp", "feels_like", "pressure", "humidity", "dew_point",
		"uvi", "clouds", "visibility", "wind_speed", "wind_deg", "wind_gust", "weather_id",
		"weather_main", "weather_description", "weather_icon", "pop",
	},
}

var optionalFields = map[Grain]map[string]bool{
	GrainCurrent: {"wind_gust": true},
	GrainDaily:   {"wind_gust_day": true},
	GrainHourly:  {"wind_gust": true, "pop": true},
}

// FieldNames returns the fixed field order of a grain.
func FieldNames(g Grain) []string {
	names := fieldNames[g]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// IsOptional reports whether a field may be absent in the snapshot.
func IsOptional(g Grain, field string) bool {
	return optionalFields[g][field]
}

// Field is one named value of a record. A nil Value is an absent optional value.
type Field struct {
	Name  string
	Value interface{}
}

// Record is a flat grain record in fixed field order.
type Record struct {
	Grain  Grain
	Fields []Field
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Get returns the value of a field.
func (r Record) Get(name string) (interface{}, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Strings renders every value as CSV cell text. Absent values render as empty cells.
func (r Record) Strings() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = formatValue(f.Value)
	}
	return out
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// Records is everything built from one snapshot.
type Records struct {
	Current Record
	Daily   Record
	Hourly  []Record
}

// All returns the records in write order: current, daily, then each hourly record.
func (r *Records) All() []Record {
	all := make([]Record, 0, 2+len(r.Hourly))
	all = append(all, r.Current, r.Daily)
	return append(all, r.Hourly...)
}
