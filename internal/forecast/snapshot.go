// Package forecast turns One Call API responses into flat per-grain records and
// writes them to blob storage as CSV objects.
package forecast

import "encoding/json"

// Snapshot is one decoded One Call response. Every value is a pointer so that an
// absent key can be told apart from a zero value; numbers keep their literal text.
type Snapshot struct {
	Timezone *string      `json:"timezone"`
	Current  *Conditions  `json:"current"`
	Daily    []DailyEntry `json:"daily"`
	Hourly   []Conditions `json:"hourly"`
}

// Conditions is a "current" block or one "hourly" entry.
type Conditions struct {
	Dt         *json.Number `json:"dt"`
	Temp       *json.Number `json:"temp"`
	FeelsLike  *json.Number `json:"feels_like"`
	Pressure   *json.Number `json:"pressure"`
	Humidity   *json.Number `json:"humidity"`
	DewPoint   *json.Number `json:"dew_point"`
	UVI        *json.Number `json:"uvi"`
	Clouds     *json.Number `json:"clouds"`
	Visibility *json.Number `json:"visibility"`
	WindSpeed  *json.Number `json:"wind_speed"`
	WindDeg    *json.Number `json:"wind_deg"`
	WindGust   *json.Number `json:"wind_gust"`
	Pop        *json.Number `json:"pop"`
	Weather    []Weather    `json:"weather"`
}

// DailyEntry is one "daily" entry.
type DailyEntry struct {
	Dt        *json.Number `json:"dt"`
	Sunrise   *json.Number `json:"sunrise"`
	Sunset    *json.Number `json:"sunset"`
	MoonPhase *json.Number `json:"moon_phase"`
	Temp      *DailyTemp   `json:"temp"`
	FeelsLike *FeelsLike   `json:"feels_like"`
	Pressure  *json.Number `json:"pressure"`
	Humidity  *json.Number `json:"humidity"`
	DewPoint  *json.Number `json:"dew_point"`
	WindSpeed *json.Number `json:"wind_speed"`
	WindDeg   *json.Number `json:"wind_deg"`
	WindGust  *json.Number `json:"wind_gust"`
	Weather   []Weather    `json:"weather"`
}

// DailyTemp holds the daily temperature breakdown.
type DailyTemp struct {
	Day   *json.Number `json:"day"`
	Min   *json.Number `json:"min"`
	Max   *json.Number `json:"max"`
	Night *json.Number `json:"night"`
	Eve   *json.Number `json:"eve"`
	Morn  *json.Number `json:"morn"`
}

// FeelsLike holds the daily feels-like breakdown.
type FeelsLike struct {
	Day   *json.Number `json:"day"`
	Night *json.Number `json:"night"`
	Eve   *json.Number `json:"eve"`
	Morn  *json.Number `json:"morn"`
}

// Weather is one weather condition entry.
type Weather struct {
	ID          *json.Number `json:"id"`
	Main        *string      `json:"main"`
	Description *string      `json:"description"`
	Icon        *string      `json:"icon"`
}
