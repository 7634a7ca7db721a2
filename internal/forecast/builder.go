package forecast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

const moduleName = "forecast"

// Builder flattens snapshots into grain records.
type Builder struct {
	latitude  float64
	longitude float64
	units     string
	fallback  *time.Location
}

// NewBuilder creates a Builder. fallback is used when the snapshot's timezone
// cannot be loaded.
func NewBuilder(cfg config.ForecastConfig, fallback *time.Location) *Builder {
	if fallback == nil {
		fallback = time.UTC
	}
	return &Builder{latitude: cfg.Latitude, longitude: cfg.Longitude, units: cfg.Units, fallback: fallback}
}

// Build produces 1 current, 1 daily and len(snap.Hourly) hourly records sharing id.
// Every missing required key is reported in one aggregated error and nothing is returned.
func (b *Builder) Build(snap *Snapshot, id int64) (*Records, error) {
	if snap == nil {
		return nil, exception.New(moduleName, exception.KindUpstream, "empty forecast payload", nil)
	}
	c := &collector{}

	tz := c.str("timezone", snap.Timezone)
	loc := b.location(tz)
	base := func() []Field {
		return []Field{
			{"id", id},
			{"lat", b.latitude},
			{"lon", b.longitude},
			{"tz", tz},
		}
	}

	recs := &Records{
		Current: b.current(c, snap.Current, base(), loc),
		Daily:   b.daily(c, snap.Daily, base(), loc),
	}
	if snap.Hourly == nil {
		c.missing("hourly")
	}
	for i := range snap.Hourly {
		recs.Hourly = append(recs.Hourly, b.hourly(c, fmt.Sprintf("hourly[%d]", i), &snap.Hourly[i], base(), loc))
	}

	if err := c.err(); err != nil {
		return nil, exception.New(moduleName, exception.KindUpstream, "forecast payload is missing required keys", err)
	}
	return recs, nil
}

func (b *Builder) location(tz interface{}) *time.Location {
	name, ok := tz.(string)
	if !ok || name == "" {
		return b.fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnf("Unknown snapshot timezone '%s'; rendering times in %s", name, b.fallback)
		return b.fallback
	}
	return loc
}

func (b *Builder) current(c *collector, cur *Conditions, fields []Field, loc *time.Location) Record {
	rec := Record{Grain: GrainCurrent}
	if cur == nil {
		c.missing("current")
		cur = &Conditions{}
	}
	rec.Fields = append(fields,
		Field{"date", c.local("current.dt", cur.Dt, loc, DateLayout)},
		Field{"units", b.units},
		Field{"current_temp", c.num("current.temp", cur.Temp)},
		Field{"feels_like", c.num("current.feels_like", cur.FeelsLike)},
		Field{"pressure", c.num("current.pressure", cur.Pressure)},
		Field{"humidity", c.num("current.humidity", cur.Humidity)},
		Field{"dew_point", c.num("current.dew_point", cur.DewPoint)},
		Field{"uvi", c.num("current.uvi", cur.UVI)},
		Field{"clouds", c.num("current.clouds", cur.Clouds)},
		Field{"visibility", c.num("current.visibility", cur.Visibility)},
		Field{"wind_speed", c.num("current.wind_speed", cur.WindSpeed)},
		Field{"wind_deg", c.num("current.wind_deg", cur.WindDeg)},
		Field{"wind_gust", optional(cur.WindGust)},
	)
	return rec
}

func (b *Builder) daily(c *collector, daily []DailyEntry, fields []Field, loc *time.Location) Record {
	rec := Record{Grain: GrainDaily}
	d := &DailyEntry{}
	if len(daily) == 0 {
		c.missing("daily[0]")
	} else {
		d = &daily[0]
	}
	temp := d.Temp
	if temp == nil {
		c.missing("daily[0].temp")
		temp = &DailyTemp{}
	}
	feels := d.FeelsLike
	if feels == nil {
		c.missing("daily[0].feels_like")
		feels = &FeelsLike{}
	}
	var summary interface{}
	if len(d.Weather) == 0 {
		c.missing("daily[0].weather[0]")
	} else {
		summary = c.str("daily[0].weather[0].description", d.Weather[0].Description)
	}

	rec.Fields = append(fields,
		Field{"units", b.units},
		Field{"sunrise", c.local("daily[0].sunrise", d.Sunrise, loc, TimestampLayout)},
		Field{"sunset", c.local("daily[0].sunset", d.Sunset, loc, TimestampLayout)},
		Field{"moon_phase", c.num("daily[0].moon_phase", d.MoonPhase)},
		Field{"summary", summary},
		Field{"day_temp", c.num("daily[0].temp.day", temp.Day)},
		Field{"min_temp", c.num("daily[0].temp.min", temp.Min)},
		Field{"max_temp", c.num("daily[0].temp.max", temp.Max)},
		Field{"night_temp", c.num("daily[0].temp.night", temp.Night)},
		Field{"eve_temp", c.num("daily[0].temp.eve", temp.Eve)},
		Field{"morn_temp", c.num("daily[0].temp.morn", temp.Morn)},
		Field{"feels_like_day", c.num("daily[0].feels_like.day", feels.Day)},
		Field{"feels_like_night", c.num("daily[0].feels_like.night", feels.Night)},
		Field{"feels_like_eve", c.num("daily[0].feels_like.eve", feels.Eve)},
		Field{"feels_like_morn", c.num("daily[0].feels_like.morn", feels.Morn)},
		Field{"pressure_day", c.num("daily[0].pressure", d.Pressure)},
		Field{"humidity_day", c.num("daily[0].humidity", d.Humidity)},
		Field{"dew_point_day", c.num("daily[0].dew_point", d.DewPoint)},
		Field{"wind_speed_day", c.num("daily[0].wind_speed", d.WindSpeed)},
		Field{"wind_deg_day", c.num("daily[0].wind_deg", d.WindDeg)},
		Field{"wind_gust_day", optional(d.WindGust)},
	)
	return rec
}

func (b *Builder) hourly(c *collector, path string, h *Conditions, fields []Field, loc *time.Location) Record {
	rec := Record{Grain: GrainHourly}
	w := &Weather{}
	if len(h.Weather) == 0 {
		c.missing(path + ".weather[0]")
	} else {
		w = &h.Weather[0]
	}
	wp := path + ".weather[0]"

	rec.Fields = append(fields,
		Field{"dt", c.local(path+".dt", h.Dt, loc, TimestampLayout)},
		Field{"temp", c.num(path+".temp", h.Temp)},
		Field{"feels_like", c.num(path+".feels_like", h.FeelsLike)},
		Field{"pressure", c.num(path+".pressure", h.Pressure)},
		Field{"humidity", c.num(path+".humidity", h.Humidity)},
		Field{"dew_point", c.num(path+".dew_point", h.DewPoint)},
		Field{"uvi", c.num(path+".uvi", h.UVI)},
		Field{"clouds", c.num(path+".clouds", h.Clouds)},
		Field{"visibility", c.num(path+".visibility", h.Visibility)},
		Field{"wind_speed", c.num(path+".wind_speed", h.WindSpeed)},
		Field{"wind_deg", c.num(path+".wind_deg", h.WindDeg)},
		Field{"wind_gust", optional(h.WindGust)},
		Field{"weather_id", c.num(wp+".id", w.ID)},
		Field{"weather_main", c.str(wp+".main", w.Main)},
		Field{"weather_description", c.str(wp+".description", w.Description)},
		Field{"weather_icon", c.str(wp+".icon", w.Icon)},
		Field{"pop", optional(h.Pop)},
	)
	return rec
}

// collector gathers every missing or malformed key of one snapshot.
type collector struct {
	errs *multierror.Error
}

func (c *collector) missing(path string) {
	c.errs = multierror.Append(c.errs, fmt.Errorf("missing key '%s'", path))
}

func (c *collector) num(path string, v *json.Number) interface{} {
	if v == nil {
		c.missing(path)
		return nil
	}
	return *v
}

func (c *collector) str(path string, v *string) interface{} {
	if v == nil {
		c.missing(path)
		return nil
	}
	return *v
}

// local renders an epoch-seconds value in loc with layout.
func (c *collector) local(path string, v *json.Number, loc *time.Location, layout string) interface{} {
	if v == nil {
		c.missing(path)
		return nil
	}
	sec, err := v.Int64()
	if err != nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("key '%s' is not an epoch timestamp: %s", path, v.String()))
		return nil
	}
	return time.Unix(sec, 0).In(loc).Format(layout)
}

func (c *collector) err() error {
	return c.errs.ErrorOrNil()
}

func optional(v *json.Number) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
