package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/forecastpipe/internal/support/exception"
)

// Window is the rolling lookback window. Objects whose date token is on or after
// Cutoff (YYYYMMDD) are eligible.
type Window struct {
	Cutoff   int
	Location *time.Location
}

// NewWindow computes the cutoff as the calendar date of now minus lookbackDays in loc.
func NewWindow(now time.Time, lookbackDays int, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	return Window{Cutoff: yyyymmdd(now.In(loc).AddDate(0, 0, -lookbackDays)), Location: loc}
}

func yyyymmdd(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// DateToken extracts the date of an object name. The token is the third-from-last
// "_"-separated segment: an 8-digit value is read as YYYYMMDD, anything else as
// unix epoch seconds truncated to its date in the window's location.
func (w Window) DateToken(name string) (int, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return 0, exception.Newf(moduleName, exception.KindNaming, "object name '%s' has no date token", name)
	}
	token := parts[len(parts)-3]
	// Directory-style prefixes leave a path in front of the token.
	if i := strings.LastIndex(token, "/"); i >= 0 {
		token = token[i+1:]
	}
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, exception.Newf(moduleName, exception.KindNaming, "object name '%s' has a non-numeric date token '%s'", name, token, err)
	}
	if len(token) == 8 {
		if _, err := time.Parse("20060102", token); err != nil {
			return 0, exception.Newf(moduleName, exception.KindNaming, "object name '%s' has an invalid date token '%s'", name, token, err)
		}
		return int(n), nil
	}
	return yyyymmdd(time.Unix(n, 0).In(w.Location)), nil
}

// Select returns, in listing order, the names that contain suffix and whose date
// token is within the window. Any unparseable name fails the selection, whatever
// its suffix.
func (w Window) Select(names []string, suffix string) ([]string, error) {
	var selected []string
	for _, name := range names {
		date, err := w.DateToken(name)
		if err != nil {
			return nil, err
		}
		if strings.Contains(name, suffix) && date >= w.Cutoff {
			selected = append(selected, name)
		}
	}
	return selected, nil
}
