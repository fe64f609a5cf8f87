package entry

import (
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTiktok    Platform = "tiktok"
	PlatformTwitch    Platform = "twitch"
)

var AllPlatforms = []Platform{PlatformInstagram, PlatformTiktok, PlatformTwitch}

var PlatformLabels = map[Platform]string{
	PlatformInstagram: "IG",
	PlatformTiktok:    "TT",
	PlatformTwitch:    "TW",
}

// DayEntry is one scheduled content day. The document field "contentType"
// predates the endeavor rename and is kept for wire compatibility.
type DayEntry struct {
	ID          string     `json:"id" firestore:"-"`
	Date        string     `json:"date" firestore:"date"`
	CategoryKey string     `json:"categoryKey" firestore:"contentType"`
	Title       string     `json:"title" firestore:"title"`
	Notes       string     `json:"notes" firestore:"notes"`
	Platforms   []Platform `json:"platforms" firestore:"platforms"`
	Done        bool       `json:"done" firestore:"done"`
	CreatedAt   time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time  `json:"updated_at" firestore:"updatedAt"`
}

// Fields carries the editable subset of a DayEntry for create and save.
type Fields struct {
	Date        string     `json:"date"`
	CategoryKey string     `json:"categoryKey"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes"`
	Platforms   []Platform `json:"platforms"`
	Done        bool       `json:"done"`
}

// Trimmed returns a copy with title and notes whitespace-trimmed, the form
// the fields take before persistence.
func (f Fields) Trimmed() Fields {
	f.Title = strings.TrimSpace(f.Title)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.Platforms == nil {
		f.Platforms = []Platform{}
	}
	return f
}

// MonthView maps YYYY-MM-DD date keys to the entry scheduled on that date.
// At most one entry per key; duplicate dates collapse last-write-wins.
type MonthView map[string]*DayEntry

// DateKey formats a calendar date into its canonical YYYY-MM-DD form.
func DateKey(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// MonthRange returns the inclusive date-key bounds used to query one month.
// The upper bound is a fixed "-31" literal rather than the month's true
// length; over-fetching a few foreign days is intentional and the grid
// projection draws only the true days.
func MonthRange(year, month int) (string, string) {
	return DateKey(year, month, 1), fmt.Sprintf("%04d-%02d-31", year, month)
}

// DaysInMonth returns the number of calendar days in the given month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekday returns the weekday index (0=Sunday) of the month's first day.
func FirstWeekday(year, month int) int {
	return int(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday())
}
