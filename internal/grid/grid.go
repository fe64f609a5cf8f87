// Package grid projects a month of day entries into a renderable calendar
// model. The projection is pure: every call rebuilds the full grid from its
// inputs, so callers replace rather than patch whatever they rendered last.
package grid

import (
	"time"

	"cloutQuestAPI/internal/types/endeavor"
	"cloutQuestAPI/internal/types/entry"
)

// Card is the content block inside a non-blank cell. Real cards carry the
// entry id as the drag payload; suggested cards are previews for empty days
// and are never draggable.
type Card struct {
	EntryID     string           `json:"entryId,omitempty"`
	EndeavorKey string           `json:"endeavorKey"`
	Label       string           `json:"label"`
	Icon        string           `json:"icon"`
	Color       string           `json:"color"`
	Title       string           `json:"title,omitempty"`
	Platforms   []entry.Platform `json:"platforms"`
	Done        bool             `json:"done"`
	Suggested   bool             `json:"suggested"`
	Draggable   bool             `json:"draggable"`
}

// Cell is one slot of the 7-wide grid. Blank cells pad the first and last
// rows; every non-blank cell is a drop target keyed by its date.
type Cell struct {
	Blank bool   `json:"blank"`
	Day   int    `json:"day,omitempty"`
	Date  string `json:"date,omitempty"`
	Today bool   `json:"today,omitempty"`
	Card  *Card  `json:"card,omitempty"`
}

type Model struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	MonthName string `json:"monthName"`
	Cells     []Cell `json:"cells"`
}

// RenderMonth builds the grid for one month: leading blanks up to the first
// weekday, one cell per true day of the month, trailing blanks to a
// multiple of 7. Entries outside the month (the query over-fetch) are
// ignored because cells are keyed by the month's own dates.
func RenderMonth(year, month int, view entry.MonthView, endeavors []endeavor.Endeavor, today time.Time) Model {
	firstWeekday := entry.FirstWeekday(year, month)
	totalDays := entry.DaysInMonth(year, month)
	todayKey := entry.DateKey(today.Year(), int(today.Month()), today.Day())

	m := Model{
		Year:      year,
		Month:     month,
		MonthName: time.Month(month).String(),
		Cells:     make([]Cell, 0, 42),
	}

	for i := 0; i < firstWeekday; i++ {
		m.Cells = append(m.Cells, Cell{Blank: true})
	}

	for day := 1; day <= totalDays; day++ {
		date := entry.DateKey(year, month, day)
		cell := Cell{Day: day, Date: date, Today: date == todayKey}
		if e, ok := view[date]; ok {
			cell.Card = entryCard(e, endeavors)
		} else {
			cell.Card = suggestedCard(date, endeavors)
		}
		m.Cells = append(m.Cells, cell)
	}

	if rem := len(m.Cells) % 7; rem != 0 {
		for i := 0; i < 7-rem; i++ {
			m.Cells = append(m.Cells, Cell{Blank: true})
		}
	}
	return m
}

func entryCard(e *entry.DayEntry, endeavors []endeavor.Endeavor) *Card {
	env := endeavor.ByKey(endeavors, e.CategoryKey)
	platforms := e.Platforms
	if platforms == nil {
		platforms = []entry.Platform{}
	}
	return &Card{
		EntryID:     e.ID,
		EndeavorKey: env.Key,
		Label:       env.Label,
		Icon:        env.Icon,
		Color:       env.Color,
		Title:       e.Title,
		Platforms:   platforms,
		Done:        e.Done,
		Draggable:   true,
	}
}

func suggestedCard(date string, endeavors []endeavor.Endeavor) *Card {
	env := endeavor.SuggestedForKey(date, endeavors)
	return &Card{
		EndeavorKey: env.Key,
		Label:       env.Label,
		Icon:        env.Icon,
		Color:       env.Color,
		Platforms:   env.Platforms,
		Suggested:   true,
	}
}
