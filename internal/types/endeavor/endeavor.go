package endeavor

import (
	"fmt"
	"time"

	"cloutQuestAPI/internal/types/entry"
)

// Count is the fixed size of the endeavor set. Settings that do not resolve
// to exactly this many entries fall back to the default triple.
const Count = 3

// Endeavor is one user-customizable content category. Keys are positional
// (endeavor_1..3) and stay stable across renames.
type Endeavor struct {
	Key       string           `json:"key" firestore:"key"`
	Label     string           `json:"label" firestore:"label"`
	Icon      string           `json:"icon" firestore:"icon"`
	Color     string           `json:"color" firestore:"color"`
	Platforms []entry.Platform `json:"platforms" firestore:"platforms"`
}

// IconPresets is the fixed palette offered by the settings editor.
var IconPresets = []string{
	"🎵", "🎮", "😂", "🎬", "🎤", "📸", "✏️", "🔥", "⭐", "💡", "🏋️", "🍳",
}

// Defaults returns a fresh copy of the built-in endeavor triple.
func Defaults() []Endeavor {
	return []Endeavor{
		{Key: "endeavor_1", Label: "Music Video", Icon: "🎵", Color: "#e74c3c", Platforms: []entry.Platform{entry.PlatformInstagram, entry.PlatformTiktok}},
		{Key: "endeavor_2", Label: "Live Stream", Icon: "🎮", Color: "#9b59b6", Platforms: []entry.Platform{entry.PlatformTiktok, entry.PlatformTwitch}},
		{Key: "endeavor_3", Label: "Humor Skit", Icon: "😂", Color: "#2ecc71", Platforms: []entry.Platform{entry.PlatformInstagram, entry.PlatformTiktok}},
	}
}

// Normalize resolves a persisted endeavor list to the exactly-three
// invariant. Absent, short, or oversized lists yield the defaults; a valid
// triple gets its positional keys and empty labels re-derived. The second
// return reports whether the input had to be replaced wholesale, which is
// the signal for the bootstrap write.
func Normalize(list []Endeavor) ([]Endeavor, bool) {
	if len(list) != Count {
		return Defaults(), true
	}
	out := make([]Endeavor, Count)
	for i, e := range list {
		e.Key = fmt.Sprintf("endeavor_%d", i+1)
		if e.Label == "" {
			e.Label = fmt.Sprintf("Endeavor %d", i+1)
		}
		if e.Platforms == nil {
			e.Platforms = []entry.Platform{}
		}
		out[i] = e
	}
	return out, false
}

// ByKey looks up an endeavor by key, falling back to the first entry when
// the key dangles (the referenced endeavor was renamed away or never
// existed).
func ByKey(list []Endeavor, key string) Endeavor {
	for _, e := range list {
		if e.Key == key {
			return e
		}
	}
	return list[0]
}

// Suggested returns the deterministic endeavor rotation for an empty day:
// day-of-year modulo the endeavor count.
func Suggested(date time.Time, list []Endeavor) Endeavor {
	return list[date.YearDay()%len(list)]
}

// SuggestedForKey is Suggested for a YYYY-MM-DD date key. Unparseable keys
// fall back to the first endeavor.
func SuggestedForKey(dateKey string, list []Endeavor) Endeavor {
	d, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return list[0]
	}
	return Suggested(d, list)
}
