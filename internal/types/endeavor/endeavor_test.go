package endeavor

import (
	"testing"
	"time"

	"cloutQuestAPI/internal/types/entry"
)

func TestNormalizeFallsBackToDefaults(t *testing.T) {
	cases := []struct {
		name string
		in   []Endeavor
	}{
		{"nil list", nil},
		{"empty list", []Endeavor{}},
		{"short list", []Endeavor{{Key: "endeavor_1", Label: "Solo"}}},
		{"oversized list", make([]Endeavor, 4)},
	}

	for _, tc := range cases {
		out, fellBack := Normalize(tc.in)
		if !fellBack {
			t.Errorf("%s: expected fallback", tc.name)
		}
		if len(out) != Count {
			t.Fatalf("%s: got %d endeavors, want %d", tc.name, len(out), Count)
		}
		defaults := Defaults()
		for i := range out {
			if out[i].Key != defaults[i].Key || out[i].Label != defaults[i].Label {
				t.Errorf("%s: slot %d is %+v, want default %+v", tc.name, i, out[i], defaults[i])
			}
		}
	}
}

func TestNormalizeRederivesPositionalKeys(t *testing.T) {
	in := []Endeavor{
		{Key: "stale_key", Label: "Vlogs", Icon: "🎬", Color: "#111111"},
		{Key: "", Label: "", Icon: "🎤", Color: "#222222"},
		{Key: "endeavor_1", Label: "Skits", Icon: "😂", Color: "#333333", Platforms: []entry.Platform{entry.PlatformTiktok}},
	}

	out, fellBack := Normalize(in)
	if fellBack {
		t.Fatal("a 3-element list must not fall back")
	}

	wantKeys := []string{"endeavor_1", "endeavor_2", "endeavor_3"}
	for i, k := range wantKeys {
		if out[i].Key != k {
			t.Errorf("slot %d key = %q, want %q", i, out[i].Key, k)
		}
	}
	if out[0].Label != "Vlogs" || out[2].Label != "Skits" {
		t.Errorf("labels must be preserved: %+v", out)
	}
	if out[1].Label != "Endeavor 2" {
		t.Errorf("empty label defaulted to %q, want \"Endeavor 2\"", out[1].Label)
	}
	if out[0].Platforms == nil || out[1].Platforms == nil {
		t.Error("nil platform sets must come back empty, not nil")
	}
}

func TestDefaultsReturnsFreshCopies(t *testing.T) {
	a := Defaults()
	a[0].Label = "mutated"
	if b := Defaults(); b[0].Label == "mutated" {
		t.Error("Defaults must not share state between calls")
	}
}

func TestByKeyFallsBackToFirst(t *testing.T) {
	list := Defaults()
	if got := ByKey(list, "endeavor_2"); got.Key != "endeavor_2" {
		t.Errorf("lookup returned %q", got.Key)
	}
	if got := ByKey(list, "endeavor_99"); got.Key != list[0].Key {
		t.Errorf("dangling key returned %q, want first endeavor", got.Key)
	}
}

func TestSuggestedRotatesByDayOfYear(t *testing.T) {
	list := Defaults()

	// Jan 1 has YearDay 1, so the rotation starts at index 1.
	jan1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := Suggested(jan1, list); got.Key != list[1].Key {
		t.Errorf("Jan 1 suggested %q, want %q", got.Key, list[1].Key)
	}

	// Consecutive days advance the rotation by one.
	for d := 0; d < 6; d++ {
		day := jan1.AddDate(0, 0, d)
		want := list[day.YearDay()%len(list)]
		if got := Suggested(day, list); got.Key != want.Key {
			t.Errorf("%s suggested %q, want %q", day.Format("2006-01-02"), got.Key, want.Key)
		}
	}
}

func TestSuggestedForKey(t *testing.T) {
	list := Defaults()
	if got := SuggestedForKey("2026-01-01", list); got.Key != list[1].Key {
		t.Errorf("date key suggested %q, want %q", got.Key, list[1].Key)
	}
	if got := SuggestedForKey("not-a-date", list); got.Key != list[0].Key {
		t.Errorf("bad date key suggested %q, want first endeavor", got.Key)
	}
}
