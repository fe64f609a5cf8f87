package progress

import (
	"testing"

	"cloutQuestAPI/internal/types/entry"
)

func monthAllDone(year, month int) entry.MonthView {
	view := entry.MonthView{}
	for d := 1; d <= entry.DaysInMonth(year, month); d++ {
		date := entry.DateKey(year, month, d)
		view[date] = &entry.DayEntry{ID: date, Date: date, Done: true}
	}
	return view
}

func TestBucketsCoverEveryMonth(t *testing.T) {
	cases := []struct {
		year, month int
	}{
		{2024, 2},  // leap February
		{2025, 2},  // 28 days starting Saturday
		{2025, 6},  // starts Sunday, no stub
		{2025, 9},
		{2025, 12},
		{2026, 4},
	}

	for _, tc := range cases {
		buckets := ComputeWeeklyProgress(tc.year, tc.month, entry.MonthView{})
		if len(buckets) == 0 {
			t.Fatalf("%04d-%02d: no buckets", tc.year, tc.month)
		}

		sum := 0
		for i, b := range buckets {
			if b.WeekIndex != i+1 {
				t.Errorf("%04d-%02d: bucket %d has weekIndex %d", tc.year, tc.month, i, b.WeekIndex)
			}
			if b.TotalDays < 1 || b.TotalDays > 7 {
				t.Errorf("%04d-%02d: bucket %d spans %d days", tc.year, tc.month, i, b.TotalDays)
			}
			sum += b.TotalDays
		}
		if want := entry.DaysInMonth(tc.year, tc.month); sum != want {
			t.Errorf("%04d-%02d: buckets cover %d days, want %d", tc.year, tc.month, sum, want)
		}
	}
}

func TestAllDoneMonthIsAllGold(t *testing.T) {
	buckets := ComputeWeeklyProgress(2025, 9, monthAllDone(2025, 9))

	for _, b := range buckets {
		if !b.Completed() || !b.Gold() {
			t.Errorf("week %d: completed=%v gold=%v with every day done", b.WeekIndex, b.Completed(), b.Gold())
		}
	}

	path := BuildQuestPath(buckets)
	if path.Fraction != 1 {
		t.Errorf("fraction = %v, want 1", path.Fraction)
	}
	if path.GoldCount != len(buckets) {
		t.Errorf("goldCount = %d, want %d", path.GoldCount, len(buckets))
	}
}

func TestEmptyMonthHasNoProgress(t *testing.T) {
	buckets := ComputeWeeklyProgress(2025, 9, entry.MonthView{})

	for _, b := range buckets {
		if b.Completed() || b.Gold() {
			t.Errorf("week %d: completed=%v gold=%v with no entries", b.WeekIndex, b.Completed(), b.Gold())
		}
	}

	path := BuildQuestPath(buckets)
	if path.Fraction != 0 {
		t.Errorf("fraction = %v, want 0", path.Fraction)
	}
	if path.CompletedWeeks != 0 || path.GoldCount != 0 {
		t.Errorf("completedWeeks = %d, goldCount = %d, want 0", path.CompletedWeeks, path.GoldCount)
	}
}

// April 2026 starts on a Wednesday (weekday 3) and has 30 days, so the
// stub bucket spans days 1-4.
func TestWednesdayStartStubWeek(t *testing.T) {
	if wd := entry.FirstWeekday(2026, 4); wd != 3 {
		t.Fatalf("April 2026 starts on weekday %d, expected 3", wd)
	}

	buckets := ComputeWeeklyProgress(2026, 4, entry.MonthView{})
	if buckets[0].TotalDays != 4 {
		t.Errorf("stub bucket spans %d days, want 4", buckets[0].TotalDays)
	}
}

// September 2025 starts on a Monday: a 6-day stub, three full weeks, and a
// trailing partial bucket for days 28-30.
func TestSeptember2025Buckets(t *testing.T) {
	buckets := ComputeWeeklyProgress(2025, 9, entry.MonthView{})

	wantTotals := []int{6, 7, 7, 7, 3}
	if len(buckets) != len(wantTotals) {
		t.Fatalf("got %d buckets, want %d", len(buckets), len(wantTotals))
	}
	for i, want := range wantTotals {
		if buckets[i].TotalDays != want {
			t.Errorf("bucket %d spans %d days, want %d", i+1, buckets[i].TotalDays, want)
		}
	}
}

func TestCompletionThresholdRoundsUp(t *testing.T) {
	cases := []struct {
		total, completed int
		completedWant    bool
		goldWant         bool
	}{
		{7, 3, false, false},
		{7, 4, true, false},
		{7, 7, true, true},
		{6, 3, true, false},
		{4, 1, false, false},
		{4, 2, true, false},
		{3, 2, true, false},
		{1, 1, true, true},
	}

	for _, tc := range cases {
		b := WeekBucket{WeekIndex: 1, CompletedCount: tc.completed, TotalDays: tc.total}
		if b.Completed() != tc.completedWant {
			t.Errorf("%d/%d: completed = %v, want %v", tc.completed, tc.total, b.Completed(), tc.completedWant)
		}
		if b.Gold() != tc.goldWant {
			t.Errorf("%d/%d: gold = %v, want %v", tc.completed, tc.total, b.Gold(), tc.goldWant)
		}
	}
}

func TestDoneCountsRespectBucketBoundaries(t *testing.T) {
	// September 2025: mark days 1-6 done, exactly the stub week.
	view := entry.MonthView{}
	for d := 1; d <= 6; d++ {
		date := entry.DateKey(2025, 9, d)
		view[date] = &entry.DayEntry{ID: date, Date: date, Done: true}
	}

	buckets := ComputeWeeklyProgress(2025, 9, view)
	if buckets[0].CompletedCount != 6 {
		t.Errorf("stub bucket counted %d done days, want 6", buckets[0].CompletedCount)
	}
	for _, b := range buckets[1:] {
		if b.CompletedCount != 0 {
			t.Errorf("week %d counted %d done days, want 0", b.WeekIndex, b.CompletedCount)
		}
	}

	path := BuildQuestPath(buckets)
	if path.CompletedWeeks != 1 || path.GoldCount != 1 {
		t.Errorf("completedWeeks = %d, goldCount = %d, want 1 and 1", path.CompletedWeeks, path.GoldCount)
	}
	if want := 1.0 / 5.0; path.Fraction != want {
		t.Errorf("fraction = %v, want %v", path.Fraction, want)
	}
}
