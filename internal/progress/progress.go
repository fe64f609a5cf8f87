package progress

import (
	"cloutQuestAPI/internal/types/entry"
)

// WeekBucket is a contiguous span of calendar days with its completion
// count. The first bucket is a stub covering day 1 through the first
// Saturday when the month does not start on Sunday; the rest are 7-day
// spans clipped at the month's last day.
type WeekBucket struct {
	WeekIndex      int `json:"weekIndex"`
	CompletedCount int `json:"completed"`
	TotalDays      int `json:"total"`
}

// ComputeWeeklyProgress splits a month into week buckets and counts the
// done entries inside each. Pure function of its inputs; buckets come out
// in chronological order and every month yields at least one.
func ComputeWeeklyProgress(year, month int, view entry.MonthView) []WeekBucket {
	firstWeekday := entry.FirstWeekday(year, month)
	totalDays := entry.DaysInMonth(year, month)

	buckets := []WeekBucket{}
	day := 1
	if firstWeekday > 0 {
		stubEnd := 7 - firstWeekday
		if stubEnd > totalDays {
			stubEnd = totalDays
		}
		buckets = append(buckets, bucket(year, month, len(buckets)+1, day, stubEnd, view))
		day = stubEnd + 1
	}
	for day <= totalDays {
		end := day + 6
		if end > totalDays {
			end = totalDays
		}
		buckets = append(buckets, bucket(year, month, len(buckets)+1, day, end, view))
		day = end + 1
	}
	return buckets
}

func bucket(year, month, index, from, to int, view entry.MonthView) WeekBucket {
	b := WeekBucket{WeekIndex: index, TotalDays: to - from + 1}
	for d := from; d <= to; d++ {
		if e, ok := view[entry.DateKey(year, month, d)]; ok && e.Done {
			b.CompletedCount++
		}
	}
	return b
}

// Completed reports whether the bucket reached its checkpoint: at least
// half its days done, rounded up.
func (b WeekBucket) Completed() bool {
	return b.CompletedCount >= (b.TotalDays+1)/2
}

// Gold reports a fully-completed bucket.
func (b WeekBucket) Gold() bool {
	return b.TotalDays > 0 && b.CompletedCount >= b.TotalDays
}

// Checkpoint is one quest-path marker derived from a WeekBucket.
type Checkpoint struct {
	WeekIndex      int  `json:"weekIndex"`
	CompletedCount int  `json:"completed"`
	TotalDays      int  `json:"total"`
	Completed      bool `json:"isCompleted"`
	Gold           bool `json:"isGold"`
}

// QuestPath is the gamification state projected from a month's buckets:
// per-week checkpoints, the gold-coin tally, and the overall progress
// fraction positioning the avatar along the path.
type QuestPath struct {
	Checkpoints    []Checkpoint `json:"checkpoints"`
	CompletedWeeks int          `json:"completedWeeks"`
	GoldCount      int          `json:"goldCount"`
	Fraction       float64      `json:"fraction"`
}

// BuildQuestPath derives the quest-path state from a bucket sequence.
func BuildQuestPath(buckets []WeekBucket) QuestPath {
	path := QuestPath{Checkpoints: make([]Checkpoint, 0, len(buckets))}
	for _, b := range buckets {
		cp := Checkpoint{
			WeekIndex:      b.WeekIndex,
			CompletedCount: b.CompletedCount,
			TotalDays:      b.TotalDays,
			Completed:      b.Completed(),
			Gold:           b.Gold(),
		}
		if cp.Completed {
			path.CompletedWeeks++
		}
		if cp.Gold {
			path.GoldCount++
		}
		path.Checkpoints = append(path.Checkpoints, cp)
	}
	if len(buckets) > 0 {
		path.Fraction = float64(path.CompletedWeeks) / float64(len(buckets))
	}
	return path
}
