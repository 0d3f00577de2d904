package progress

import (
	"sort"

	"github.com/learnhub/learnhub-progress/pkg/timeutil"
)

// CalculateStreak derives the current and longest consecutive-day streaks
// from a set of active day keys. Pure; callable independently of the store.
//
// current counts consecutive day keys walking backward from today while each
// is present in activeDays. If today itself has no recorded activity the
// current streak is 0.
//
// longest is the maximum run length over all of activeDays, where a run is a
// maximal sequence of days each exactly one calendar day after the previous.
// It never decreases: the result is the max of the fresh scan and
// prevLongest, so a previously observed best survives even if the day set
// is mutated in ways a plain rescan would not reward.
func CalculateStreak(activeDays []string, today string, prevLongest int) (current, longest int) {
	longest = prevLongest

	if len(activeDays) == 0 {
		return 0, longest
	}

	days := make(map[string]struct{}, len(activeDays))
	sorted := make([]string, 0, len(activeDays))
	for _, d := range activeDays {
		if _, ok := days[d]; ok {
			continue
		}
		days[d] = struct{}{}
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	// Current: walk backward from today until the first missing day.
	for day := today; day != ""; day = timeutil.PrevDayKey(day) {
		if _, ok := days[day]; !ok {
			break
		}
		current++
	}

	// Longest: scan runs in ascending order.
	run := 0
	for i, day := range sorted {
		if i > 0 && timeutil.IsConsecutiveKey(sorted[i-1], day) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	if current > longest {
		longest = current
	}
	return current, longest
}

// StreakAtRisk reports whether the streak will break unless activity is
// recorded today: the last active day was yesterday and today has no
// activity yet.
func StreakAtRisk(s Streak, today string) bool {
	if s.LastActivityDate == "" {
		return false
	}
	if s.LastActivityDate == today {
		return false
	}
	return timeutil.IsConsecutiveKey(s.LastActivityDate, today)
}
