package analysis

import (
	"sort"
	"strings"
	"time"
)

// Minimum history sizes before the history-wide signals are computed.
const (
	MinHistoryForCooccurrence = 3
	MinHistoryForFrequency    = 2
	minCooccurrenceFrequency  = 3
)

// AnalyzeThemeCooccurrence reports the current entry's theme pair when the
// same pair has appeared in at least three past entries. Past entries are
// tagged with the lighter co-occurrence table; the pair key is the first two
// detected themes in sorted order.
func AnalyzeThemeCooccurrence(currentThemes []string, history []HistoryEntry, lex *Lexicon) *ThemeCooccurrence {
	if len(currentThemes) < 2 {
		return nil
	}

	counts := make(map[string]int)
	moods := make(map[string][]int)
	for _, entry := range history {
		themes := matchThemes(strings.ToLower(entry.Text), lex.CooccurrenceThemes)
		if len(themes) < 2 {
			continue
		}
		key := comboKey(themes[0], themes[1])
		counts[key]++
		moods[key] = append(moods[key], moodOrDefault(entry.Mood))
	}

	key := comboKey(currentThemes[0], currentThemes[1])
	if counts[key] < minCooccurrenceFrequency {
		return nil
	}
	return &ThemeCooccurrence{
		Combination: strings.Replace(key, "+", " + ", 1),
		Frequency:   counts[key],
		TypicalMood: round1(meanInts(moods[key])),
	}
}

func comboKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "+" + pair[1]
}

func cutCombination(combination string) (string, string, bool) {
	return strings.Cut(combination, " + ")
}

// Journaling cadences.
const (
	PatternDaily    = "daily_practice"
	PatternRegular  = "regular_practice"
	PatternWeekly   = "weekly_practice"
	PatternReactive = "reactive_journaling"
)

// AnalyzeWritingFrequency classifies the journaling rhythm from the gaps, in
// whole days, between past entries and now. It needs at least two past
// entries.
func AnalyzeWritingFrequency(history []HistoryEntry, now time.Time) *WritingFrequency {
	if len(history) < MinHistoryForFrequency {
		return nil
	}

	timestamps := make([]time.Time, 0, len(history)+1)
	for _, e := range history {
		timestamps = append(timestamps, e.Timestamp)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })
	timestamps = append(timestamps, now)

	gaps := make([]float64, 0, len(timestamps)-1)
	for i := 0; i < len(timestamps)-1; i++ {
		gaps = append(gaps, float64(floorDays(timestamps[i+1].Sub(timestamps[i]))))
	}
	avgGap := mean(gaps)

	wf := &WritingFrequency{
		AvgGapDays:   round1(avgGap),
		TotalEntries: len(history) + 1,
	}
	switch {
	case avgGap <= 1.5:
		wf.Pattern, wf.Description = PatternDaily, "writing almost daily"
	case avgGap <= 4:
		wf.Pattern, wf.Description = PatternRegular, "writing several times per week"
	case avgGap <= 10:
		wf.Pattern, wf.Description = PatternWeekly, "writing weekly"
	default:
		wf.Pattern, wf.Description = PatternReactive, "writing when needed"
	}

	recent := gaps
	if len(gaps) >= 5 {
		recent = gaps[len(gaps)-5:]
	}
	wf.IsAccelerating = len(recent) >= 3 && mean(recent) < avgGap*0.5
	return wf
}

// floorDays rounds a duration down to whole days, toward negative infinity.
func floorDays(d time.Duration) int {
	day := 24 * time.Hour
	n := int(d / day)
	if d%day < 0 {
		n--
	}
	return n
}
