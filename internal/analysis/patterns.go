package analysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultMoodDriftThreshold is the change between the mean of the earliest
// two and latest two matched moods that counts as growth or decline.
const DefaultMoodDriftThreshold = 0.5

// WeekdayPattern is the weekday most matched entries were written on.
type WeekdayPattern struct {
	Weekday string
	Count   int
}

// PatternAnalysis is the cross-entry context behind the richer insights.
type PatternAnalysis struct {
	HasGrowthStory  bool
	HasDecline      bool
	TemporalPattern *WeekdayPattern
	MoodTrajectory  []int
	UserPhrases     []string
	ActionsTaken    []string
}

// AnalyzePatterns looks for weekday clustering and mood drift among the
// matches, recurring phrases across the whole history, and coping actions
// mentioned in the matches.
func AnalyzePatterns(similar []SimilarEntry, history []HistoryEntry, lex *Lexicon, drift float64) PatternAnalysis {
	var p PatternAnalysis

	if weekday, count := dominantWeekday(similar); count >= 2 {
		p.TemporalPattern = &WeekdayPattern{Weekday: weekday, Count: count}
	}

	chronological := sortedByTime(similar)
	p.MoodTrajectory = make([]int, len(chronological))
	for i, e := range chronological {
		p.MoodTrajectory[i] = e.Mood
	}
	if moods := p.MoodTrajectory; len(moods) >= 3 {
		earliest := meanInts(moods[:2])
		latest := meanInts(moods[len(moods)-2:])
		switch {
		case latest >= earliest+drift:
			p.HasGrowthStory = true
		case latest <= earliest-drift:
			p.HasDecline = true
		}
	}

	p.UserPhrases = ExtractKeyPhrases(history, lex, 2)
	p.ActionsTaken = ExtractActions(similar, lex)
	return p
}

// dominantWeekday returns the most frequent weekday; ties go to the weekday
// seen first.
func dominantWeekday(entries []SimilarEntry) (string, int) {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		day := e.Timestamp.Weekday().String()
		if counts[day] == 0 {
			order = append(order, day)
		}
		counts[day]++
	}
	best, bestCount := "", 0
	for _, day := range order {
		if counts[day] > bestCount {
			best, bestCount = day, counts[day]
		}
	}
	return best, bestCount
}

func sortedByTime(entries []SimilarEntry) []SimilarEntry {
	out := make([]SimilarEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// ExtractKeyPhrases returns up to five two and three word phrases that occur
// at least minCount times across the history, in order of first use. It
// needs at least three entries.
func ExtractKeyPhrases(history []HistoryEntry, lex *Lexicon, minCount int) []string {
	if len(history) < 3 {
		return nil
	}
	texts := make([]string, len(history))
	for i, e := range history {
		texts[i] = strings.ToLower(e.Text)
	}
	words := wordRe.FindAllString(strings.Join(texts, " "), -1)

	counts := make(map[string]int)
	var order []string
	add := func(phrase string) {
		if counts[phrase] == 0 {
			order = append(order, phrase)
		}
		counts[phrase]++
	}
	for i := 0; i < len(words)-1; i++ {
		add(words[i] + " " + words[i+1])
		if i < len(words)-2 {
			add(words[i] + " " + words[i+1] + " " + words[i+2])
		}
	}

	var phrases []string
	for _, phrase := range order {
		if counts[phrase] < minCount || utf8.RuneCountInString(phrase) <= 5 {
			continue
		}
		if _, generic := lex.stoplistSet[phrase]; generic {
			continue
		}
		phrases = append(phrases, phrase)
		if len(phrases) == 5 {
			break
		}
	}
	return phrases
}

// ExtractActions finds coping actions ("talked to X", "decided to Y") in the
// matched entries. Results are unique, in first-seen order, at most three.
func ExtractActions(entries []SimilarEntry, lex *Lexicon) []string {
	seen := make(map[string]struct{})
	var actions []string
	for _, e := range entries {
		text := strings.ToLower(e.Text)
		for _, re := range lex.actionRes {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				action := strings.TrimSpace(m[1])
				if utf8.RuneCountInString(action) <= 2 {
					continue
				}
				if _, dup := seen[action]; dup {
					continue
				}
				seen[action] = struct{}{}
				actions = append(actions, action)
			}
		}
	}
	if len(actions) > 3 {
		actions = actions[:3]
	}
	return actions
}

// ExtractQuote picks the one or two most meaningful sentences of text,
// favoring actions, emotions and sentences of 8 to 20 words. The quote is
// capped at 200 characters.
func ExtractQuote(text string, lex *Lexicon) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return truncateRunes(text, 200)
	}

	type scored struct {
		score    int
		sentence string
	}
	ranked := make([]scored, len(sentences))
	for i, sent := range sentences {
		lower := strings.ToLower(sent)
		words := len(strings.Fields(sent))
		s := 0
		if containsAnySubstring(lower, lex.QuoteActionKeywords) {
			s += 4
		}
		if containsAnySubstring(lower, lex.QuoteEmotionKeywords) {
			s += 2
		}
		switch {
		case words >= 8 && words <= 20:
			s += 2
		case words > 20:
			s++
		}
		ranked[i] = scored{score: s, sentence: sent}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	quote := ranked[0].sentence + "."
	if len(ranked) >= 2 && ranked[0].score > 0 {
		quote = ranked[0].sentence + ". " + ranked[1].sentence + "."
	}
	if utf8.RuneCountInString(quote) > 200 {
		quote = truncateRunes(quote, 197) + "..."
	}
	return quote
}
