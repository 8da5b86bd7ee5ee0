package analysis

import (
	"context"
	"fmt"
	"strings"
)

// WelcomeInsight is returned for the very first entry.
const WelcomeInsight = "Welcome to your journaling journey! This is your first entry. " +
	"As you continue writing, I'll analyze not just your mood, but how you're writing—" +
	"your engagement level, emotional complexity, and processing style. " +
	"Together, these create a complete picture of your mental state over time. " +
	"Every entry is a step toward deeper self-understanding."

// TemplateGenerator produces deterministic insights from an ordered chain of
// guarded strategies. The first strategy whose guard holds writes the text.
type TemplateGenerator struct {
	moodDrift float64
}

// NewTemplateGenerator returns a template generator. A non-positive drift
// uses DefaultMoodDriftThreshold.
func NewTemplateGenerator(moodDrift float64) *TemplateGenerator {
	if moodDrift <= 0 {
		moodDrift = DefaultMoodDriftThreshold
	}
	return &TemplateGenerator{moodDrift: moodDrift}
}

// Generate never fails.
func (g *TemplateGenerator) Generate(_ context.Context, in InsightInput) (Insight, error) {
	return Insight{Text: g.Render(in), Source: SourceTemplate}, nil
}

// Render runs the strategy chain.
func (g *TemplateGenerator) Render(in InsightInput) string {
	c := &insightContext{in: in, lex: in.Lexicon, drift: g.moodDrift}
	if c.lex == nil {
		c.lex = DefaultLexicon()
	}
	for _, s := range insightChain {
		if s.applies(c) {
			return s.render(c)
		}
	}
	return renderContextual(c)
}

type insightContext struct {
	in       InsightInput
	lex      *Lexicon
	drift    float64
	analyzed *PatternAnalysis
}

func (c *insightContext) patterns() PatternAnalysis {
	if c.analyzed == nil {
		p := AnalyzePatterns(c.in.Similar, c.in.History, c.lex, c.drift)
		c.analyzed = &p
	}
	return *c.analyzed
}

func (c *insightContext) composite() string {
	return score(c.in.Score.CompositeScore)
}

func (c *insightContext) ago(e SimilarEntry) string {
	return FormatTimeAgo(e.Timestamp, c.in.Now)
}

func (c *insightContext) entryNumber() int {
	return len(c.in.History) + 1
}

type insightStrategy struct {
	name    string
	applies func(*insightContext) bool
	render  func(*insightContext) string
}

var insightChain = []insightStrategy{
	{
		name:    "welcome",
		applies: func(c *insightContext) bool { return len(c.in.History) == 0 },
		render:  func(*insightContext) string { return WelcomeInsight },
	},
	{
		name:    "early_journey",
		applies: func(c *insightContext) bool { return len(c.in.History) < 3 },
		render:  renderEarlyJourney,
	},
	{
		name:    "sparse",
		applies: func(c *insightContext) bool { return len(c.in.Similar) < 2 },
		render:  renderSparse,
	},
	{
		name:    "composite_divergence",
		applies: func(c *insightContext) bool { return c.in.Score.IsDifferentFromMood },
		render:  renderComposite,
	},
	{
		name:    "theme_cooccurrence",
		applies: func(c *insightContext) bool { return c.in.Signals.ThemePattern != nil },
		render:  renderCooccurrence,
	},
	{
		name: "accelerating_frequency",
		applies: func(c *insightContext) bool {
			return c.in.Signals.Frequency != nil && c.in.Signals.Frequency.IsAccelerating
		},
		render: renderFrequency,
	},
	{
		name: "growth_narrative",
		applies: func(c *insightContext) bool {
			p := c.patterns()
			return p.HasGrowthStory || p.HasDecline
		},
		render: renderGrowth,
	},
	{
		name:    "weekday_pattern",
		applies: func(c *insightContext) bool { return c.patterns().TemporalPattern != nil },
		render:  renderTemporal,
	},
	{
		name:    "contextual_comparison",
		applies: func(*insightContext) bool { return true },
		render:  renderContextual,
	},
}

// StrategyNames lists the template strategies in evaluation order.
func StrategyNames() []string {
	names := make([]string, len(insightChain))
	for i, s := range insightChain {
		names[i] = s.name
	}
	return names
}

func renderEarlyJourney(c *insightContext) string {
	cs := c.in.Score
	if cs.CompositeScore >= 3.5 {
		return fmt.Sprintf("You're building a meaningful practice. This is entry #%d. "+
			"Your composite wellbeing score is %s/5—%s. "+
			"I'm tracking not just your mood, but your writing patterns, emotional complexity, "+
			"and how you process thoughts. Keep going, patterns will emerge.",
			c.entryNumber(), c.composite(), strings.ToLower(cs.Interpretation))
	}
	return fmt.Sprintf("Thank you for showing up, even when things are difficult. "+
		"This is entry #%d. Your composite score is %s/5. "+
		"You wrote %d words today—"+
		"that act of putting feelings into words is powerful. "+
		"Keep going. Insights will emerge as your journal grows.",
		c.entryNumber(), c.composite(), c.in.Signals.Intensity.WordCount)
}

func renderSparse(c *insightContext) string {
	sig := c.in.Signals
	if len(c.in.Similar) == 1 {
		return fmt.Sprintf("This reminds me of something you wrote %s. "+
			"You're at entry #%d now (composite score: %s/5). "+
			"Themes are starting to emerge. A few more entries and I'll be able to show you "+
			"deeper patterns in how you process these experiences.",
			c.ago(c.in.Similar[0]), c.entryNumber(), c.composite())
	}
	if c.in.Score.CompositeScore >= 3.5 {
		return fmt.Sprintf("Entry #%d. Your composite score is %s/5—"+
			"you're %s and writing with %s engagement. "+
			"This is a fresh perspective compared to recent entries. These shifts are worth noticing.",
			c.entryNumber(), c.composite(), sig.Sentiment.PrimaryEmotion, sig.Intensity.Intensity)
	}
	return fmt.Sprintf("Entry #%d. I can sense you're processing something new here. "+
		"Your composite score is %s/5, shaped by your %s state "+
		"and %s. "+
		"As you continue, connections to past experiences may reveal themselves.",
		c.entryNumber(), c.composite(), sig.Sentiment.PrimaryEmotion, sig.Intensity.Interpretation)
}

func renderComposite(c *insightContext) string {
	cs := c.in.Score
	sig := c.in.Signals
	diff := cs.CompositeScore - float64(cs.MoodRating)

	context := ""
	if len(c.in.Similar) > 0 {
		context = fmt.Sprintf(" %s, you felt similarly.", capitalize(c.ago(c.in.Similar[0])))
	}

	switch {
	case diff >= 0.7:
		var reasons []string
		if sig.Intensity.Intensity == IntensityHigh || sig.Intensity.Intensity == IntensityMedium {
			reasons = append(reasons, fmt.Sprintf("you're writing %d words of engaged reflection", sig.Intensity.WordCount))
		}
		if sig.Reflection.Mode == ModeActiveProcessing || sig.Reflection.Mode == ModeReflecting {
			reasons = append(reasons, fmt.Sprintf("you're asking yourself %d questions", sig.Reflection.QuestionCount))
		}
		if containsString(c.lex.UpliftingEmotions, sig.Sentiment.PrimaryEmotion) {
			reasons = append(reasons, "your emotional tone is "+sig.Sentiment.PrimaryEmotion)
		}
		reasonsText := "you're engaging deeply with your thoughts"
		if len(reasons) > 0 {
			reasonsText = strings.Join(reasons, ", ")
		}
		return fmt.Sprintf("You rated yourself %d/5, but your composite wellbeing score is %s/5. "+
			"Why the difference? Because %s. "+
			"The number you gave yourself doesn't capture the work you're doing here.%s "+
			"You're processing, not just surviving. That's growth.",
			cs.MoodRating, c.composite(), reasonsText, context)

	case diff >= 0.4:
		return fmt.Sprintf("You rated yourself %d/5, but looking at the full picture—"+
			"your %d-word entry, your %s mode, "+
			"your %s emotional state—I'd say you're closer to %s/5. "+
			"%s.%s "+
			"You're doing better than you might feel in this moment.",
			cs.MoodRating, sig.Intensity.WordCount, sig.Reflection.Mode,
			sig.Sentiment.PrimaryEmotion, c.composite(), cs.Interpretation, context)

	case diff <= -0.7:
		var signs []string
		if sig.Intensity.Intensity == IntensityLow {
			signs = append(signs, "this is a very brief entry")
		}
		if sig.Reflection.Mode == ModeVenting {
			signs = append(signs, "you're venting without reflection")
		}
		if sig.Sentiment.IsMixed {
			signs = append(signs, fmt.Sprintf("you're feeling both %s and %s",
				sig.Sentiment.PrimaryEmotion, sig.Sentiment.SecondaryEmotion))
		}
		signsText := "there are underlying signals"
		if len(signs) > 0 {
			signsText = strings.Join(signs, " and ")
		}
		return fmt.Sprintf("You rated yourself %d/5, but I'm noticing something beneath the surface. "+
			"Your composite score is %s/5 because %s. "+
			"%s Sometimes we minimize our struggles. "+
			"What's being left unsaid here?",
			cs.MoodRating, c.composite(), signsText, context)

	case diff <= -0.4:
		return fmt.Sprintf("You rated yourself %d/5, but reading between the lines—"+
			"the brevity of your words (%d words), "+
			"the %s undertone—suggests you might be at %s/5. "+
			"%s. "+
			"What are you not letting yourself feel right now?",
			cs.MoodRating, sig.Intensity.WordCount, sig.Sentiment.PrimaryEmotion,
			c.composite(), cs.Interpretation)
	}
	return renderContextual(c)
}

func renderCooccurrence(c *insightContext) string {
	tp := c.in.Signals.ThemePattern
	mostSimilar := c.in.Similar[0]
	first, second := tp.Themes()
	return fmt.Sprintf("I'm seeing a familiar pattern. When you write about %s, "+
		"it's happened %d times before, and your typical state is around %s/5. "+
		"Today you're at %s/5. %s, you wrote:\n"+
		"\"%s\"\n\n"+
		"This combination of themes tends to cluster together for you. "+
		"What is it about %s and %s "+
		"that brings them up at the same time? Understanding this connection might reveal something important.",
		tp.Combination, tp.Frequency, score(tp.TypicalMood),
		c.composite(), capitalize(c.ago(mostSimilar)),
		ExtractQuote(mostSimilar.Text, c.lex),
		first, second)
}

func renderFrequency(c *insightContext) string {
	wf := c.in.Signals.Frequency
	return fmt.Sprintf("You're entry #%d, and I've noticed something: you've accelerated your writing recently. "+
		"Usually you're %s, but lately you've been writing much more often. "+
		"This acceleration often signals you're processing something significant. "+
		"Today you're at %s/5 and feeling %s. "+
		"When you write this frequently, what's usually driving it? "+
		"What are you working through right now?",
		wf.TotalEntries, wf.Description, c.composite(), c.in.Signals.Sentiment.PrimaryEmotion)
}

func renderGrowth(c *insightContext) string {
	p := c.patterns()
	chronological := sortedByTime(c.in.Similar)
	earliest := chronological[0]
	latest := chronological[len(chronological)-1]
	earliestAgo := c.ago(earliest)
	latestAgo := c.ago(latest)
	quote := ExtractQuote(earliest.Text, c.lex)

	if p.HasGrowthStory {
		if c.in.Score.CompositeScore >= float64(latest.Mood) {
			return fmt.Sprintf("You're making real progress with this. Looking at your journey:\n\n"+
				"%s, you were at %d/5 and wrote:\n"+
				"\"%s\"\n\n"+
				"%s, you reached %d/5. "+
				"Today your composite state is %s/5. "+
				"This upward trajectory isn't luck—it's the result of how you're showing up for yourself. "+
				"What's working for you?",
				capitalize(earliestAgo), earliest.Mood, quote,
				capitalize(latestAgo), latest.Mood, c.composite())
		}
		return fmt.Sprintf("You've navigated this before, and you've grown through it. %s, "+
			"you were at %d/5. By %s, you'd moved to %d/5. "+
			"Today feels like %s/5, a step back perhaps, but your history shows you know how to move forward. "+
			"What helped you before?",
			capitalize(earliestAgo), earliest.Mood, latestAgo, latest.Mood, c.composite())
	}

	if len(p.ActionsTaken) > 0 {
		actions := p.ActionsTaken
		if len(actions) > 2 {
			actions = actions[:2]
		}
		return fmt.Sprintf("This theme has been more challenging lately. %s, "+
			"you were at %d/5. Now you're at %s/5. "+
			"Looking back, I see you tried %s. "+
			"Sometimes what worked before needs adjustment. What feels different now, "+
			"and what might you need that you didn't before?",
			capitalize(earliestAgo), earliest.Mood, c.composite(), strings.Join(actions, ", "))
	}
	return fmt.Sprintf("I notice this has been weighing on you more over time. "+
		"%s you wrote:\n"+
		"\"%s\"\n\n"+
		"You were at %d/5 then, and you're at %s/5 now. "+
		"The fact that you keep showing up to write about this shows strength. "+
		"What support do you need right now?",
		capitalize(earliestAgo), quote, earliest.Mood, c.composite())
}

func renderTemporal(c *insightContext) string {
	tp := c.patterns().TemporalPattern
	mostSimilar := c.in.Similar[0]
	strength := "often"
	if tp.Count >= 3 {
		strength = "consistently"
	}
	return fmt.Sprintf("I'm noticing a pattern: you %s write about this on %ss. "+
		"%s, you wrote:\n"+
		"\"%s\"\n\n"+
		"Today you're at %s/5. Is there something about %ss "+
		"that brings this up? Sometimes awareness of timing reveals what triggers these feelings.",
		strength, tp.Weekday, capitalize(c.ago(mostSimilar)),
		ExtractQuote(mostSimilar.Text, c.lex), c.composite(), tp.Weekday)
}

func renderContextual(c *insightContext) string {
	p := c.patterns()
	mostSimilar := c.in.Similar[0]
	ago := capitalize(c.ago(mostSimilar))
	pastMood := mostSimilar.Mood
	composite := c.in.Score.CompositeScore
	quote := ExtractQuote(mostSimilar.Text, c.lex)

	personalization := ""
	if len(p.UserPhrases) > 0 {
		personalization = fmt.Sprintf("I notice you often write about '%s'. ", p.UserPhrases[0])
	}

	if composite < 3 {
		if pastMood < 3 {
			if len(p.ActionsTaken) > 0 {
				return fmt.Sprintf("%sYou've felt this way before. %s, "+
					"you were also at %d/5 and wrote:\n"+
					"\"%s\"\n\n"+
					"I see that in the past you %s. Did that help? "+
					"Today you're at %s/5. Do you need to try something different this time?",
					personalization, ago, pastMood, quote, p.ActionsTaken[0], c.composite())
			}
			return fmt.Sprintf("%sThis feeling is familiar. %s, "+
				"you wrote:\n"+
				"\"%s\"\n\n"+
				"You were at %d/5 then, and %s/5 now. "+
				"What did you need then? Is it the same now, or has something shifted?",
				personalization, ago, quote, pastMood, c.composite())
		}
		return fmt.Sprintf("%sYou've been in a better place with this before. "+
			"%s, you were at %d/5 and wrote:\n"+
			"\"%s\"\n\n"+
			"Today you're at %s/5. You've navigated this territory before. "+
			"What was different then that supported you?",
			personalization, ago, pastMood, quote, c.composite())
	}

	if pastMood >= 4 {
		return fmt.Sprintf("%sThis positive feeling is becoming a pattern! "+
			"%s, you were at %d/5 and wrote:\n"+
			"\"%s\"\n\n"+
			"Today you're at %s/5. You're learning what works for you. "+
			"What are the common threads between then and now?",
			personalization, ago, pastMood, quote, c.composite())
	}
	return fmt.Sprintf("%sLook at how far you've come. %s, "+
		"you were at %d/5 and wrote:\n"+
		"\"%s\"\n\n"+
		"Today you're at %s/5. That's real progress. "+
		"What changed? Understanding this can help you recreate it when you need it.",
		personalization, ago, pastMood, quote, c.composite())
}
