package analysis

import (
	"fmt"
	"math"
	"strings"
)

const promptTask = `TASK:
Analyze connections between the current entry and past entries. Identify:

1. **Recurring Themes**: Topics, concerns, or situations that appear across entries
2. **Behavioral Patterns**: Repeated actions, reactions, or coping mechanisms
3. **Emotional Trajectories**: How feelings about similar situations have evolved
4. **Cognitive Patterns**: Thought processes, decision-making styles, or mental frameworks
5. **Progress Indicators**: Growth, stagnation, or regression in specific areas
6. **Blind Spots**: Patterns the writer may not be aware of

GUIDELINES:
- Be specific, citing dates and examples
- Note both positive patterns and areas for reflection
- Avoid being judgmental; focus on observation
- Highlight growth and positive changes
- Ask thought-provoking questions when appropriate
- Keep insights actionable

Talk to the person Provide 3-5 key insights, prioritizing the most meaningful patterns. Do not make insights up if there are no past similar entries.

Be conversational, empathetic, and specific to their experiences. Avoid generic advice.

In the first paragraph, state all of the context you were given. In the second paragraph, tell the user the patterns you have found.`

// promptEntries is how many retrieved entries are quoted in the prompt.
const promptEntries = 3

// BuildPrompt assembles the retrieval-augmented prompt: the closest past
// entries, the current entry, the computed signals and any divergences worth
// calling out.
func BuildPrompt(in InsightInput) string {
	var entries []string
	for i, e := range in.Similar {
		if i == promptEntries {
			break
		}
		entries = append(entries, fmt.Sprintf("Past Entry #%d (%s, mood: %d/5, %d%% similar):\n\"%s...\"",
			i+1, FormatTimeAgo(e.Timestamp, in.Now), e.Mood,
			int(e.Similarity*100), truncateRunes(e.Text, 200)))
	}
	contextBlock := "No similar past entries found."
	if len(entries) > 0 {
		contextBlock = strings.Join(entries, "\n\n")
	}

	sig := in.Signals
	composite := in.Score.CompositeScore
	diff := composite - float64(in.Mood)

	secondary := sig.Sentiment.SecondaryEmotion
	if secondary == "" {
		secondary = "none"
	}

	var analysis strings.Builder
	fmt.Fprintf(&analysis, "\nCurrent Analysis:\n")
	fmt.Fprintf(&analysis, "- User's mood rating: %d/5\n", in.Mood)
	fmt.Fprintf(&analysis, "- Composite mental state: %s/5 (AI-analyzed from multiple signals)\n", score(composite))
	fmt.Fprintf(&analysis, "- Primary emotion: %s\n", sig.Sentiment.PrimaryEmotion)
	fmt.Fprintf(&analysis, "- Secondary emotion: %s\n", secondary)
	fmt.Fprintf(&analysis, "- Writing intensity: %s (%d words)\n", sig.Intensity.Intensity, sig.Intensity.WordCount)
	fmt.Fprintf(&analysis, "- Processing mode: %s (%d questions asked)\n", sig.Reflection.Mode, sig.Reflection.QuestionCount)
	fmt.Fprintf(&analysis, "- Entry count: #%d\n", len(in.History)+1)
	if tp := sig.ThemePattern; tp != nil {
		fmt.Fprintf(&analysis, "- Recurring theme pattern: %s (appears %dx)\n", tp.Combination, tp.Frequency)
	}
	if wf := sig.Frequency; wf != nil {
		fmt.Fprintf(&analysis, "- Writing pattern: %s\n", wf.Pattern)
	}

	var special []string
	if math.Abs(diff) >= 0.7 {
		if diff > 0 {
			special = append(special, fmt.Sprintf("The user rated themselves %d/5, but their actual state seems better (%s/5). "+
				"They may be being too hard on themselves.", in.Mood, score(composite)))
		} else {
			special = append(special, fmt.Sprintf("The user rated themselves %d/5, but their actual state may be more challenging (%s/5). "+
				"They might be masking their struggles.", in.Mood, score(composite)))
		}
	}
	if sig.Sentiment.IsMixed {
		special = append(special, fmt.Sprintf("The user is experiencing mixed emotions: %s and %s.",
			sig.Sentiment.PrimaryEmotion, sig.Sentiment.SecondaryEmotion))
	}
	specialText := "None"
	if len(special) > 0 {
		specialText = strings.Join(special, "\n- ")
	}

	var b strings.Builder
	b.WriteString("You are a compassionate journaling companion helping someone process their emotions. ")
	b.WriteString("You have access to their current journal entry and past similar entries.\n\n")
	b.WriteString("## Retrieved Past Entries (Most Similar):\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\n## Current Journal Entry:\n")
	b.WriteString("\"" + in.Text + "\"")
	b.WriteString("\n\n")
	b.WriteString(analysis.String())
	b.WriteString("\n\n## Special Insights to Consider:\n- ")
	b.WriteString(specialText)
	b.WriteString("\n\n")
	b.WriteString(promptTask)
	return b.String()
}
