package analysis

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon holds the keyword tables behind every heuristic extractor. The
// tables are data so they can be tuned without touching control flow.
type Lexicon struct {
	Emotions          []EmotionPhrases `yaml:"emotions"`
	PositiveEmotions  []string         `yaml:"positive_emotions"`
	DrainingEmotions  []string         `yaml:"draining_emotions"`
	UpliftingEmotions []string         `yaml:"uplifting_emotions"`

	ReflectivePhrases []string `yaml:"reflective_phrases"`
	VentingPhrases    []string `yaml:"venting_phrases"`

	Themes             []ThemeKeywords `yaml:"themes"`
	FallbackTheme      string          `yaml:"fallback_theme"`
	CooccurrenceThemes []ThemeKeywords `yaml:"cooccurrence_themes"`

	TitleKeywords     []TitleKeyword `yaml:"title_keywords"`
	TitleExcludeWords []string       `yaml:"title_exclude_words"`

	PhraseStoplist       []string `yaml:"phrase_stoplist"`
	ActionPatterns       []string `yaml:"action_patterns"`
	QuoteActionKeywords  []string `yaml:"quote_action_keywords"`
	QuoteEmotionKeywords []string `yaml:"quote_emotion_keywords"`

	actionRes   []*regexp.Regexp
	excludeSet  map[string]struct{}
	stoplistSet map[string]struct{}
}

// EmotionPhrases maps an emotion to the reference phrases that define it.
type EmotionPhrases struct {
	Name    string   `yaml:"name"`
	Phrases []string `yaml:"phrases"`
}

// ThemeKeywords maps a theme to its trigger keywords.
type ThemeKeywords struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// TitleKeyword maps a keyword found in an entry to a title subject.
type TitleKeyword struct {
	Keyword string `yaml:"keyword"`
	Label   string `yaml:"label"`
}

// DefaultLexicon returns a freshly parsed copy of the built-in tables.
func DefaultLexicon() *Lexicon {
	lex, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("analysis: built-in lexicon is invalid: %v", err))
	}
	return lex
}

// LoadLexicon reads a lexicon file. Sections missing from the file keep the
// built-in defaults.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	lex := DefaultLexicon()
	if err := yaml.Unmarshal(data, lex); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	if err := lex.compile(); err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

// ParseLexicon parses a complete lexicon document.
func ParseLexicon(data []byte) (*Lexicon, error) {
	lex := &Lexicon{}
	if err := yaml.Unmarshal(data, lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if err := lex.compile(); err != nil {
		return nil, err
	}
	return lex, nil
}

func (l *Lexicon) compile() error {
	if len(l.Emotions) < 2 {
		return errors.New("lexicon needs at least two emotions")
	}
	for _, e := range l.Emotions {
		if e.Name == "" || len(e.Phrases) == 0 {
			return fmt.Errorf("emotion %q has no reference phrases", e.Name)
		}
	}
	if l.FallbackTheme == "" {
		l.FallbackTheme = "personal_reflection"
	}

	l.actionRes = make([]*regexp.Regexp, 0, len(l.ActionPatterns))
	for _, pattern := range l.ActionPatterns {
		re, err := regexp.Compile(unicodeWordClass(pattern))
		if err != nil {
			return fmt.Errorf("action pattern %q: %w", pattern, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("action pattern %q needs a capture group", pattern)
		}
		l.actionRes = append(l.actionRes, re)
	}

	l.excludeSet = toSet(l.TitleExcludeWords)
	l.stoplistSet = toSet(l.PhraseStoplist)
	return nil
}

// unicodeWordClass widens \w to letters and digits in any script so accented
// journal text matches the same way plain ASCII does.
func unicodeWordClass(pattern string) string {
	pattern = strings.ReplaceAll(pattern, `[\w`, `[\p{L}\p{N}_`)
	return strings.ReplaceAll(pattern, `\w`, `[\p{L}\p{N}_]`)
}

// Phrases returns every emotion reference phrase in table order, with the
// offset of each emotion's first phrase.
func (l *Lexicon) Phrases() ([]string, []int) {
	var phrases []string
	offsets := make([]int, len(l.Emotions))
	for i, e := range l.Emotions {
		offsets[i] = len(phrases)
		phrases = append(phrases, e.Phrases...)
	}
	return phrases, offsets
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

func containsAnySubstring(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
