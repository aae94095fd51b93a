package markdown

import (
	"regexp"
	"strings"

	"github.com/conneroisu/guidebook/internal/guide"
)

// discouragingCue matches prose that introduces a counter-example.
var discouragingCue = regexp.MustCompile(
	`(?i)\b(avoid|don't|don’t|do not|instead of|bad|discouraged|not recommended)\b`,
)

// recommendingCue matches prose that introduces an exemplar to follow.
var recommendingCue = regexp.MustCompile(`(?i)\b(recommended|preferred|prefer|good|correct)\b`)

// ClassifyPolarity decides whether an exemplar is recommended or discouraged.
// A marker word after the language in the fence info string wins
// ("js avoid", "html good"). Otherwise prose is consulted nearest first,
// usually the paragraph right before the block and then the subheading the
// block sits under; the first one carrying a cue decides. Without any signal
// the exemplar is recommended.
func ClassifyPolarity(info string, prose ...string) guide.Polarity {
	fields := strings.Fields(strings.ToLower(info))
	if len(fields) > 1 {
		for _, marker := range fields[1:] {
			switch strings.Trim(marker, "{}.=") {
			case "avoid", "bad", "discouraged", "dont", "wrong":
				return guide.PolarityDiscouraged
			case "good", "recommended", "do", "right":
				return guide.PolarityRecommended
			}
		}
	}

	for _, text := range prose {
		switch {
		case discouragingCue.MatchString(text):
			return guide.PolarityDiscouraged
		case recommendingCue.MatchString(text):
			return guide.PolarityRecommended
		}
	}
	return guide.PolarityRecommended
}

// SplitSubheading reports whether a body chunk is a level-3 or deeper
// heading as the loader keeps it ("### Avoid") and returns its text.
func SplitSubheading(chunk string) (string, bool) {
	level := 0
	for level < len(chunk) && chunk[level] == '#' {
		level++
	}
	if level < 3 || level > 6 || level == len(chunk) || chunk[level] != ' ' {
		return "", false
	}
	return strings.TrimSpace(chunk[level:]), true
}

// avoidDirective matches <!-- avoid: pattern | pattern -->.
var avoidDirective = regexp.MustCompile(`(?s)<!--\s*avoid:\s*(.*?)\s*-->`)

// parseAvoidDirective extracts the patterns declared by an avoid directive.
// Patterns are separated by '|' so they may themselves contain commas.
func parseAvoidDirective(raw string) []string {
	var patterns []string
	for _, m := range avoidDirective.FindAllStringSubmatch(raw, -1) {
		for _, p := range strings.Split(m[1], "|") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
	}
	return patterns
}
