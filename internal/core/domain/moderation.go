package domain

import "strings"

// NGRule blocks queries containing Pattern (case-insensitive substring).
// Reply, when set, is spoken instead of DefaultRefusalMessage.
type NGRule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Reply   string `yaml:"reply,omitempty" json:"reply,omitempty"`
}

// NGTable is the moderation rule set. Allow entries are longer compounds that
// defeat a pattern hit inside them, so that 核家族 does not trip a rule on 核.
type NGTable struct {
	Allow []string `yaml:"allow" json:"allow"`
	Rules []NGRule `yaml:"rules" json:"rules"`
}

// Match reports whether text trips a rule and, if so, the reply to use.
// A rule hit is discarded when the input contains an allow-list compound that
// itself contains the rule's pattern.
func (t NGTable) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, rule := range t.Rules {
		pattern := strings.ToLower(rule.Pattern)
		if pattern == "" || !strings.Contains(lower, pattern) {
			continue
		}
		if t.allowed(lower, pattern) {
			continue
		}
		if strings.TrimSpace(rule.Reply) == "" {
			return DefaultRefusalMessage, true
		}
		return rule.Reply, true
	}
	return "", false
}

func (t NGTable) allowed(lowerText, pattern string) bool {
	for _, compound := range t.Allow {
		compound = strings.ToLower(compound)
		if compound == "" {
			continue
		}
		if strings.Contains(compound, pattern) && strings.Contains(lowerText, compound) {
			return true
		}
	}
	return false
}
