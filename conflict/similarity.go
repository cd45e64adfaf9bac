package conflict

import (
	"regexp"
	"strings"
)

// NormalizeFunc reduces a free-text position to a canonical form used for
// grouping identical stances. Pluggable so a real NLP similarity measure
// can replace the default without changing arbitration control flow.
type NormalizeFunc func(position string) string

// DomainFunc infers the knowledge domain of a conflict from its
// description, used by priority-based arbitration to pick an authority
// ordering. Pluggable like NormalizeFunc.
type DomainFunc func(description string) string

var (
	punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// NormalizePosition lowercases, strips punctuation and collapses
// whitespace. It is the default NormalizeFunc.
func NormalizePosition(position string) string {
	s := strings.ToLower(position)
	s = punctuationRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// domainKeywords maps each known domain to its trigger vocabulary.
// First matching domain in declaration order wins.
var domainKeywords = []struct {
	domain   string
	keywords []string
}{
	{"investment", []string{"invest", "portfolio", "stock", "market", "asset"}},
	{"credit", []string{"credit", "loan", "lend", "debt"}},
	{"legal", []string{"legal", "contract", "compliance", "regulation", "liability"}},
	{"business", []string{"business", "strategy", "revenue", "pricing"}},
	{"health", []string{"health", "medical", "patient", "clinical"}},
	{"security", []string{"security", "breach", "vulnerability", "credential"}},
	{"technical", []string{"technical", "code", "deploy", "infrastructure", "architecture"}},
}

// DefaultDomain is returned when no domain vocabulary matches.
const DefaultDomain = "research"

// InferDomain keyword-matches the description against a fixed domain
// vocabulary. It is the default DomainFunc.
func InferDomain(description string) string {
	lower := strings.ToLower(description)
	for _, entry := range domainKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.domain
			}
		}
	}
	return DefaultDomain
}
