// Package rewrite converts VimWiki text into Neorg text with an ordered list of
// regular-expression rules and normalizes wikilink targets into file names.
package rewrite

import "strings"

// Rewriter applies a fixed, ordered rule list to whole documents. It holds no
// state besides the rules and is safe for concurrent use.
type Rewriter struct {
	rules []Rule
}

// New returns a Rewriter loaded with DefaultRules.
func New() *Rewriter {
	return &Rewriter{rules: DefaultRules()}
}

// Rules returns a copy of the rules in application order.
func (rw *Rewriter) Rules() []Rule {
	out := make([]Rule, len(rw.rules))
	copy(out, rw.rules)
	return out
}

// Rewrite folds every rule over content; each rule sees the previous rule's
// output. Text no rule matches passes through unchanged.
func (rw *Rewriter) Rewrite(content string) string {
	for _, r := range rw.rules {
		content = r.Apply(content)
	}
	return content
}

var defaultRewriter = New()

// Rewrite converts content with the default rule list.
func Rewrite(content string) string {
	return defaultRewriter.Rewrite(content)
}

// LinkRef is one [[...]] reference found in VimWiki source text.
type LinkRef struct {
	// Raw is the text between the brackets, pipe and label included.
	Raw string `json:"raw"`
	// Target is Raw up to the first pipe, Label what follows it.
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
	// File is Normalize(Raw), the name the converted link displays.
	File string `json:"file"`
}

// Links returns the wikilinks of a VimWiki document in document order,
// deduplicated by raw text. Empty references are skipped.
func Links(content string) []LinkRef {
	matches := linkRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []LinkRef
	for _, m := range matches {
		raw := m[1]
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}

		ref := LinkRef{Raw: raw, Target: raw, File: Normalize(raw)}
		if i := strings.Index(raw, "|"); i >= 0 {
			ref.Target = raw[:i]
			ref.Label = raw[i+1:]
		}
		out = append(out, ref)
	}
	return out
}
