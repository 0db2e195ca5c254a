package detect

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// defaultPhoneticThreshold is the minimum Jaro-Winkler score for a
	// phonetically-overlapping phrase to count as a hit.
	defaultPhoneticThreshold = 0.72

	// defaultExactThreshold is the minimum Jaro-Winkler score for a hit
	// without phonetic overlap.
	defaultExactThreshold = 0.88
)

// tier1Phrases are unambiguous calls for help. A hit escalates with a short
// cancel window instead of a confirmation prompt.
var tier1Phrases = []string{
	"help me",
	"emergency",
	"call a doctor",
	"call an ambulance",
	"i need a doctor",
	"someone is hurt",
	"someone collapsed",
	"heart attack",
	"not breathing",
	"there is a fire",
}

// tier2Phrases are ambiguous: they often occur in ordinary questions
// ("where do I get help with registration"), so a hit requires explicit
// confirmation.
var tier2Phrases = []string{
	"help",
	"i am hurt",
	"i feel sick",
	"i am in pain",
	"it is urgent",
	"i am scared",
	"accident",
}

// Matcher is the default [PhraseDetector]. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	exactThreshold    float64
	tier1             []phrase
	tier2             []phrase
}

// phrase caches the lowercased text and per-token phonetic codes of one
// pattern.
type phrase struct {
	text       string
	tokens     []string
	tokenCodes []map[string]struct{}
}

// Option configures a [Matcher].
type Option func(*Matcher)

// WithPhrases replaces the built-in phrase lists. Either list may be empty.
func WithPhrases(tier1, tier2 []string) Option {
	return func(m *Matcher) {
		m.tier1 = compile(tier1)
		m.tier2 = compile(tier2)
	}
}

// WithThresholds overrides the phonetic and exact similarity thresholds.
func WithThresholds(phonetic, exact float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = phonetic
		m.exactThreshold = exact
	}
}

// NewMatcher returns a Matcher with the built-in phrase lists.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		exactThreshold:    defaultExactThreshold,
		tier1:             compile(tier1Phrases),
		tier2:             compile(tier2Phrases),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Detect implements [PhraseDetector]. Tier 1 phrases are checked first so
// that a transcript matching both tiers escalates at the higher severity.
func (m *Matcher) Detect(text string) Result {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(tokens) == 0 {
		return Result{}
	}
	codes := codesPerToken(tokens)

	if p, ok := m.match(tokens, codes, m.tier1); ok {
		return Result{IsEmergency: true, Tier: 1, Phrase: p}
	}
	if p, ok := m.match(tokens, codes, m.tier2); ok {
		return Result{IsEmergency: true, Tier: 2, Phrase: p}
	}
	return Result{}
}

// match slides a window of the phrase's length over the transcript tokens
// and scores each window against the phrase. The lenient phonetic threshold
// applies only when the window itself covers the phrase's phonetic codes;
// otherwise the window must clear the strict threshold.
func (m *Matcher) match(tokens []string, codes []map[string]struct{}, phrases []phrase) (string, bool) {
	for _, p := range phrases {
		n := len(p.tokens)
		if n > len(tokens) {
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			window := strings.Join(tokens[i:i+n], " ")
			score := matchr.JaroWinkler(window, p.text, false)
			if score >= m.exactThreshold {
				return p.text, true
			}
			if score >= m.phoneticThreshold && windowCovers(codes[i:i+n], p) {
				return p.text, true
			}
		}
	}
	return "", false
}

// windowCovers reports whether the window sounds like the phrase: every
// phrase token must share a Double Metaphone code with some window token.
// Sharing a single incidental code (a stray "is" or "a") is not enough to
// unlock the lenient threshold.
func windowCovers(window []map[string]struct{}, p phrase) bool {
	for _, pc := range p.tokenCodes {
		if len(pc) == 0 {
			continue
		}
		covered := false
		for _, wc := range window {
			if codesOverlap(pc, wc) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// compile precomputes token lists and phonetic codes for the phrase list.
func compile(raw []string) []phrase {
	out := make([]phrase, 0, len(raw))
	for _, r := range raw {
		tokens := strings.Fields(strings.ToLower(strings.TrimSpace(r)))
		if len(tokens) == 0 {
			continue
		}
		out = append(out, phrase{
			text:       strings.Join(tokens, " "),
			tokens:     tokens,
			tokenCodes: codesPerToken(tokens),
		})
	}
	return out
}

// codesPerToken returns the Double Metaphone codes of each token. Empty
// codes are excluded.
func codesPerToken(tokens []string) []map[string]struct{} {
	out := make([]map[string]struct{}, len(tokens))
	for i, t := range tokens {
		codes := make(map[string]struct{}, 2)
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
		out[i] = codes
	}
	return out
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// Ensure Matcher implements PhraseDetector at compile time.
var _ PhraseDetector = (*Matcher)(nil)
