// Package detect implements the client-side emergency phrase detector and
// the intonation analyzer consumed by the session orchestrator.
//
// Detection is two-stage: Double Metaphone phonetic encoding filters
// candidate phrases, then Jaro-Winkler similarity on the raw strings ranks
// them. Phrases are split into two tiers — tier 1 phrases are unambiguous
// calls for help and trigger the short cancel window, tier 2 phrases are
// ambiguous and require explicit user confirmation.
package detect

import "strings"

// Result is the outcome of emergency phrase detection.
type Result struct {
	// IsEmergency reports whether the transcript contains an emergency
	// phrase.
	IsEmergency bool

	// Tier is 1 for a high-confidence hit, 2 for an ambiguous hit.
	// Zero when IsEmergency is false.
	Tier int

	// Phrase is the matched phrase, for logging.
	Phrase string
}

// PhraseDetector classifies a transcript as an emergency trigger.
type PhraseDetector interface {
	Detect(text string) Result
}

// Intonation is the outcome of question/statement analysis.
type Intonation struct {
	// IsQuestion reports whether the utterance reads as a question.
	IsQuestion bool

	// Confidence is the analyzer's confidence in the classification (0–1).
	Confidence float64
}

// IntonationAnalyzer classifies an utterance as question or statement.
type IntonationAnalyzer interface {
	Analyze(text string) Intonation
}

// questionLeads are sentence-initial tokens that strongly indicate a
// question even without a question mark (STT output rarely has one).
var questionLeads = []string{
	"who", "what", "when", "where", "why", "how",
	"is", "are", "am", "do", "does", "did",
	"can", "could", "will", "would", "should",
	"may", "might", "have", "has",
}

// LexicalAnalyzer is a text-only [IntonationAnalyzer]. It looks at the
// leading token and the trailing punctuation; a deployment with pitch
// analysis replaces it behind the same interface.
type LexicalAnalyzer struct{}

// Analyze implements [IntonationAnalyzer].
func (LexicalAnalyzer) Analyze(text string) Intonation {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Intonation{}
	}

	if strings.HasSuffix(trimmed, "?") {
		return Intonation{IsQuestion: true, Confidence: 0.95}
	}

	first := strings.ToLower(strings.Fields(trimmed)[0])
	for _, lead := range questionLeads {
		if first == lead {
			return Intonation{IsQuestion: true, Confidence: 0.7}
		}
	}

	return Intonation{IsQuestion: false, Confidence: 0.6}
}
