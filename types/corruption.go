package types

const (
	RuleRepeatedSubject      = "repeated_subject"
	RuleRedundantRelativizer = "redundant_relativizer"
	RulePronounSubjectDrop   = "pronoun_subject_drop"
)

// Corruption is a sentence with one injected grammar error.
type Corruption struct {
	Index int    `json:"index"`
	Rule  string `json:"rule"`
	Text  string `json:"text"`
}
