package types

// TokenFeature holds the annotation of a single token, in sentence order.
type TokenFeature struct {
	Word    string `json:"word"`
	DepRel  string `json:"deprel"`
	MSD     string `json:"msd"`
	POS     string `json:"pos,omitempty"`
	Lemma   string `json:"lemma,omitempty"`
	Ref     string `json:"ref,omitempty"`
	DepHead string `json:"dephead,omitempty"`
}

// Aligned reports whether features can be addressed by token position.
func Aligned(tokens []string, features []TokenFeature) bool {
	return len(tokens) == len(features)
}
