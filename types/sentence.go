package types

import "strings"

// CleanSentence is one grammatically correct sentence of the corpus.
// Index is its zero-based position and stays stable across runs.
type CleanSentence struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

func (sent CleanSentence) Tokens() []string {
	return Tokenize(sent.Text)
}

// Tokenize splits text on runs of whitespace, the same way the annotation
// features are expected to line up with the sentence.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

func Detokenize(tokens []string) string {
	return strings.Join(tokens, " ")
}

func NewCorpus(texts []string) []CleanSentence {
	corpus := make([]CleanSentence, len(texts))
	for i, text := range texts {
		corpus[i] = CleanSentence{Index: i, Text: text}
	}
	return corpus
}
