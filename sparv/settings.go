package sparv

import (
	"encoding/json"
	"github.com/hoytnotlit/ltr-project/utils"
)

type PositionalAttributes struct {
	DependencyAttributes []string `json:"dependency_attributes"`
	LexicalAttributes    []string `json:"lexical_attributes"`
}

type TextAttributes struct {
	ReadabilityMetrics []string `json:"readability_metrics"`
}

// Settings is the analysis configuration sent along with every sentence.
type Settings struct {
	Corpus               string               `json:"corpus"`
	Lang                 string               `json:"lang"`
	TextMode             string               `json:"textmode"`
	PositionalAttributes PositionalAttributes `json:"positional_attributes"`
	TextAttributes       TextAttributes       `json:"text_attributes"`
}

func DefaultSettings(corpus, lang string) Settings {
	return Settings{
		Corpus:   corpus,
		Lang:     lang,
		TextMode: "plain",
		PositionalAttributes: PositionalAttributes{
			DependencyAttributes: []string{"ref", "dephead", "deprel"},
			LexicalAttributes:    []string{"pos", "msd", "lemma"},
		},
		TextAttributes: TextAttributes{
			ReadabilityMetrics: []string{"lix", "ovix", "nk"},
		},
	}
}

func (settings Settings) Encode() (string, error) {
	b, err := json.Marshal(settings)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Hash identifies the configuration; annotations produced under different
// settings must not be mixed up.
func (settings Settings) Hash() uint64 {
	encoded, err := settings.Encode()
	if err != nil {
		panic(err)
	}
	return utils.HashString(encoded)
}
