package pipeline

import "github.com/hoytnotlit/ltr-project/types"

type Request struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

func NewRequest(sent types.CleanSentence) Request {
	return Request{Index: sent.Index, Text: sent.Text}
}

type Result struct {
	Index      int                  `json:"index"`
	Tokens     []string             `json:"tokens"`
	Features   []types.TokenFeature `json:"features"`
	Aligned    bool                 `json:"aligned"`
	Degraded   bool                 `json:"degraded"`
	Corruption *types.Corruption    `json:"corruption,omitempty"`
}
