// Package features turns a Sparv annotation document into per-token features.
package features

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"github.com/hoytnotlit/ltr-project/types"
	"strings"
)

var ErrMalformedAnnotation = errors.New("malformed annotation")

type annotationDocument struct {
	Corpora []struct {
		Texts []struct {
			Paragraphs []struct {
				Sentences []struct {
					Tokens []annotatedToken `xml:",any"`
				} `xml:"sentence"`
			} `xml:"paragraph"`
		} `xml:"text"`
	} `xml:"corpus"`
}

type annotatedToken struct {
	XMLName xml.Name
	Word    string `xml:",chardata"`
	DepRel  string `xml:"deprel,attr"`
	MSD     string `xml:"msd,attr"`
	POS     string `xml:"pos,attr"`
	Lemma   string `xml:"lemma,attr"`
	Ref     string `xml:"ref,attr"`
	DepHead string `xml:"dephead,attr"`
}

// Extract returns one feature per annotated token, in the order the service
// emitted them, across every sentence the service split the text into.
// The result is not checked against the token count of text.
func Extract(raw []byte, text string) ([]types.TokenFeature, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty document for %q", ErrMalformedAnnotation, text)
	}
	var doc annotationDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v (sentence %q)", ErrMalformedAnnotation, err, text)
	}

	var result []types.TokenFeature
	for _, corpus := range doc.Corpora {
		for _, txt := range corpus.Texts {
			for _, paragraph := range txt.Paragraphs {
				for _, sent := range paragraph.Sentences {
					for _, token := range sent.Tokens {
						result = append(result, token.feature())
					}
				}
			}
		}
	}
	return result, nil
}

func (token annotatedToken) feature() types.TokenFeature {
	return types.TokenFeature{
		Word:    strings.TrimSpace(token.Word),
		DepRel:  token.DepRel,
		MSD:     token.MSD,
		POS:     token.POS,
		Lemma:   token.Lemma,
		Ref:     token.Ref,
		DepHead: token.DepHead,
	}
}
