package corruption

import (
	"github.com/hoytnotlit/ltr-project/types"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	relativizerIdiom = "vad som"
	relativizer      = "som"
	relativizerHead  = "vad"
)

type repeatedSubject struct {
	ruleSet types.RuleSet
}

// RepeatedSubject drops the second of exactly two subjects when both are the
// same word, e.g. "Anna kom hem och Anna log" -> "Anna kom hem och log".
func RepeatedSubject(ruleSet types.RuleSet) Rule {
	return repeatedSubject{ruleSet: ruleSet}
}

func (rule repeatedSubject) Name() string {
	return types.RuleRepeatedSubject
}

func (rule repeatedSubject) Apply(tokens []string, features []types.TokenFeature) ([]string, bool) {
	if !types.Aligned(tokens, features) {
		return nil, false
	}
	subjects := subjectPositions(features, rule.ruleSet)
	if len(subjects) != 2 {
		return nil, false
	}
	if strings.ToLower(tokens[subjects[0]]) != strings.ToLower(tokens[subjects[1]]) {
		return nil, false
	}
	return removeAt(tokens, subjects[1]), true
}

type redundantRelativizer struct {
	ruleSet types.RuleSet
}

// RedundantRelativizer removes a "som" from sentences containing "vad som".
// Features are not consulted, so the rule also runs on misaligned annotations.
func RedundantRelativizer(ruleSet types.RuleSet) Rule {
	return redundantRelativizer{ruleSet: ruleSet}
}

func (rule redundantRelativizer) Name() string {
	return types.RuleRedundantRelativizer
}

func (rule redundantRelativizer) Apply(tokens []string, _ []types.TokenFeature) ([]string, bool) {
	if !strings.Contains(types.Detokenize(tokens), relativizerIdiom) {
		return nil, false
	}
	positions := relativizerPositions(tokens)
	if len(positions) == 0 {
		return nil, false
	}
	// The first literal "som" is removed even when the one following "vad"
	// sits later in the sentence, unless the rule set asks otherwise.
	target := positions[0]
	if rule.ruleSet.DeleteLocatedRelativizer {
		target = locateRelativizer(tokens, positions)
	}
	return removeAt(tokens, target), true
}

// locateRelativizer prefers the first "som" directly preceded by "vad" and
// falls back to the first "som".
func locateRelativizer(tokens []string, positions []int) int {
	for _, pos := range positions {
		if pos > 0 && strings.ToLower(tokens[pos-1]) == relativizerHead {
			return pos
		}
	}
	return positions[0]
}

func relativizerPositions(tokens []string) []int {
	var positions []int
	for i, token := range tokens {
		if token == relativizer {
			positions = append(positions, i)
		}
	}
	return positions
}

type pronounSubjectDrop struct {
	ruleSet types.RuleSet
}

// PronounSubjectDrop deletes the first pronoun subject directly followed by
// a verb: "Han springer snabbt" -> "Springer snabbt".
func PronounSubjectDrop(ruleSet types.RuleSet) Rule {
	return pronounSubjectDrop{ruleSet: ruleSet}
}

func (rule pronounSubjectDrop) Name() string {
	return types.RulePronounSubjectDrop
}

func (rule pronounSubjectDrop) Apply(tokens []string, features []types.TokenFeature) ([]string, bool) {
	if !types.Aligned(tokens, features) {
		return nil, false
	}
	for _, sub := range subjectPositions(features, rule.ruleSet) {
		if !rule.ruleSet.IsPronoun(features[sub].MSD) {
			continue
		}
		if sub+1 >= len(features) || !rule.ruleSet.IsVerb(features[sub+1].MSD) {
			continue
		}
		corrupted := removeAt(tokens, sub)
		if sub == 0 && len(corrupted) > 0 {
			corrupted[0] = capitalize(corrupted[0])
		}
		return corrupted, true
	}
	return nil, false
}

func subjectPositions(features []types.TokenFeature, ruleSet types.RuleSet) []int {
	var positions []int
	for i, feature := range features {
		if ruleSet.IsSubjectRole(feature.DepRel) {
			positions = append(positions, i)
		}
	}
	return positions
}

func removeAt(tokens []string, i int) []string {
	out := make([]string, 0, len(tokens)-1)
	out = append(out, tokens[:i]...)
	return append(out, tokens[i+1:]...)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(word string) string {
	first, size := utf8.DecodeRuneInString(word)
	if first == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(word[size:])
}
