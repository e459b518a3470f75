// Package corruption injects a single grammar error into a tokenized sentence.
//
// Rules are evaluated in a fixed priority order and the first rule that
// produces output wins; later rules are not evaluated. A sentence no rule
// matches is left alone.
package corruption

import (
	"github.com/hoytnotlit/ltr-project/types"
)

// Rule inspects a sentence and its aligned features. Apply returns the
// corrupted tokens and true when the rule fires. It must not modify its input.
type Rule interface {
	Name() string
	Apply(tokens []string, features []types.TokenFeature) ([]string, bool)
}

type Match struct {
	Rule   string
	Tokens []string
}

func (match Match) Text() string {
	return types.Detokenize(match.Tokens)
}

type Engine struct {
	rules []Rule
}

// NewEngine returns the engine with the standard rule order: repeated
// subject, redundant relativizer, pronoun subject drop.
func NewEngine(ruleSet types.RuleSet) *Engine {
	return NewEngineWithRules(
		RepeatedSubject(ruleSet),
		RedundantRelativizer(ruleSet),
		PronounSubjectDrop(ruleSet),
	)
}

func NewEngineWithRules(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

func (engine *Engine) Rules() []string {
	names := make([]string, len(engine.rules))
	for i, rule := range engine.rules {
		names[i] = rule.Name()
	}
	return names
}

func (engine *Engine) Apply(tokens []string, features []types.TokenFeature) (Match, bool) {
	for _, rule := range engine.rules {
		if corrupted, ok := rule.Apply(tokens, features); ok {
			return Match{Rule: rule.Name(), Tokens: corrupted}, true
		}
	}
	return Match{}, false
}
