package types

import (
	"errors"
	"fmt"
	"github.com/hoytnotlit/ltr-project/utils"
	"gopkg.in/yaml.v3"
	"os"
	"strings"
)

// Subject labels follow the Swedish Treebank dependency scheme.
var (
	DefaultSubjectRoles   = []string{"SS", "SP", "ES", "FS"}
	DefaultPronounMarkers = []string{"PN"}
	DefaultVerbMarkers    = []string{"VB"}
)

// RuleSet holds the closed label sets the corruption rules consult.
// Any label not listed here is inert.
type RuleSet struct {
	SubjectRoles   []string `yaml:"subject_roles" json:"subject_roles"`
	PronounMarkers []string `yaml:"pronoun_markers" json:"pronoun_markers"`
	VerbMarkers    []string `yaml:"verb_markers" json:"verb_markers"`
	// DeleteLocatedRelativizer removes the "som" found after "vad" instead of
	// the first "som" of the sentence.
	DeleteLocatedRelativizer bool `yaml:"delete_located_relativizer" json:"delete_located_relativizer"`
}

func DefaultRuleSet() RuleSet {
	return RuleSet{
		SubjectRoles:   append([]string(nil), DefaultSubjectRoles...),
		PronounMarkers: append([]string(nil), DefaultPronounMarkers...),
		VerbMarkers:    append([]string(nil), DefaultVerbMarkers...),
	}
}

// LoadRuleSet reads a YAML rule set. An empty path yields the defaults, and
// lists left empty in the file are filled with their defaults.
func LoadRuleSet(filePath string) (RuleSet, error) {
	if filePath == "" {
		return DefaultRuleSet(), nil
	}
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rule set %s: %w", filePath, err)
	}
	return ParseRuleSet(buf)
}

func ParseRuleSet(buf []byte) (RuleSet, error) {
	var rules RuleSet
	if err := yaml.Unmarshal(buf, &rules); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rule set: %w", err)
	}
	if len(rules.SubjectRoles) == 0 {
		rules.SubjectRoles = append([]string(nil), DefaultSubjectRoles...)
	}
	if len(rules.PronounMarkers) == 0 {
		rules.PronounMarkers = append([]string(nil), DefaultPronounMarkers...)
	}
	if len(rules.VerbMarkers) == 0 {
		rules.VerbMarkers = append([]string(nil), DefaultVerbMarkers...)
	}
	if err := rules.validate(); err != nil {
		return RuleSet{}, err
	}
	return rules, nil
}

func (rules RuleSet) validate() error {
	for _, set := range [][]string{rules.SubjectRoles, rules.PronounMarkers, rules.VerbMarkers} {
		for _, label := range set {
			if strings.TrimSpace(label) == "" {
				return errors.New("rule set contains an empty label")
			}
		}
	}
	return nil
}

func (rules RuleSet) IsSubjectRole(deprel string) bool {
	for _, role := range rules.SubjectRoles {
		if deprel == role {
			return true
		}
	}
	return false
}

func (rules RuleSet) IsPronoun(msd string) bool {
	return containsAny(msd, rules.PronounMarkers)
}

func (rules RuleSet) IsVerb(msd string) bool {
	return containsAny(msd, rules.VerbMarkers)
}

func (rules RuleSet) GetHashCode() uint64 {
	var sb strings.Builder
	for _, set := range [][]string{rules.SubjectRoles, rules.PronounMarkers, rules.VerbMarkers} {
		sb.WriteString(strings.Join(set, ","))
		sb.WriteByte('|')
	}
	if rules.DeleteLocatedRelativizer {
		sb.WriteString("located")
	}
	return utils.HashString(sb.String())
}

func containsAny(tag string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(tag, marker) {
			return true
		}
	}
	return false
}
