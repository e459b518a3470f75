package corruption

import (
	"github.com/hoytnotlit/ltr-project/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func feature(deprel, msd string) types.TokenFeature {
	return types.TokenFeature{DepRel: deprel, MSD: msd}
}

func plain(n int) []types.TokenFeature {
	features := make([]types.TokenFeature, n)
	for i := range features {
		features[i] = feature("XX", "NN.UTR.SIN.IND.NOM")
	}
	return features
}

func TestRepeatedSubject(t *testing.T) {
	rule := RepeatedSubject(types.DefaultRuleSet())

	t.Run("Drops second equal subject", func(t *testing.T) {
		tokens := []string{"Anna", "kom", "hem", "och", "Anna", "log"}
		features := plain(6)
		features[0] = feature("SS", "PM.NOM")
		features[4] = feature("SS", "PM.NOM")

		got, ok := rule.Apply(tokens, features)
		require.True(t, ok)
		assert.Equal(t, "Anna kom hem och log", types.Detokenize(got))
		assert.Equal(t, []string{"Anna", "kom", "hem", "och", "Anna", "log"}, tokens, "input must stay untouched")
	})

	t.Run("Comparison ignores case", func(t *testing.T) {
		tokens := []string{"Han", "sa", "att", "han", "kom"}
		features := plain(5)
		features[0] = feature("SS", "PN.UTR.SIN.DEF.SUB")
		features[3] = feature("FS", "PN.UTR.SIN.DEF.SUB")

		got, ok := rule.Apply(tokens, features)
		require.True(t, ok)
		assert.Equal(t, []string{"Han", "sa", "att", "kom"}, got)
	})

	t.Run("Different subjects do not match", func(t *testing.T) {
		features := plain(5)
		features[0] = feature("SS", "PM.NOM")
		features[3] = feature("SS", "PM.NOM")
		_, ok := rule.Apply([]string{"Anna", "sa", "att", "Per", "kom"}, features)
		assert.False(t, ok)
	})

	t.Run("Three subjects do not match", func(t *testing.T) {
		features := plain(5)
		features[0] = feature("SS", "")
		features[2] = feature("SS", "")
		features[4] = feature("SS", "")
		_, ok := rule.Apply([]string{"vi", "och", "vi", "och", "vi"}, features)
		assert.False(t, ok)
	})

	t.Run("Labels outside the subject set are inert", func(t *testing.T) {
		features := plain(3)
		features[0] = feature("OO", "")
		features[2] = feature("OO", "")
		_, ok := rule.Apply([]string{"dem", "och", "dem"}, features)
		assert.False(t, ok)
	})

	t.Run("Misaligned features give no evidence", func(t *testing.T) {
		features := []types.TokenFeature{feature("SS", ""), feature("SS", "")}
		_, ok := rule.Apply([]string{"Anna", "och", "Anna"}, features)
		assert.False(t, ok)
	})
}

func TestRedundantRelativizer(t *testing.T) {
	rule := RedundantRelativizer(types.DefaultRuleSet())

	t.Run("Removes som after vad", func(t *testing.T) {
		tokens := types.Tokenize("Jag gör vad som helst")
		got, ok := rule.Apply(tokens, nil)
		require.True(t, ok)
		assert.Len(t, got, len(tokens)-1)
		assert.Equal(t, "Jag gör vad helst", types.Detokenize(got))
	})

	t.Run("Removes the first literal som even when a later one follows vad", func(t *testing.T) {
		// The occurrence located after "vad" is not the one deleted.
		tokens := types.Tokenize("Människor som gör vad som helst")
		got, ok := rule.Apply(tokens, plain(len(tokens)))
		require.True(t, ok)
		assert.Equal(t, "Människor gör vad som helst", types.Detokenize(got))
	})

	t.Run("Located occurrence is removed when configured", func(t *testing.T) {
		ruleSet := types.DefaultRuleSet()
		ruleSet.DeleteLocatedRelativizer = true
		tokens := types.Tokenize("Människor som gör vad som helst")
		got, ok := RedundantRelativizer(ruleSet).Apply(tokens, nil)
		require.True(t, ok)
		assert.Equal(t, "Människor som gör vad helst", types.Detokenize(got))
	})

	t.Run("Idiom is matched literally", func(t *testing.T) {
		_, ok := rule.Apply(types.Tokenize("Vad som helst"), nil)
		assert.False(t, ok)
	})

	t.Run("No standalone som", func(t *testing.T) {
		_, ok := rule.Apply(types.Tokenize("Han frågade vad somliga tyckte"), nil)
		assert.False(t, ok)
	})

	t.Run("Sentence without idiom", func(t *testing.T) {
		_, ok := rule.Apply(types.Tokenize("Boken som jag läste"), nil)
		assert.False(t, ok)
	})
}

func TestLocateRelativizer(t *testing.T) {
	tokens := types.Tokenize("som han sa som VAD som")
	assert.Equal(t, 5, locateRelativizer(tokens, relativizerPositions(tokens)))

	tokens = types.Tokenize("som han sa som")
	assert.Equal(t, 0, locateRelativizer(tokens, relativizerPositions(tokens)))
}

func TestPronounSubjectDrop(t *testing.T) {
	rule := PronounSubjectDrop(types.DefaultRuleSet())

	t.Run("Drops leading pronoun and capitalizes", func(t *testing.T) {
		tokens := []string{"Han", "springer", "snabbt"}
		features := []types.TokenFeature{
			feature("SS", "PN.UTR.SIN.DEF.SUB"),
			feature("ROOT", "VB.PRS.AKT"),
			feature("AA", "AB.POS"),
		}
		got, ok := rule.Apply(tokens, features)
		require.True(t, ok)
		assert.Equal(t, "Springer snabbt", types.Detokenize(got))
	})

	t.Run("Drops inner pronoun without capitalizing", func(t *testing.T) {
		tokens := []string{"Igår", "sa", "hon", "kommer", "nog"}
		features := []types.TokenFeature{
			feature("TA", "AB"),
			feature("ROOT", "VB.PRT.AKT"),
			feature("SS", "PN.UTR.SIN.DEF.SUB"),
			feature("OO", "VB.PRS.AKT"),
			feature("AA", "AB"),
		}
		got, ok := rule.Apply(tokens, features)
		require.True(t, ok)
		assert.Equal(t, "Igår sa kommer nog", types.Detokenize(got))
	})

	t.Run("Stops after first qualifying subject", func(t *testing.T) {
		tokens := []string{"Jag", "vet", "att", "du", "kan"}
		features := []types.TokenFeature{
			feature("SS", "PN.UTR.SIN.DEF.SUB"),
			feature("ROOT", "VB.PRS.AKT"),
			feature("UK", "SN"),
			feature("SS", "PN.UTR.SIN.DEF.SUB"),
			feature("OO", "VB.PRS.AKT"),
		}
		got, ok := rule.Apply(tokens, features)
		require.True(t, ok)
		assert.Equal(t, "Vet att du kan", types.Detokenize(got))
	})

	t.Run("Subject not followed by verb", func(t *testing.T) {
		features := []types.TokenFeature{
			feature("SS", "PN.UTR.SIN.DEF.SUB"),
			feature("AA", "AB"),
		}
		_, ok := rule.Apply([]string{"Han", "också"}, features)
		assert.False(t, ok)
	})

	t.Run("Non-pronoun subject", func(t *testing.T) {
		features := []types.TokenFeature{
			feature("SS", "PM.NOM"),
			feature("ROOT", "VB.PRS.AKT"),
		}
		_, ok := rule.Apply([]string{"Anna", "springer"}, features)
		assert.False(t, ok)
	})

	t.Run("Last token subject", func(t *testing.T) {
		features := []types.TokenFeature{
			feature("ROOT", "VB.PRS.AKT"),
			feature("SS", "PN.UTR.SIN.DEF.SUB"),
		}
		_, ok := rule.Apply([]string{"Springer", "han"}, features)
		assert.False(t, ok)
	})
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Springer", capitalize("springer"))
	assert.Equal(t, "Åker", capitalize("åKER"))
	assert.Equal(t, "", capitalize(""))
}
