// Package corpus loads the clean sentences a run corrupts.
package corpus

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/hoytnotlit/ltr-project/types"
	"github.com/hoytnotlit/ltr-project/utils"
	"io"
	"os"
	"strings"
)

const (
	FormatXML   = "xml"
	FormatPlain = "plain"

	s3Scheme = "s3://"
)

// Downloader fetches an object by key, see s3client.Client.
type Downloader interface {
	Download(key string) ([]byte, error)
}

type xmlCorpus struct {
	Sentences []struct {
		Words []struct {
			Text string `xml:",chardata"`
		} `xml:",any"`
	} `xml:",any"`
}

// IsRemote reports whether source names an object storage key.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, s3Scheme)
}

// Load reads the corpus at source, a local path or an "s3://key" handled by
// downloader, and parses it in the given format.
func Load(source string, format string, downloader Downloader) ([]types.CleanSentence, error) {
	corpusLogger := logger.NewLogger("Corpus loader").With().Str("source", source).Logger()

	var data []byte
	var err error
	if IsRemote(source) {
		if downloader == nil {
			return nil, fmt.Errorf("no object storage configured for %s", source)
		}
		data, err = downloader.Download(strings.TrimPrefix(source, s3Scheme))
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		corpusLogger.Err(err).Msg("Failed to read corpus")
		return nil, err
	}

	texts, err := Parse(bytes.NewReader(data), format)
	if err != nil {
		corpusLogger.Err(err).Str("format", format).Msg("Failed to parse corpus")
		return nil, err
	}
	corpusLogger.Info().Int("sentences", len(texts)).Msg("Loaded corpus")
	return types.NewCorpus(texts), nil
}

func Parse(r io.Reader, format string) ([]string, error) {
	switch format {
	case FormatXML:
		return ParseXML(r)
	case FormatPlain:
		return utils.ScanList(r)
	}
	return nil, fmt.Errorf("unknown corpus format %q", format)
}

// ParseXML reads a document whose root children are sentences and whose
// sentence children are words. Sentence text is the words joined by single
// spaces; sentences without words are kept so indexes stay stable.
func ParseXML(r io.Reader) ([]string, error) {
	var doc xmlCorpus
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}
	texts := make([]string, 0, len(doc.Sentences))
	for _, sent := range doc.Sentences {
		words := make([]string, 0, len(sent.Words))
		for _, word := range sent.Words {
			if w := strings.TrimSpace(word.Text); w != "" {
				words = append(words, w)
			}
		}
		texts = append(texts, types.Detokenize(words))
	}
	return texts, nil
}
