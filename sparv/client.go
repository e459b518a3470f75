// Package sparv talks to the Sparv annotation web service.
package sparv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrServiceFailure is returned when the service answered but did not
// produce an annotation.
var ErrServiceFailure = errors.New("annotation service failure")

const maxResponseBytes = 8 << 20

// Annotator returns the raw annotation document for a sentence. Every error
// is considered transient by the caller.
type Annotator interface {
	Annotate(ctx context.Context, text string) ([]byte, error)
}

type Config struct {
	URL            string `envconfig:"CORRUPT_SPARV_URL" default:"https://ws.spraakbanken.gu.se/ws/sparv/v2/"`
	TimeoutSeconds int    `envconfig:"CORRUPT_SPARV_TIMEOUT_SECONDS" default:"60"`
	Corpus         string `envconfig:"CORRUPT_SPARV_CORPUS" default:"Korpusnamn"`
	Lang           string `envconfig:"CORRUPT_SPARV_LANG" default:"sv"`
}

type Client struct {
	httpClient  *http.Client
	endpoint    string
	settings    Settings
	encoded     string
	sparvLogger zerolog.Logger
}

func NewClient() (*Client, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, err
	}
	return NewClientWithConfig(config)
}

func NewClientWithConfig(config Config) (*Client, error) {
	sparvLogger := logger.NewLogger("Sparv client")
	if _, err := url.ParseRequestURI(config.URL); err != nil {
		sparvLogger.Err(err).Str("url", config.URL).Msg("Invalid annotation service URL")
		return nil, fmt.Errorf("invalid sparv url %q: %w", config.URL, err)
	}
	settings := DefaultSettings(config.Corpus, config.Lang)
	encoded, err := settings.Encode()
	if err != nil {
		return nil, err
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second},
		endpoint:   config.URL,
		settings:   settings,
		encoded:    encoded,
		sparvLogger: sparvLogger.With().
			Str("url", config.URL).
			Logger(),
	}, nil
}

func (client *Client) Settings() Settings {
	return client.settings
}

func (client *Client) Annotate(ctx context.Context, text string) ([]byte, error) {
	query := url.Values{}
	query.Set("text", text)
	query.Set("settings", client.encoded)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("sparv request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read sparv response: %w", err)
	}
	client.sparvLogger.Debug().
		Int("status", response.StatusCode).
		Int("bytes", len(body)).
		Dur("took", time.Since(started)).
		Msg("Annotation received")

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrServiceFailure, response.StatusCode)
	}
	if bytes.Contains(body, []byte("<error")) {
		return nil, fmt.Errorf("%w: %s", ErrServiceFailure, bytes.TrimSpace(body))
	}
	return body, nil
}
