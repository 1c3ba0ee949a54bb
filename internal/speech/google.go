package speech

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/maauso/mindscribe/internal/audio"
)

const (
	// DefaultBaseURL is the Google Web Speech API v2 endpoint.
	DefaultBaseURL = "https://www.google.com/speech-api/v2"
	// DefaultLanguage is the recognition language used when none is set.
	DefaultLanguage = "en-US"
	// DefaultTimeout bounds a single recognition request.
	DefaultTimeout = 60 * time.Second
)

// GoogleClient is a Recognizer backed by the Google Web Speech API.
type GoogleClient struct {
	apiKey     string
	language   string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// ClientOption is a function that configures a GoogleClient.
type ClientOption func(*GoogleClient)

// WithAPIKey sets the API key sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *GoogleClient) {
		c.apiKey = key
	}
}

// WithLanguage sets the recognition language as a BCP-47 tag such as "en-US".
func WithLanguage(lang string) ClientOption {
	return func(c *GoogleClient) {
		c.language = lang
	}
}

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(u string) ClientOption {
	return func(c *GoogleClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client. It takes precedence over WithTimeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *GoogleClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *GoogleClient) {
		c.timeout = d
	}
}

// NewGoogleClient creates a new GoogleClient.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable SPEECH_API_KEY.
func NewGoogleClient(opts ...ClientOption) (*GoogleClient, error) {
	c := &GoogleClient{
		language: DefaultLanguage,
		baseURL:  DefaultBaseURL,
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("SPEECH_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if c.language == "" {
		c.language = DefaultLanguage
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	return c, nil
}

// Recognize implements Recognizer.Recognize.
//
// The recording is sent as raw big-endian 16-bit PCM. Multi-channel input is
// downmixed first since the service only accepts mono audio.
func (c *GoogleClient) Recognize(ctx context.Context, wavPath string) (string, error) {
	w, err := audio.ReadWAVFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("speech: read %s: %w", wavPath, err)
	}
	w = w.Mono()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.recognizeURL(), bytes.NewReader(w.PCM(binary.BigEndian)))
	if err != nil {
		return "", fmt.Errorf("speech: create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/l16; rate="+strconv.Itoa(w.SampleRate())+";")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("speech: request cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrServiceUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	text, err := parseResponse(body)
	if err != nil {
		return "", err
	}
	return norm.NFC.String(text), nil
}

func (c *GoogleClient) recognizeURL() string {
	q := url.Values{}
	q.Set("client", "chromium")
	q.Set("lang", c.language)
	q.Set("key", c.apiKey)
	q.Set("pFilter", "0")
	return c.baseURL + "/recognize?" + q.Encode()
}

// recognizeResponse is one line of the newline-delimited response stream.
type recognizeResponse struct {
	Result []struct {
		Alternative []alternative `json:"alternative"`
		Final       bool          `json:"final"`
	} `json:"result"`
	ResultIndex int `json:"result_index"`
}

type alternative struct {
	Transcript *string  `json:"transcript"`
	Confidence *float64 `json:"confidence"`
}

// parseResponse picks the transcript of the best alternative from the first
// line carrying a non-empty result.
func parseResponse(body []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), len(body)+1)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r recognizeResponse
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return "", fmt.Errorf("%w: decode response: %w", ErrServiceUnavailable, err)
		}
		if len(r.Result) == 0 {
			continue
		}

		best, ok := bestAlternative(r.Result[0].Alternative)
		if !ok || best.Transcript == nil || strings.TrimSpace(*best.Transcript) == "" {
			return "", ErrUnclearAudio
		}
		return *best.Transcript, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrServiceUnavailable, err)
	}

	return "", ErrUnclearAudio
}

// bestAlternative returns the alternative with the highest confidence, or the
// first one when none carries a confidence.
func bestAlternative(alts []alternative) (alternative, bool) {
	if len(alts) == 0 {
		return alternative{}, false
	}

	best := -1
	for i, a := range alts {
		if a.Confidence == nil {
			continue
		}
		if best < 0 || *a.Confidence > *alts[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return alts[0], true
	}
	return alts[best], true
}

// Verify interface implementation at compile time.
var _ Recognizer = (*GoogleClient)(nil)
