// Package twitter posts text + image through the X (Twitter) API using
// OAuth 1.0a user context: media upload on v1.1, tweet creation on v2.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/tidwall/gjson"

	"termbot/internal/publish"
	"termbot/internal/task/engine"
)

const (
	DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	DefaultTweetURL  = "https://api.twitter.com/2/tweets"
)

var ErrMissingCredentials = errors.New("twitter credentials incomplete")

// Credentials are the five values the platform issues for a bot account.
type Credentials struct {
	APIKey            string
	APIKeySecret      string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
}

// Missing returns the names of empty credential fields.
func (c Credentials) Missing() []string {
	var out []string
	for name, v := range map[string]string{
		"API_KEY":             c.APIKey,
		"API_KEY_SECRET":      c.APIKeySecret,
		"ACCESS_TOKEN":        c.AccessToken,
		"ACCESS_TOKEN_SECRET": c.AccessTokenSecret,
		"BEARER_TOKEN":        c.BearerToken,
	} {
		if strings.TrimSpace(v) == "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// APIError is a non-2xx answer from the platform.
type APIError struct {
	Op     string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("twitter %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("twitter %s: status %d: %s", e.Op, e.Status, e.Detail)
}

type Options struct {
	UploadURL string
	TweetURL  string
	Timeout   time.Duration
	// HTTPClient overrides the signing transport's base client (tests).
	HTTPClient *http.Client
}

// Session is an authenticated user-context client. It implements publish.Session.
type Session struct {
	client    *http.Client
	uploadURL string
	tweetURL  string
}

var _ publish.Session = (*Session)(nil)

// Authenticate builds the signed client. It does not call the network.
// The bearer token is required alongside the user-context keys but tweet
// creation and media upload are signed with OAuth 1.0a only.
func Authenticate(creds Credentials, opt Options) (*Session, error) {
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 30 * time.Second
	}
	base := opt.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: opt.Timeout}
	}
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	cfg := oauth1.NewConfig(creds.APIKey, creds.APIKeySecret)
	client := cfg.Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret))
	client.Timeout = opt.Timeout

	s := &Session{client: client, uploadURL: opt.UploadURL, tweetURL: opt.TweetURL}
	if s.uploadURL == "" {
		s.uploadURL = DefaultUploadURL
	}
	if s.tweetURL == "" {
		s.tweetURL = DefaultTweetURL
	}
	return s, nil
}

func (s *Session) Upload(ctx context.Context, image []byte) (publish.Media, error) {
	if len(image) == 0 {
		return publish.Media{}, engine.NoRetry(errors.New("twitter upload: empty image"))
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("media", "progress_image.png")
	if err != nil {
		return publish.Media{}, err
	}
	if _, err := part.Write(image); err != nil {
		return publish.Media{}, err
	}
	if err := mw.Close(); err != nil {
		return publish.Media{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, &body)
	if err != nil {
		return publish.Media{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	b, err := s.do(req, "media upload")
	if err != nil {
		return publish.Media{}, err
	}
	id := gjson.GetBytes(b, "media_id_string").String()
	if id == "" {
		return publish.Media{}, fmt.Errorf("twitter media upload: response has no media_id_string")
	}
	return publish.Media{ID: id}, nil
}

func (s *Session) Post(ctx context.Context, text string, m publish.Media) error {
	payload := map[string]any{"text": text}
	if m.ID != "" {
		payload["media"] = map[string]any{"media_ids": []string{m.ID}}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tweetURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	b, err := s.do(req, "create tweet")
	if err != nil {
		return err
	}
	if gjson.GetBytes(b, "data.id").String() == "" {
		return fmt.Errorf("twitter create tweet: response has no data.id")
	}
	return nil
}

func (s *Session) do(req *http.Request, op string) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter %s: %w", op, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("twitter %s: read: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, Status: resp.StatusCode, Detail: errorDetail(b)}
		if permanent(resp.StatusCode) {
			return nil, engine.NoRetry(apiErr)
		}
		return nil, apiErr
	}
	return b, nil
}

// permanent reports statuses that a retry cannot fix (bad request, auth, duplicate post).
func permanent(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	default:
		return false
	}
}

// errorDetail picks the most useful message from v1.1 or v2 error bodies.
func errorDetail(b []byte) string {
	for _, path := range []string{"detail", "errors.0.message", "errors.0.detail", "error", "title"} {
		if v := gjson.GetBytes(b, path).String(); v != "" {
			return v
		}
	}
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
