package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/captcha"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/fingerprint"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/submission"
)

// Client talks to the review board over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/healthz", "", nil, nil)
}

// StartSession opens a session for a virtual device.
func (c *Client) StartSession(ctx context.Context, device int) (string, error) {
	body := map[string]any{
		"attributes": fingerprint.Attributes{
			UserAgent:    "loadgen/" + strconv.Itoa(device),
			Language:     "en-US",
			ScreenWidth:  1920,
			ScreenHeight: 1080,
		},
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, "start session", http.MethodPost, "/sessions", "", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Captcha issues a challenge and returns its id and answer.
func (c *Client) Captcha(ctx context.Context) (string, string, error) {
	var ch captcha.Challenge
	if err := c.do(ctx, "issue captcha", http.MethodPost, "/captcha", "", nil, &ch); err != nil {
		return "", "", err
	}
	return ch.ID, strconv.Itoa(ch.A + ch.B), nil
}

// Submit posts one review against profileID, or creates newProfile with it.
func (c *Client) Submit(ctx context.Context, token string, r Review, profileID string, newProfile *model.ProfileDraft) (submission.Confirmation, error) {
	id, answer, err := c.Captcha(ctx)
	if err != nil {
		return submission.Confirmation{}, err
	}
	body := map[string]any{
		"profile_id":     profileID,
		"new_profile":    newProfile,
		"stage":          r.Stage,
		"tags":           r.Tags,
		"headline":       r.Headline,
		"rating":         r.Rating,
		"agreed":         true,
		"captcha_id":     id,
		"captcha_answer": answer,
	}
	var conf submission.Confirmation
	err = c.do(ctx, "submit review", http.MethodPost, "/reviews", token, body, &conf)
	return conf, err
}

// Profiles lists every profile.
func (c *Client) Profiles(ctx context.Context) ([]model.Profile, error) {
	var resp struct {
		Profiles []model.Profile `json:"profiles"`
	}
	if err := c.do(ctx, "list profiles", http.MethodGet, "/profiles", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// Reviews lists one profile's reviews.
func (c *Client) Reviews(ctx context.Context, token, profileID string) ([]model.Review, error) {
	var resp struct {
		Reviews []model.Review `json:"reviews"`
	}
	if err := c.do(ctx, "list reviews", http.MethodGet, "/profiles/"+profileID+"/reviews", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reviews, nil
}
