// Package api is a typed client for the points backend REST endpoints.
// Read endpoints go through a per-resource TTL cache with in-flight
// deduplication; writes invalidate the caches they affect.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/genlayer-foundation/points/sdk/points/requestcache"
)

// Client calls the backend API. Construct with NewClient; the zero value
// is not usable.
type Client struct {
	baseURL string
	http    *http.Client

	typesCache         *requestcache.Cache
	contributionsCache *requestcache.Cache
	leaderboardCache   *requestcache.Cache
	usersCache         *requestcache.Cache
}

// NewClient creates a Client for the backend at baseURL (no trailing
// slash) with a fresh cookie jar.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return NewClientWithHTTP(baseURL, &http.Client{Jar: jar, Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a Client over a caller-supplied http.Client.
// Sharing the http.Client (and its cookie jar) with a session.Client keeps
// API calls authenticated.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:            baseURL,
		http:               hc,
		typesCache:         requestcache.New(0),
		contributionsCache: requestcache.New(0),
		leaderboardCache:   requestcache.New(0),
		usersCache:         requestcache.New(0),
	}
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/api/v1/users/me/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe patches the signed-in user's profile and invalidates cached
// user lookups.
func (c *Client) UpdateMe(ctx context.Context, patch UserPatch) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPatch, "/api/v1/users/me/", patch, &out); err != nil {
		return nil, err
	}
	c.usersCache.Clear()
	return &out, nil
}

// UserByAddress looks up a user by wallet address, cached.
func (c *Client) UserByAddress(ctx context.Context, address string) (*User, error) {
	params := map[string]any{"__endpoint": "user-by-address", "address": address}
	return requestcache.Do(ctx, c.usersCache, params, func(ctx context.Context) (*User, error) {
		var out User
		if err := c.get(ctx, "/api/v1/users/by-address/"+url.PathEscape(address)+"/", nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// Validators lists validator records.
func (c *Client) Validators(ctx context.Context) ([]Validator, error) {
	var out []Validator
	if err := c.get(ctx, "/api/v1/validators/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ContributionTypes lists the contribution categories, cached. The result
// also feeds search.ReferenceData for the query mapper.
func (c *Client) ContributionTypes(ctx context.Context) ([]ContributionType, error) {
	params := map[string]any{"__endpoint": "contribution-types"}
	return requestcache.Do(ctx, c.typesCache, params, func(ctx context.Context) ([]ContributionType, error) {
		var out []ContributionType
		if err := c.get(ctx, "/api/v1/contribution-types/", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Contributions lists the submission review queue filtered by the given
// query parameters, typically the output of search.Filters.Params. Results
// are cached per distinct parameter set.
func (c *Client) Contributions(ctx context.Context, params map[string]string) (*Page[SubmittedContribution], error) {
	key := map[string]any{"__endpoint": "contributions"}
	for k, v := range params {
		key[k] = v
	}
	return requestcache.Do(ctx, c.contributionsCache, key, func(ctx context.Context) (*Page[SubmittedContribution], error) {
		var out Page[SubmittedContribution]
		if err := c.get(ctx, "/api/v1/contributions/", params, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// Submit creates a new submission and invalidates the contributions cache.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmittedContribution, error) {
	var out SubmittedContribution
	if err := c.do(ctx, http.MethodPost, "/api/v1/submissions/", req, &out); err != nil {
		return nil, err
	}
	c.contributionsCache.Clear()
	return &out, nil
}

// MySubmissions lists the signed-in user's submissions, newest first.
func (c *Client) MySubmissions(ctx context.Context) ([]SubmittedContribution, error) {
	var out []SubmittedContribution
	if err := c.get(ctx, "/api/v1/submissions/my/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Review records a reviewer decision. Accepting a submission changes the
// leaderboard, so both caches are invalidated.
func (c *Client) Review(ctx context.Context, submissionID string, req ReviewRequest) (*SubmittedContribution, error) {
	var out SubmittedContribution
	path := "/api/v1/submissions/" + url.PathEscape(submissionID) + "/review/"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	c.contributionsCache.Clear()
	c.leaderboardCache.Clear()
	return &out, nil
}

// Leaderboard returns the ranked list, cached. userAddress, when set,
// narrows the result to that participant's row.
func (c *Client) Leaderboard(ctx context.Context, userAddress string) ([]LeaderboardEntry, error) {
	params := map[string]any{"__endpoint": "leaderboard"}
	query := map[string]string{}
	if userAddress != "" {
		params["user_address"] = userAddress
		query["user_address"] = userAddress
	}
	return requestcache.Do(ctx, c.leaderboardCache, params, func(ctx context.Context) ([]LeaderboardEntry, error) {
		var out []LeaderboardEntry
		if err := c.get(ctx, "/api/v1/leaderboard/", query, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// LeaderboardStats returns the aggregate counters, cached.
func (c *Client) LeaderboardStats(ctx context.Context) (*Stats, error) {
	params := map[string]any{"__endpoint": "leaderboard-stats"}
	return requestcache.Do(ctx, c.leaderboardCache, params, func(ctx context.Context) (*Stats, error) {
		var out Stats
		if err := c.get(ctx, "/api/v1/leaderboard/stats/", nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// InvalidateContributions drops all cached contribution pages, for callers
// that learn about changes out of band.
func (c *Client) InvalidateContributions() {
	c.contributionsCache.Clear()
}

// InvalidateAll drops every cache.
func (c *Client) InvalidateAll() {
	c.typesCache.Clear()
	c.contributionsCache.Clear()
	c.leaderboardCache.Clear()
	c.usersCache.Clear()
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		target += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s body: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.setCSRFHeader(req)
	return c.send(req, out)
}

// setCSRFHeader echoes the backend's CSRF cookie back as a header on
// mutating requests (double-submit pattern). The cookie appears in the
// jar after any prior request; a first-ever mutation without it will be
// rejected and can be retried.
func (c *Client) setCSRFHeader(req *http.Request) {
	if c.http.Jar == nil {
		return
	}
	for _, cookie := range c.http.Jar.Cookies(req.URL) {
		if cookie.Name == "points_csrf" {
			req.Header.Set("X-CSRF-Token", cookie.Value)
			return
		}
	}
}

func (c *Client) send(req *http.Request, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return decodeError(res)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}

// Error carries a backend error status and message.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func decodeError(res *http.Response) error {
	apiErr := &Error{StatusCode: res.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err == nil {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}
