package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cyverse-de/terrain-cli/internal/config"
	"github.com/cyverse-de/terrain-cli/internal/failure"
)

// TokenStore persists credentials between invocations.
type TokenStore interface {
	Load(env string) (string, bool, error)
	Save(env, token string) error
}

// Authenticator obtains a fresh credential interactively.
type Authenticator interface {
	Login(ctx context.Context) (string, error)
}

// HTTPError is a response outside the 2xx range.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// Client talks to one Terrain environment on behalf of one user.
type Client struct {
	env        string
	envs       config.Environments
	httpClient *http.Client
	store      TokenStore
	auth       Authenticator

	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a client for env. It fails right away if env isn't in envs.
func New(env string, envs config.Environments, store TokenStore, auth Authenticator, opts ...Option) (*Client, error) {
	if _, err := envs.ResolveURI(env, ""); err != nil {
		return nil, err
	}
	c := &Client{
		env:        env,
		envs:       envs,
		httpClient: http.DefaultClient,
		store:      store,
		auth:       auth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Environment() string {
	return c.env
}

// ResolveURI builds the full URI for path in the client's environment.
func (c *Client) ResolveURI(path string) (string, error) {
	return c.envs.ResolveURI(c.env, path)
}

// Token returns the credential for the client's environment, logging in
// and caching a new one if the cached one is missing or no longer valid.
// The result is kept for the life of the client, so the user is prompted
// at most once per invocation.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.token != "" {
		return c.token, nil
	}

	token, ok, err := c.store.Load(c.env)
	if err != nil {
		return "", err
	}
	if !ok {
		return c.Login(ctx)
	}
	c.token = strings.TrimSpace(token)
	return c.token, nil
}

// Login always authenticates, replacing any cached credential.
func (c *Client) Login(ctx context.Context) (string, error) {
	token, err := c.auth.Login(ctx)
	if err != nil {
		return "", err
	}
	if err := c.store.Save(c.env, token); err != nil {
		return "", err
	}
	c.token = strings.TrimSpace(token)
	return c.token, nil
}

// do sends an authorized request and decodes a 2xx JSON response into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	uri, err := c.ResolveURI(path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return failure.Fatal(failure.KindProtocol, op, fmt.Errorf("encode request: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reqBody)
	if err != nil {
		return failure.Fatal(failure.KindProtocol, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug().Str("method", method).Str("url", uri).Msg("terrain request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure.Fatal(failure.KindProtocol, op, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure.Fatal(failure.KindProtocol, op, fmt.Errorf("read response: %w", err))
	}
	log.Debug().Str("method", method).Str("url", uri).Int("status", resp.StatusCode).Msg("terrain response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := failure.KindProtocol
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = failure.KindAuthorization
		}
		httpErr := &HTTPError{Method: method, URL: uri, StatusCode: resp.StatusCode, Body: string(data)}
		return failure.Fatal(kind, op, httpErr).WithStatus(resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return failure.Fatal(failure.KindProtocol, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

var errNoResult = errors.New("response has no result field")

// result fetches an endpoint whose payload is wrapped in {"result": ...}.
func result[T any](ctx context.Context, c *Client, op, method, path string, body any) (T, error) {
	var envelope struct {
		Result *T `json:"result"`
	}
	var zero T
	if err := c.do(ctx, op, method, path, nil, body, &envelope); err != nil {
		return zero, err
	}
	if envelope.Result == nil {
		return zero, failure.Fatal(failure.KindProtocol, op, errNoResult)
	}
	return *envelope.Result, nil
}

func userPlanPath(user string) string {
	return "/admin/qms/users/" + url.PathEscape(user) + "/plan"
}

// ListPlans returns the available subscription plans.
func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	return result[[]Plan](ctx, c, "list plans", http.MethodGet, "/qms/plans", nil)
}

// ListResourceTypes returns the resource types quotas can be set on.
func (c *Client) ListResourceTypes(ctx context.Context) ([]ResourceType, error) {
	return result[[]ResourceType](ctx, c, "list resource types", http.MethodGet, "/qms/resource-types", nil)
}

// GetSubscription returns the authenticated user's current subscription.
func (c *Client) GetSubscription(ctx context.Context) (*Subscription, error) {
	sub, err := result[Subscription](ctx, c, "get subscription", http.MethodGet, "/qms/user/plan", nil)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// AdminGetSubscription returns user's current subscription. Requires admin
// privileges.
func (c *Client) AdminGetSubscription(ctx context.Context, user string) (*Subscription, error) {
	sub, err := result[Subscription](ctx, c, "get subscription for "+user, http.MethodGet, userPlanPath(user), nil)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// AddSubscription subscribes user to plan.
func (c *Client) AddSubscription(ctx context.Context, user, plan string) (*Subscription, error) {
	path := userPlanPath(user) + "/" + url.PathEscape(plan)
	sub, err := result[Subscription](ctx, c, "add subscription for "+user, http.MethodPut, path, nil)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// SetQuota sets user's quota for resourceType to a raw value.
func (c *Client) SetQuota(ctx context.Context, user, resourceType string, value int64) (*Subscription, error) {
	path := userPlanPath(user) + "/" + url.PathEscape(resourceType) + "/quota"
	body := map[string]int64{"quota": value}
	sub, err := result[Subscription](ctx, c, "set quota for "+user, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// SearchSubjects runs a subject search. Unlike the QMS endpoints the
// subjects are not wrapped in a result field.
func (c *Client) SearchSubjects(ctx context.Context, search string) ([]Subject, error) {
	var resp struct {
		Subjects *[]Subject `json:"subjects"`
	}
	query := url.Values{"search": {search}}
	if err := c.do(ctx, "search subjects", http.MethodGet, "/subjects", query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Subjects == nil {
		return nil, failure.Fatal(failure.KindProtocol, "search subjects", errors.New("response has no subjects field"))
	}
	return *resp.Subjects, nil
}
