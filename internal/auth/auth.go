// Package auth obtains a fresh bearer token from Terrain's identity
// endpoint by prompting the user for a username and password.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cyverse-de/terrain-cli/internal/failure"
)

// TokenPath is the identity endpoint, relative to an environment's base URI.
const TokenPath = "/token/keycloak"

// State is the authenticator's position in the login flow.
type State int

const (
	AwaitingCredentials State = iota
	Authenticated
)

func (s State) String() string {
	switch s {
	case AwaitingCredentials:
		return "awaiting-credentials"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Prompter supplies a username and password each time the authenticator
// needs them.
type Prompter interface {
	Credentials(ctx context.Context) (username, password string, err error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context) (string, string, error)

func (f PrompterFunc) Credentials(ctx context.Context) (string, string, error) {
	return f(ctx)
}

type Authenticator struct {
	TokenURL   string
	HTTPClient *http.Client
	Prompter   Prompter
	Notices    io.Writer // where the invalid-credentials notice is printed

	state State
}

// New returns an authenticator for the identity endpoint at tokenURL.
func New(tokenURL string, prompter Prompter, notices io.Writer) *Authenticator {
	return &Authenticator{
		TokenURL:   tokenURL,
		HTTPClient: http.DefaultClient,
		Prompter:   prompter,
		Notices:    notices,
	}
}

// State returns where the authenticator is in the login flow.
func (a *Authenticator) State() State {
	return a.state
}

// Login prompts until the identity endpoint accepts the credentials and
// returns the issued token. Rejected credentials are the only case that
// loops; there is no attempt limit. Any other failure ends the login.
func (a *Authenticator) Login(ctx context.Context) (string, error) {
	a.state = AwaitingCredentials
	for {
		username, password, err := a.Prompter.Credentials(ctx)
		if err != nil {
			return "", failure.Fatal(failure.KindAuthentication, "read credentials", err)
		}

		token, err := a.requestToken(ctx, username, password)
		if err == nil {
			a.state = Authenticated
			log.Debug().Str("user", username).Msg("authenticated")
			return token, nil
		}
		if !failure.IsRecoverable(err) {
			return "", err
		}
		fmt.Fprintln(a.Notices, "invalid credentials; please try again")
	}
}

func (a *Authenticator) requestToken(ctx context.Context, username, password string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.TokenURL, nil)
	if err != nil {
		return "", failure.Fatal(failure.KindAuthentication, "authenticate", err)
	}
	req.SetBasicAuth(username, password)

	log.Debug().Str("url", a.TokenURL).Str("user", username).Msg("requesting token")
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", failure.Fatal(failure.KindAuthentication, "authenticate", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failure.Fatal(failure.KindAuthentication, "authenticate", fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", failure.Retry(failure.KindAuthentication, "authenticate", failure.ErrInvalidCredentials).
			WithStatus(resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", failure.Fatal(failure.KindAuthentication, "unable to authenticate to Terrain",
			fmt.Errorf("identity endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))).
			WithStatus(resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", failure.Fatal(failure.KindProtocol, "authenticate", fmt.Errorf("decode response: %w", err))
	}
	if tokenResp.AccessToken == "" {
		return "", failure.Fatal(failure.KindProtocol, "authenticate", errors.New("response has no access_token"))
	}
	return strings.TrimSpace(tokenResp.AccessToken), nil
}
