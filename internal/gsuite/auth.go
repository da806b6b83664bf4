// Package gsuite wraps the Google Workspace APIs the report touches:
// Calendar for meetings, Gmail for form receipts and drafts, Docs for the
// shared report document. All of them authenticate through one
// CredentialProvider that caches a token per service.
package gsuite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrAuthExpired marks a cached token that could not be refreshed. The
// provider reacts by discarding the token and rerunning the browser flow.
var ErrAuthExpired = errors.New("cached token expired and refresh failed")

// CredentialProvider hands out authenticated HTTP clients for Google
// services, caching one token file per service under TokensDir.
type CredentialProvider struct {
	ClientSecretFile string
	TokensDir        string
	Logger           *slog.Logger
}

func (p *CredentialProvider) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Client returns an HTTP client authorized for the scopes. A cached token is
// reused and silently refreshed when possible; otherwise the interactive
// browser flow runs once and the new token is cached.
func (p *CredentialProvider) Client(ctx context.Context, service string, scopes ...string) (*http.Client, error) {
	secret, err := os.ReadFile(p.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret file: %w", err)
	}

	conf, err := google.ConfigFromJSON(secret, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret file: %w", err)
	}

	tokenPath := filepath.Join(p.TokensDir, fmt.Sprintf("token_%s.json", service))

	tok, err := p.cachedToken(ctx, conf, tokenPath)
	if err != nil {
		if errors.Is(err, ErrAuthExpired) {
			p.logger().Warn("stored token is no longer valid, starting authorization flow",
				"service", service, "error", err)
			_ = os.Remove(tokenPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		tok, err = p.authorize(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := p.saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}

	src := &savingTokenSource{
		src:  conf.TokenSource(ctx, tok),
		path: tokenPath,
		last: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, src), nil
}

// cachedToken loads the stored token and refreshes it when expired. A token
// that cannot be read back into a usable state reports ErrAuthExpired.
func (p *CredentialProvider) cachedToken(ctx context.Context, conf *oauth2.Config, path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	refreshed, err := conf.TokenSource(ctx, &tok).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	if refreshed.AccessToken != tok.AccessToken {
		if err := p.saveToken(path, refreshed); err != nil {
			return nil, err
		}
	}

	return refreshed, nil
}

// authorize runs the one-shot browser consent flow against a loopback
// listener and exchanges the resulting code for a token.
func (p *CredentialProvider) authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	defer listener.Close()

	redirect := *conf
	redirect.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization response missing code")
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this tab.")
		codeCh <- code
	})}
	go server.Serve(listener)
	defer server.Close()

	authURL := redirect.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("Open the following link in your browser to authorize access:\n\n%s\n\n", authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := redirect.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return tok, nil
}

func (p *CredentialProvider) saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create tokens directory: %w", err)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// savingTokenSource persists rotated tokens so later runs skip the browser.
type savingTokenSource struct {
	src  oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if data, err := json.Marshal(tok); err == nil {
			_ = os.WriteFile(s.path, data, 0600)
		}
	}

	return tok, nil
}
