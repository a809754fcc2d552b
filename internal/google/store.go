package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/driveflow/driveflow/internal/errs"
	"github.com/driveflow/driveflow/internal/instrumentation"
	"github.com/driveflow/driveflow/internal/logging"
)

// Scopes are the Google OAuth scopes requested during consent.
//
// The calendar scopes are granted but not exercised by any capability in
// this backend; they match the consent grant already on file for deployed
// installations, so revoking them would force a re-consent.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/drive",
}

// Store manages the persisted OAuth credential for the single configured
// account. It is constructed once at process start and passed by handle to
// every component that needs authentication.
//
// All credential reads, refreshes and consent flows run under one mutex so
// that two concurrent callers cannot interleave a refresh and lose the
// token another reader still holds.
type Store struct {
	mu sync.Mutex

	credentialsFile string
	tokenFile       string
	callbackPort    int
	metrics         *instrumentation.Metrics
	logger          *slog.Logger

	// endpoint overrides the Google OAuth endpoint; zero value means
	// google.Endpoint. Tests point it at a local server.
	endpoint oauth2.Endpoint
}

// NewStore creates a credential store backed by the given client-secret and
// token files. Neither file has to exist yet; absence is reported by
// Credential when it matters. metrics may be nil.
func NewStore(credentialsFile, tokenFile string, callbackPort int, metrics *instrumentation.Metrics, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		credentialsFile: credentialsFile,
		tokenFile:       tokenFile,
		callbackPort:    callbackPort,
		metrics:         metrics,
		logger:          logger,
	}
}

// Credential returns a usable OAuth token, running whichever recovery path
// is needed: a persisted valid token is returned as-is; an expired token
// with a refresh token is silently refreshed; anything else triggers the
// interactive consent flow. The resulting token is persisted before it is
// returned.
//
// Fails with errs.ErrNoClientConfig when no client-secret configuration is
// available, and with errs.ErrAuthFlow when interactive consent cannot
// complete.
func (s *Store) Credential(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conf, err := s.config()
	if err != nil {
		return nil, err
	}

	tok, err := s.readToken()
	if err == nil {
		if tok.Valid() {
			return tok, nil
		}
		if tok.RefreshToken != "" {
			fresh, rerr := conf.TokenSource(ctx, tok).Token()
			if rerr == nil {
				if werr := s.writeToken(fresh); werr != nil {
					return nil, werr
				}
				s.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultSuccess)
				s.logger.Debug("oauth token refreshed", logging.Operation("credential"))
				return fresh, nil
			}
			// Refresh is a silent recovery; a failed refresh falls through
			// to the consent flow rather than surfacing as an error.
			s.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure)
			s.logger.Warn("oauth token refresh failed, starting consent flow",
				logging.Operation("credential"), logging.Err(rerr))
		}
	}

	fresh, err := s.authorize(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err := s.writeToken(fresh); err != nil {
		return nil, err
	}
	s.logger.Info("oauth consent completed", logging.Operation("credential"))
	return fresh, nil
}

// HTTPClient returns an *http.Client whose requests carry the stored
// credential, refreshing and re-persisting it through the store as needed.
func (s *Store) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, s.TokenSource(ctx))
}

// TokenSource returns an oauth2.TokenSource backed by the store. Every
// Token call goes through Credential and therefore through the store's
// persistence and locking.
func (s *Store) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &storeTokenSource{ctx: ctx, store: s})
}

// HasToken reports whether a persisted credential exists on disk. It does
// not validate the token.
func (s *Store) HasToken() bool {
	_, err := os.Stat(s.tokenFile)
	return err == nil
}

// config loads the OAuth client configuration from the client-secret file.
func (s *Store) config() (*oauth2.Config, error) {
	data, err := os.ReadFile(s.credentialsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (download the OAuth client JSON from the Google Cloud Console)",
				errs.ErrNoClientConfig, s.credentialsFile)
		}
		return nil, fmt.Errorf("reading %s: %w", s.credentialsFile, err)
	}

	conf, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", errs.ErrNoClientConfig, s.credentialsFile, err)
	}
	conf.RedirectURL = fmt.Sprintf("http://localhost:%d/", s.callbackPort)
	if s.endpoint.TokenURL != "" {
		conf.Endpoint = s.endpoint
	}
	return conf, nil
}

// readToken loads the persisted token from disk.
func (s *Store) readToken() (*oauth2.Token, error) {
	f, err := os.Open(s.tokenFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token file: %w", err)
	}
	return tok, nil
}

// writeToken persists a token to disk. Every successful Credential call may
// rewrite this file.
func (s *Store) writeToken(tok *oauth2.Token) error {
	f, err := os.OpenFile(s.tokenFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("encoding token file: %w", err)
	}
	return nil
}

// storeTokenSource adapts the store to the oauth2.TokenSource interface.
type storeTokenSource struct {
	ctx   context.Context
	store *Store
}

func (ts *storeTokenSource) Token() (*oauth2.Token, error) {
	return ts.store.Credential(ts.ctx)
}
