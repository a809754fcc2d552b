package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/driveflow/driveflow/internal/errs"
	"github.com/driveflow/driveflow/internal/logging"
)

// consentTimeout bounds how long the interactive flow waits for the user
// to finish authorization in the browser.
const consentTimeout = 5 * time.Minute

// authorize runs the interactive consent flow: a temporary local HTTP
// server catches the OAuth redirect, the authorization URL is opened in a
// browser (and printed in case that fails), and the received code is
// exchanged for a token.
func (s *Store) authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAuthFlow, err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", consentCallback(state, codeCh, errCh))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.callbackPort),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
	s.logger.Info("authorization required, waiting for browser consent",
		logging.Operation("consent"))
	fmt.Printf("Open the following URL in your browser to authorize access:\n%s\n", authURL)
	openBrowser(authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, fmt.Errorf("%w: %v", errs.ErrAuthFlow, err)
	case <-time.After(consentTimeout):
		return nil, fmt.Errorf("%w: authorization timed out after %s", errs.ErrAuthFlow, consentTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", errs.ErrAuthFlow, ctx.Err())
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchanging authorization code: %v", errs.ErrAuthFlow, err)
	}
	return tok, nil
}

// consentCallback handles the OAuth redirect. Only the first outcome is
// reported; the channels are buffered for one value and later hits of the
// callback URL (a reload, a stray crawler) must not block the handler.
func consentCallback(state string, codeCh chan<- string, errCh chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("state mismatch in callback"):
			default:
			}
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "no authorization code in callback", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("no authorization code in callback"):
			default:
			}
			return
		}
		fmt.Fprint(w, consentSuccessPage)
		select {
		case codeCh <- code:
		default:
		}
	}
}

// randomState generates an unguessable state parameter for the consent URL.
func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(buf), "="), nil
}

// openBrowser tries to open the URL in the default browser. Failure is not
// an error; the URL was already printed.
func openBrowser(url string) {
	switch runtime.GOOS {
	case "linux":
		_ = exec.Command("xdg-open", url).Start()
	case "windows":
		_ = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		_ = exec.Command("open", url).Start()
	}
}

const consentSuccessPage = `<!DOCTYPE html>
<html>
<head><title>driveflow - Authorization Complete</title></head>
<body>
  <h1>Authorization successful</h1>
  <p>You can close this window and return to your terminal.</p>
</body>
</html>`
