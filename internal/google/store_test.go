package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/driveflow/driveflow/internal/errs"
)

const testClientSecret = `{
  "installed": {
    "client_id": "test-client-id.apps.googleusercontent.com",
    "client_secret": "test-client-secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

func writeTestFiles(t *testing.T, tok *oauth2.Token) (credFile, tokenFile string) {
	t.Helper()
	dir := t.TempDir()

	credFile = filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(credFile, []byte(testClientSecret), 0600))

	tokenFile = filepath.Join(dir, "token.json")
	if tok != nil {
		data, err := json.Marshal(tok)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(tokenFile, data, 0600))
	}
	return credFile, tokenFile
}

func TestCredentialRefreshesExpiredToken(t *testing.T) {
	refreshCalls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"token_type":    "Bearer",
			"refresh_token": "old-refresh",
			"expires_in":    3600,
		})
	}))
	defer ts.Close()

	expired := &oauth2.Token{
		AccessToken:  "stale-access",
		TokenType:    "Bearer",
		RefreshToken: "old-refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}
	credFile, tokenFile := writeTestFiles(t, expired)

	store := NewStore(credFile, tokenFile, 0, nil, nil)
	store.endpoint = oauth2.Endpoint{AuthURL: ts.URL + "/auth", TokenURL: ts.URL + "/token"}

	tok, err := store.Credential(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "fresh-access", tok.AccessToken)
	assert.True(t, tok.Expiry.After(time.Now()), "refreshed token must expire in the future")
	// Silent recovery, never the interactive flow: exactly one token
	// endpoint round trip and no callback server activity.
	assert.Equal(t, 1, refreshCalls)

	// The refreshed token must have been persisted.
	persisted := &oauth2.Token{}
	data, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, persisted))
	assert.Equal(t, "fresh-access", persisted.AccessToken)
}

func TestCredentialValidTokenReturnedAsIs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected for a valid persisted token")
	}))
	defer ts.Close()

	valid := &oauth2.Token{
		AccessToken: "live-access",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}
	credFile, tokenFile := writeTestFiles(t, valid)

	store := NewStore(credFile, tokenFile, 0, nil, nil)
	store.endpoint = oauth2.Endpoint{AuthURL: ts.URL + "/auth", TokenURL: ts.URL + "/token"}

	tok, err := store.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "live-access", tok.AccessToken)
}

func TestCredentialNoClientConfig(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "missing.json"), filepath.Join(dir, "token.json"), 0, nil, nil)

	_, err := store.Credential(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNoClientConfig)
}

func TestCredentialMalformedClientConfig(t *testing.T) {
	dir := t.TempDir()
	credFile := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(credFile, []byte("{not json"), 0600))

	store := NewStore(credFile, filepath.Join(dir, "token.json"), 0, nil, nil)
	_, err := store.Credential(context.Background())
	assert.ErrorIs(t, err, errs.ErrNoClientConfig)
}

func TestHasToken(t *testing.T) {
	credFile, tokenFile := writeTestFiles(t, &oauth2.Token{AccessToken: "x"})
	store := NewStore(credFile, tokenFile, 0, nil, nil)
	assert.True(t, store.HasToken())

	missing := NewStore(credFile, filepath.Join(t.TempDir(), "nope.json"), 0, nil, nil)
	assert.False(t, missing.HasToken())
}
