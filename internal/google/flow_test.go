package google

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callConsent(t *testing.T, handler func(w *httptest.ResponseRecorder), workers int) {
	t.Helper()
	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func() {
			w := httptest.NewRecorder()
			handler(w)
			done <- struct{}{}
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}
}

func TestConsentCallbackDeliversCode(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	h := consentCallback("state-1", codeCh, errCh)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest("GET", "/?state=state-1&code=auth-code", nil))

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization successful")
	require.Len(t, codeCh, 1)
	assert.Equal(t, "auth-code", <-codeCh)
	assert.Empty(t, errCh)
}

func TestConsentCallbackRepeatedHitsDoNotBlock(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	h := consentCallback("state-1", codeCh, errCh)

	// A reload of the callback URL after the first delivery must complete
	// even though nobody drains the channels anymore. A blocked handler
	// here would hang the test.
	callConsent(t, func(w *httptest.ResponseRecorder) {
		h(w, httptest.NewRequest("GET", "/?state=state-1&code=auth-code", nil))
	}, 3)

	assert.Len(t, codeCh, 1)
}

func TestConsentCallbackStateMismatch(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	h := consentCallback("state-1", codeCh, errCh)

	callConsent(t, func(w *httptest.ResponseRecorder) {
		req := httptest.NewRequest("GET", "/?state=forged&code=auth-code", nil)
		h(w, req)
	}, 3)

	assert.Empty(t, codeCh)
	require.Len(t, errCh, 1)
	assert.Contains(t, (<-errCh).Error(), "state mismatch")
}

func TestConsentCallbackMissingCode(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	h := consentCallback("state-1", codeCh, errCh)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest("GET", "/?state=state-1", nil))

	assert.Equal(t, 400, w.Code)
	assert.Empty(t, codeCh)
	require.Len(t, errCh, 1)
}
