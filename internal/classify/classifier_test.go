package classify

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveflow/driveflow/internal/drive"
	"github.com/driveflow/driveflow/internal/errs"
)

// stubCompleter replays a canned reply and records the prompt it received.
type stubCompleter struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (s *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastUser = user
	return s.reply, s.err
}

var testCandidates = []drive.FolderCandidate{
	{Name: "Invoices", ID: "f1"},
	{Name: "Receipts", ID: "f2"},
}

func TestSelectFolder(t *testing.T) {
	stub := &stubCompleter{reply: `{"folder_name": "Invoices", "folder_id": "f1"}`}
	c := newClassifier(stub, nil)

	decision, err := c.SelectFolder(context.Background(), "Invoice #42 due March", testCandidates)
	require.NoError(t, err)

	assert.Equal(t, "f1", decision.FolderID)
	assert.Equal(t, "Invoices", decision.FolderName)
	assert.Equal(t, 1, stub.calls, "exactly one request, no retry")
	assert.Contains(t, stub.lastUser, "Invoice #42 due March")
	assert.Contains(t, stub.lastUser, `"Invoices"`)
}

func TestSelectFolderMembershipEnforced(t *testing.T) {
	// The model answering with an id outside the candidate set must be
	// rejected: output is a subset of the input domain.
	stub := &stubCompleter{reply: `{"folder_name": "Other", "folder_id": "f999"}`}
	c := newClassifier(stub, nil)

	_, err := c.SelectFolder(context.Background(), "text", testCandidates)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrClassification)
}

func TestSelectFolderCanonicalName(t *testing.T) {
	// A reply with the right id but a mangled name takes the candidate's
	// name, not the model's.
	stub := &stubCompleter{reply: `{"folder_name": "invoices!!", "folder_id": "f2"}`}
	c := newClassifier(stub, nil)

	decision, err := c.SelectFolder(context.Background(), "text", testCandidates)
	require.NoError(t, err)
	assert.Equal(t, "Receipts", decision.FolderName)
}

func TestSelectFolderTruncatesDocument(t *testing.T) {
	stub := &stubCompleter{reply: `{"folder_id": "f1"}`}
	c := newClassifier(stub, nil)

	long := strings.Repeat("a", maxDocumentChars) + "DECISIVE SUFFIX"
	_, err := c.SelectFolder(context.Background(), long, testCandidates)
	require.NoError(t, err)

	assert.NotContains(t, stub.lastUser, "DECISIVE SUFFIX",
		"content beyond the prefix bound must not reach the model")
}

func TestSelectFolderTruncatesOnRuneBoundary(t *testing.T) {
	stub := &stubCompleter{reply: `{"folder_id": "f1"}`}
	c := newClassifier(stub, nil)

	// Multibyte runes around the prefix bound must never be split; the
	// prompt has to stay valid UTF-8.
	long := strings.Repeat("ü", maxDocumentChars+10)
	_, err := c.SelectFolder(context.Background(), long, testCandidates)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(stub.lastUser),
		"prompt must not contain a split rune")
	assert.Equal(t, maxDocumentChars, strings.Count(stub.lastUser, "ü"))
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than bound", "abc", 5, "abc"},
		{"exactly at bound", "abc", 3, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"multibyte counted as one", "üüüü", 2, "üü"},
		{"empty", "", 4, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateRunes(tt.in, tt.max))
		})
	}
}

func TestSelectFolderEmptyDocument(t *testing.T) {
	// Empty extraction degenerates to folder-name-only matching; the
	// request is still issued.
	stub := &stubCompleter{reply: `{"folder_id": "f1"}`}
	c := newClassifier(stub, nil)

	decision, err := c.SelectFolder(context.Background(), "", testCandidates)
	require.NoError(t, err)
	assert.Equal(t, "f1", decision.FolderID)
	assert.Equal(t, 1, stub.calls)
}

func TestSelectFolderNoCandidates(t *testing.T) {
	stub := &stubCompleter{reply: `{"folder_id": "f1"}`}
	c := newClassifier(stub, nil)

	_, err := c.SelectFolder(context.Background(), "text", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrClassification)
	assert.Zero(t, stub.calls, "no model call without candidates")
}

func TestSelectFolderCompleterError(t *testing.T) {
	stub := &stubCompleter{err: fmt.Errorf("connection reset")}
	c := newClassifier(stub, nil)

	_, err := c.SelectFolder(context.Background(), "text", testCandidates)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrClassification)
	assert.Equal(t, 1, stub.calls, "a single failure propagates, no retry")
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    Decision
		wantErr bool
	}{
		{
			name:  "bare JSON",
			reply: `{"folder_name":"A","folder_id":"1"}`,
			want:  Decision{FolderName: "A", FolderID: "1"},
		},
		{
			name:  "fenced JSON",
			reply: "```json\n{\"folder_name\":\"A\",\"folder_id\":\"1\"}\n```",
			want:  Decision{FolderName: "A", FolderID: "1"},
		},
		{
			name:  "JSON with prose",
			reply: `The best match is: {"folder_name":"A","folder_id":"1"} based on the content.`,
			want:  Decision{FolderName: "A", FolderID: "1"},
		},
		{name: "no JSON", reply: "I cannot decide.", wantErr: true},
		{name: "missing id", reply: `{"folder_name":"A"}`, wantErr: true},
		{name: "malformed", reply: `{"folder_id":}`, wantErr: true},
		{name: "empty", reply: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDecision(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
