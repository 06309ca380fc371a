package application_test

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/previewpub/previewpub/internal/application"
	"github.com/previewpub/previewpub/internal/domain/model"
	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockClaimStore struct {
	mu     sync.Mutex
	claims map[string]model.Claim

	resolveErr error
	consumeErr error
	consumed   []string
}

func newMockClaimStore() *mockClaimStore {
	return &mockClaimStore{claims: make(map[string]model.Claim)}
}

func (m *mockClaimStore) Put(_ context.Context, token string, claim model.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[token] = claim
	return nil
}

func (m *mockClaimStore) Resolve(_ context.Context, token string) (*model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	claim, ok := m.claims[token]
	if !ok {
		return nil, nil
	}
	return &claim, nil
}

func (m *mockClaimStore) Consume(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumeErr != nil {
		return m.consumeErr
	}
	delete(m.claims, token)
	m.consumed = append(m.consumed, token)
	return nil
}

type cursorKey struct {
	owner, repo, ref string
}

type mockCursorStore struct {
	mu      sync.Mutex
	cursors map[cursorKey]model.Cursor
	casErr  error
}

func newMockCursorStore() *mockCursorStore {
	return &mockCursorStore{cursors: make(map[cursorKey]model.Cursor)}
}

func (m *mockCursorStore) Get(_ context.Context, owner, repo, ref string) (*model.Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cursor, ok := m.cursors[cursorKey{owner, repo, ref}]
	if !ok {
		return nil, nil
	}
	return &cursor, nil
}

func (m *mockCursorStore) CompareAndSet(_ context.Context, owner, repo, ref string, candidate model.Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.casErr != nil {
		return m.casErr
	}
	key := cursorKey{owner, repo, ref}
	if current, ok := m.cursors[key]; ok && current.RunNumber >= candidate.RunNumber {
		return nil
	}
	m.cursors[key] = candidate
	return nil
}

// mockBlobStore verifies checksums like the real store so upload failures
// propagate through the orchestrator the same way.
type mockBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{objects: make(map[string][]byte)}
}

func (m *mockBlobStore) Put(_ context.Context, key string, r io.Reader, expectedSHA1 string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}

	if expectedSHA1 != "" {
		sum := sha1.Sum(data)
		if actual := hex.EncodeToString(sum[:]); !strings.EqualFold(actual, expectedSHA1) {
			return fmt.Errorf("checksum mismatch for %s: declared %s, streamed %s", key, expectedSHA1, actual)
		}
	}

	m.objects[key] = data
	return nil
}

func (m *mockBlobStore) PutBytes(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = bytes.Clone(data)
	return nil
}

func (m *mockBlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, &driven.NotFoundError{Key: key}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockBlobStore) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *mockBlobStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *mockBlobStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.objects {
		keys = append(keys, key)
	}
	return keys
}

type createdComment struct {
	PR   int
	Body string
}

type updatedComment struct {
	ID   int64
	Body string
}

type mockCodeHost struct {
	mu sync.Mutex

	existingRuns []model.CheckRunRef
	prevComment  *model.CommentRef
	permissions  map[string]string

	listRunsErr   error
	createRunErr  error
	findErr       error
	createErr     error
	updateErr     error
	permissionErr error

	createdRuns     []model.CheckRunSpec
	createdComments []createdComment
	updatedComments []updatedComment
	permissionCalls int
}

func (m *mockCodeHost) ListCheckRuns(_ context.Context, _, _, _, _ string) ([]model.CheckRunRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listRunsErr != nil {
		return nil, m.listRunsErr
	}
	return m.existingRuns, nil
}

func (m *mockCodeHost) CreateCheckRun(_ context.Context, _, _ string, spec model.CheckRunSpec) (model.CheckRunRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createRunErr != nil {
		return model.CheckRunRef{}, m.createRunErr
	}
	m.createdRuns = append(m.createdRuns, spec)
	return model.CheckRunRef{ID: 1, HTMLURL: "https://github.test/runs/1"}, nil
}

func (m *mockCodeHost) FindAppComment(_ context.Context, _, _ string, _ int) (*model.CommentRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.prevComment, nil
}

func (m *mockCodeHost) CreateComment(_ context.Context, _, _ string, prNumber int, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.createdComments = append(m.createdComments, createdComment{PR: prNumber, Body: body})
	return nil
}

func (m *mockCodeHost) UpdateComment(_ context.Context, _, _ string, commentID int64, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedComments = append(m.updatedComments, updatedComment{ID: commentID, Body: body})
	return nil
}

func (m *mockCodeHost) InstallationPermissions(_ context.Context, _, _ string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permissionCalls++
	if m.permissionErr != nil {
		return nil, m.permissionErr
	}
	return m.permissions, nil
}

// mockRenderer records render calls and produces a recognizable page.
type mockRenderer struct {
	mu       sync.Mutex
	rendered map[string]map[string]string
	err      error
}

func newMockRenderer() *mockRenderer {
	return &mockRenderer{rendered: make(map[string]map[string]string)}
}

func (m *mockRenderer) Render(templateName string, assets map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.rendered[templateName] = assets
	return "<html>" + templateName + "</html>", nil
}

// --- Test data helpers ---

func sha1Hex(data string) string {
	sum := sha1.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

func packageUpload(name, content string) application.PackageUpload {
	return application.PackageUpload{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}
