package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classpulse/classpulse/internal/shared"
)

type stubRepo struct {
	accounts map[string]*Account
	sessions map[string]time.Time
}

func newStubRepo() *stubRepo {
	return &stubRepo{accounts: make(map[string]*Account), sessions: make(map[string]time.Time)}
}

func (r *stubRepo) FindByEmail(_ context.Context, email string) (*Account, error) {
	acc, ok := r.accounts[email]
	if !ok {
		return nil, errors.New("no rows")
	}
	return acc, nil
}

func (r *stubRepo) CreateSession(_ context.Context, id string, _ int64, expiresAt time.Time, _, _ string) error {
	r.sessions[id] = expiresAt
	return nil
}

func (r *stubRepo) DeleteSession(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func (r *stubRepo) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	var removed int64
	for id, expiresAt := range r.sessions {
		if expiresAt.Before(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func seedAccount(t *testing.T, repo *stubRepo, email, password string, active bool) *Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	acc := &Account{ID: int64(len(repo.accounts) + 1), Email: email, PasswordHash: string(hash), IsActive: active}
	repo.accounts[email] = acc
	return acc
}

func TestAuthenticate(t *testing.T) {
	repo := newStubRepo()
	seedAccount(t, repo, "head@northgate.example", "correct-horse", true)
	seedAccount(t, repo, "retired@northgate.example", "correct-horse", false)
	svc := NewService(repo)

	acc, err := svc.Authenticate(context.Background(), "head@northgate.example", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "head@northgate.example", acc.Email)

	_, err = svc.Authenticate(context.Background(), "head@northgate.example", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@northgate.example", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "retired@northgate.example", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSweepSessions(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)
	now := time.Now().UTC()

	require.NoError(t, svc.RegisterSession(context.Background(), "stale", 1, now.Add(-time.Hour), "", ""))
	require.NoError(t, svc.RegisterSession(context.Background(), "fresh", 1, now.Add(time.Hour), "", ""))

	removed, err := svc.SweepSessions(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Contains(t, repo.sessions, "fresh")
	assert.NotContains(t, repo.sessions, "stale")
}
