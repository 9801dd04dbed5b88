package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	byHash map[string]*APIKeyInfo
	err    error
}

func (m *mockRepo) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	info, ok := m.byHash[hash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return info, nil
}

var pepper = []byte("test-pepper")

func newRepo(key string, scopes ...string) *mockRepo {
	h := HashKey(pepper, key)
	return &mockRepo{byHash: map[string]*APIKeyInfo{
		h: {ID: "k1", KeyHash: h, Name: "ops", Scopes: scopes},
	}}
}

func TestHashKey(t *testing.T) {
	h := HashKey(pepper, "secret")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashKey(pepper, "secret"))
	assert.NotEqual(t, h, HashKey([]byte("other"), "secret"))
}

func TestAuthenticator(t *testing.T) {
	tests := []struct {
		name    string
		repo    *mockRepo
		key     string
		scope   string
		wantErr error
	}{
		{name: "valid admin key", repo: newRepo("secret", ScopeAdmin), key: "secret", scope: ScopeAdmin},
		{name: "no scope required", repo: newRepo("secret"), key: "secret"},
		{name: "empty key", repo: newRepo("secret", ScopeAdmin), key: "", scope: ScopeAdmin, wantErr: ErrUnauthorized},
		{name: "unknown key", repo: newRepo("secret", ScopeAdmin), key: "guess", scope: ScopeAdmin, wantErr: ErrUnauthorized},
		{name: "missing scope", repo: newRepo("secret", "read"), key: "secret", scope: ScopeAdmin, wantErr: ErrForbidden},
		{name: "repository failure", repo: &mockRepo{err: errors.New("db down")}, key: "secret", wantErr: ErrUnauthorized},
		{
			name: "row hash mismatch",
			repo: &mockRepo{byHash: map[string]*APIKeyInfo{
				HashKey(pepper, "secret"): {KeyHash: HashKey(pepper, "other"), Scopes: []string{ScopeAdmin}},
			}},
			key:     "secret",
			wantErr: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(tt.repo, pepper)
			info, err := a.Authenticate(context.Background(), tt.key, tt.scope)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, info)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "k1", info.ID)
		})
	}
}
