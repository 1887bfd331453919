// Package session owns the authentication credential pair: it is the only
// component allowed to mutate it. Readers consume the pair through
// AuthHeader; the HTTP client repairs an expired access token through
// Refresh.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/safenetai/safebank-client/internal/client/api"
	"github.com/safenetai/safebank-client/internal/client/credstore"
	"github.com/safenetai/safebank-client/internal/client/models"
	"github.com/safenetai/safebank-client/internal/common"
	"github.com/safenetai/safebank-client/internal/dbx"
	"github.com/safenetai/safebank-client/internal/logging"
)

// AuthAPI is the unauthenticated slice of the server API the session manager
// needs. *api.Transport satisfies it.
type AuthAPI interface {
	Login(ctx context.Context, identifier, secret string) (*api.AuthPayload, error)
	VerifyChallenge(ctx context.Context, identifier, code string) (*api.AuthPayload, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Manager holds the in-memory session state and keeps it in step with the
// durable credential store. Access and refresh tokens are issued and cleared
// together; no partial pair is ever persisted.
type Manager struct {
	api AuthAPI
	db  *sql.DB
	log logging.Logger

	sf singleflight.Group

	mu           sync.RWMutex
	user         *models.User
	accessToken  string
	refreshToken string
}

func NewManager(authAPI AuthAPI, db *sql.DB, log logging.Logger) *Manager {
	return &Manager{api: authAPI, db: db, log: log}
}

func (m *Manager) repo() credstore.Repository {
	return credstore.NewSQLiteRepository(m.db)
}

// Restore rehydrates the session from the credential store at process start.
// A partial pair (one token without the other) is treated as corrupt and
// cleared rather than used.
func (m *Manager) Restore(ctx context.Context) error {
	repo := m.repo()

	access, err := repo.Get(ctx, credstore.KeyAccessToken)
	if err != nil {
		return err
	}
	refresh, err := repo.Get(ctx, credstore.KeyRefreshToken)
	if err != nil {
		return err
	}

	if len(access) == 0 || len(refresh) == 0 {
		if len(access) != 0 || len(refresh) != 0 {
			m.log.Warn(ctx, "partial credential pair found, clearing")
			return m.Logout(ctx)
		}
		return nil
	}

	var user *models.User
	if data, err := repo.Get(ctx, credstore.KeyUserData); err == nil && len(data) != 0 {
		user = &models.User{}
		if err := json.Unmarshal(data, user); err != nil {
			user = nil
		}
	}

	m.mu.Lock()
	m.accessToken = string(access)
	m.refreshToken = string(refresh)
	m.user = user
	m.mu.Unlock()

	m.log.Info(ctx, "session restored")
	return nil
}

// Login authenticates with the server and persists the returned credential
// pair and profile. On failure no partial state is persisted.
func (m *Manager) Login(ctx context.Context, identifier, secret string) (*models.User, error) {
	payload, err := m.api.Login(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	if err := m.adopt(ctx, payload); err != nil {
		return nil, err
	}
	m.log.Info(ctx, "logged in", "user", payload.User.Email)
	return m.User(), nil
}

// VerifyChallenge completes an account-activation OTP login. Same persistence
// contract as Login.
func (m *Manager) VerifyChallenge(ctx context.Context, identifier, code string) (*models.User, error) {
	payload, err := m.api.VerifyChallenge(ctx, identifier, code)
	if err != nil {
		return nil, err
	}
	if err := m.adopt(ctx, payload); err != nil {
		return nil, err
	}
	m.log.Info(ctx, "account challenge verified", "user", payload.User.Email)
	return m.User(), nil
}

// adopt persists the credential pair and profile in a single transaction and
// then swaps the in-memory state.
func (m *Manager) adopt(ctx context.Context, payload *api.AuthPayload) error {
	userData, err := json.Marshal(payload.User)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := credstore.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, credstore.KeyAccessToken, []byte(payload.AccessToken)); err != nil {
			return err
		}
		if err := repo.Set(ctx, credstore.KeyRefreshToken, []byte(payload.RefreshToken)); err != nil {
			return err
		}
		return repo.Set(ctx, credstore.KeyUserData, userData)
	})
	if err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	user := payload.User
	m.mu.Lock()
	m.accessToken = payload.AccessToken
	m.refreshToken = payload.RefreshToken
	m.user = &user
	m.mu.Unlock()
	return nil
}

// Logout clears the credential pair and the cached profile, both durably and
// in memory. Idempotent; requires no network call to succeed.
func (m *Manager) Logout(ctx context.Context) error {
	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := credstore.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, credstore.KeyAccessToken); err != nil {
			return err
		}
		if err := repo.Delete(ctx, credstore.KeyRefreshToken); err != nil {
			return err
		}
		return repo.Delete(ctx, credstore.KeyUserData)
	})
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	m.mu.Lock()
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	m.mu.Unlock()

	m.log.Info(ctx, "logged out")
	return nil
}

// Refresh exchanges the stored refresh token for a new access token,
// replacing only the access token in place. Concurrent callers share a
// single in-flight refresh. A rejected or absent refresh token forces a full
// logout before the failure is reported; transport failures leave the
// session untouched.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.sf.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.RLock()
	refreshToken := m.refreshToken
	m.mu.RUnlock()

	if refreshToken == "" {
		_ = m.Logout(ctx)
		return &api.AuthError{Message: "no refresh token"}
	}

	accessToken, err := m.api.Refresh(ctx, refreshToken)
	if err != nil {
		var authErr *api.AuthError
		if errors.As(err, &authErr) {
			m.log.Warn(ctx, "refresh rejected, logging out", "reason", authErr.Message)
			_ = m.Logout(ctx)
		}
		return err
	}

	if err := m.repo().Set(ctx, credstore.KeyAccessToken, []byte(accessToken)); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}

	m.mu.Lock()
	m.accessToken = accessToken
	m.mu.Unlock()

	m.log.Info(ctx, "access token refreshed")
	return nil
}

// AuthHeader returns the current access token formatted as a bearer header
// value, or "" when unauthenticated. Pure read.
func (m *Manager) AuthHeader() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.accessToken == "" {
		return ""
	}
	return common.BearerPrefix + m.accessToken
}

// IsAuthenticated reports whether a credential pair is currently held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken != ""
}

// User returns a copy of the cached profile, or nil when unauthenticated.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// UpdateUser replaces the cached profile, durably and in memory.
func (m *Manager) UpdateUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := m.repo().Set(ctx, credstore.KeyUserData, data); err != nil {
		return err
	}

	u := *user
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	return nil
}
