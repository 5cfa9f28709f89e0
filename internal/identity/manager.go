// internal/identity/manager.go
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pulse/internal/domain"
	perrors "pulse/internal/errors"
	"pulse/internal/session"
	"pulse/internal/storage"
)

var ErrEmptyUserID = errors.New("user id is required")

// UserSource is the backend view of the signed-in user. *repository.Users satisfies it.
type UserSource interface {
	Me(ctx context.Context) (domain.User, error)
	RegisterDeviceToken(ctx context.Context, token string) error
}

// Manager owns who is signed in. The id lives in the credential store and is
// mirrored into the session that stamps outgoing requests.
type Manager struct {
	session     *session.Session
	credentials storage.CredentialStore
	users       UserSource

	mu   sync.RWMutex
	user *domain.User
}

func NewManager(sess *session.Session, credentials storage.CredentialStore, users UserSource) *Manager {
	return &Manager{
		session:     sess,
		credentials: credentials,
		users:       users,
	}
}

// Restore signs back in with a stored id and refreshes the profile. It
// reports false when none is stored.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	ok, err := m.RestoreSession()
	if !ok || err != nil {
		return ok, err
	}
	m.RefreshProfile(ctx)
	return true, nil
}

// RestoreSession loads the stored id into the session without contacting the backend.
func (m *Manager) RestoreSession() (bool, error) {
	userID, err := m.credentials.Read(storage.KeyUserID)
	if perrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	m.session.SetUserID(userID)
	logrus.WithField("user_id", userID).Debug("Restored stored user")
	return true, nil
}

func (m *Manager) SignIn(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrEmptyUserID
	}

	if err := m.credentials.Save(storage.KeyUserID, userID); err != nil {
		return err
	}
	m.session.SetUserID(userID)

	logrus.WithField("user_id", userID).Info("Signed in")
	m.RefreshProfile(ctx)
	return nil
}

// SignInAsGuest signs in with a locally minted guest id.
func (m *Manager) SignInAsGuest(ctx context.Context) (string, error) {
	guestID := domain.GuestIDPrefix + strings.ToUpper(uuid.New().String()[:8])
	if err := m.SignIn(ctx, guestID); err != nil {
		return "", err
	}
	return guestID, nil
}

// SignOut forgets every stored credential. Local state is cleared even when a
// delete fails; the failures are returned joined.
func (m *Manager) SignOut() error {
	var errs []error
	for _, key := range []string{storage.KeyUserID, storage.KeyAuthToken, storage.KeyDeviceToken} {
		if err := m.credentials.Delete(key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to delete credential")
			errs = append(errs, err)
		}
	}

	m.session.Clear()
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()

	logrus.Info("Signed out")
	return errors.Join(errs...)
}

// RefreshProfile fetches the current profile. Failures are logged and the
// previous profile is kept.
func (m *Manager) RefreshProfile(ctx context.Context) {
	user, err := m.users.Me(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to fetch user profile")
		return
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
}

// RegisterDeviceToken stores the token and sends it to the backend. Failures
// are logged only.
func (m *Manager) RegisterDeviceToken(ctx context.Context, token string) {
	if err := m.registerDeviceToken(ctx, token); err != nil {
		logrus.WithError(err).Warn("Failed to register device token")
	}
}

func (m *Manager) registerDeviceToken(ctx context.Context, token string) error {
	if err := m.credentials.Save(storage.KeyDeviceToken, token); err != nil {
		return err
	}
	if err := m.users.RegisterDeviceToken(ctx, token); err != nil {
		return fmt.Errorf("backend rejected device token: %w", err)
	}
	logrus.Debug("Device token registered")
	return nil
}

// CurrentUser returns the last fetched profile.
func (m *Manager) CurrentUser() (domain.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return domain.User{}, false
	}
	return *m.user, true
}

func (m *Manager) IsAuthenticated() bool {
	return m.session.IsAuthenticated()
}

// UserID returns the id stamped on requests.
func (m *Manager) UserID() (string, bool) {
	return m.session.UserID()
}
