package credentials

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"appointment-scheduler/internal/model"
)

// ErrCredentialMissing means a refresh was needed but no refresh token is stored.
var ErrCredentialMissing = errors.New("credentials: no refresh token stored")

// RefreshMargin is how close to expiry a token may get before it is refreshed.
const RefreshMargin = 5 * time.Minute

type Store interface {
	// GetCredential returns nil, nil when nothing is stored for the pair.
	GetCredential(ctx context.Context, userID, provider string) (*model.OAuthCredential, error)
	// UpsertCredential keeps the stored refresh token when pair.RefreshToken is empty.
	UpsertCredential(ctx context.Context, userID, provider string, pair model.TokenPair) (*model.OAuthCredential, error)
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

// Vault keeps one OAuth credential per (user, provider) and refreshes it.
// Refreshes for the same pair never run concurrently.
type Vault struct {
	store     Store
	refresher Refresher
	now       func() time.Time
	logger    *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Vault)

func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(v *Vault) { v.logger = l }
}

func NewVault(store Store, refresher Refresher, opts ...Option) *Vault {
	v := &Vault{
		store:     store,
		refresher: refresher,
		now:       time.Now,
		logger:    log.Default(),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Vault) Get(ctx context.Context, userID, provider string) (*model.OAuthCredential, error) {
	return v.store.GetCredential(ctx, userID, provider)
}

func (v *Vault) Store(ctx context.Context, userID, provider string, pair model.TokenPair) (*model.OAuthCredential, error) {
	lock := v.lock(model.CredentialKey(userID, provider))
	lock.Lock()
	defer lock.Unlock()
	return v.store.UpsertCredential(ctx, userID, provider, pair)
}

// EnsureFresh returns cred unchanged unless it expires within RefreshMargin, in
// which case it is refreshed and persisted first.
func (v *Vault) EnsureFresh(ctx context.Context, cred *model.OAuthCredential) (*model.OAuthCredential, error) {
	if !v.expiring(cred) {
		return cred, nil
	}

	lock := v.lock(cred.Key())
	lock.Lock()
	defer lock.Unlock()

	current, err := v.current(ctx, cred)
	if err != nil {
		return nil, err
	}
	if !v.expiring(current) {
		return current, nil
	}
	return v.refreshLocked(ctx, current)
}

// ForceRefresh refreshes cred regardless of its expiry. It is the recovery step
// after the provider rejected cred's access token. If another caller already
// replaced that token, the stored credential is returned as is.
func (v *Vault) ForceRefresh(ctx context.Context, cred *model.OAuthCredential) (*model.OAuthCredential, error) {
	lock := v.lock(cred.Key())
	lock.Lock()
	defer lock.Unlock()

	current, err := v.current(ctx, cred)
	if err != nil {
		return nil, err
	}
	if current.AccessToken != cred.AccessToken && !v.expiring(current) {
		return current, nil
	}
	return v.refreshLocked(ctx, current)
}

func (v *Vault) current(ctx context.Context, cred *model.OAuthCredential) (*model.OAuthCredential, error) {
	stored, err := v.store.GetCredential(ctx, cred.UserID, cred.Provider)
	if err != nil {
		return nil, fmt.Errorf("load credential %s: %w", cred.Key(), err)
	}
	if stored == nil {
		return cred, nil
	}
	return stored, nil
}

func (v *Vault) refreshLocked(ctx context.Context, cred *model.OAuthCredential) (*model.OAuthCredential, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("refresh %s: %w", cred.Key(), ErrCredentialMissing)
	}
	pair, err := v.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", cred.Key(), err)
	}
	updated, err := v.store.UpsertCredential(ctx, cred.UserID, cred.Provider, pair)
	if err != nil {
		return nil, fmt.Errorf("persist refreshed %s: %w", cred.Key(), err)
	}
	v.logger.Printf("credentials: refreshed %s, expires %s", cred.Key(), updated.ExpiresAt.Format(time.RFC3339))
	return updated, nil
}

// expiring treats a zero expiry as a token that never expires.
func (v *Vault) expiring(cred *model.OAuthCredential) bool {
	if cred.ExpiresAt.IsZero() {
		return false
	}
	return !v.now().Add(RefreshMargin).Before(cred.ExpiresAt)
}

func (v *Vault) lock(key string) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()
	if l, ok := v.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	v.locks[key] = l
	return l
}
