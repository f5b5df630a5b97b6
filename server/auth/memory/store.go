package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/cyp0633/calshare/server/auth"
	"github.com/cyp0633/calshare/server/storage"
	"golang.org/x/crypto/bcrypt"
)

// User represents a user in the memory store
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
}

// Store is an in-memory user registry. It authenticates Basic credentials
// (email + password) and serves as the identity directory.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*User // id -> user
	byEmail map[string]string
	cost    int
	logger  *slog.Logger
}

// New creates a new in-memory authentication store
func New(opts ...Option) *Store {
	s := &Store{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		cost:    bcrypt.DefaultCost,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCost sets the bcrypt cost used when hashing new passwords
func WithCost(cost int) Option {
	return func(s *Store) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddUser hashes password and registers the user
func (s *Store) AddUser(id, name, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.AddUserWithHash(id, name, email, hash)
}

// AddUserWithHash registers a user whose bcrypt hash is already known
func (s *Store) AddUserWithHash(id, name, email string, hash []byte) error {
	key := normalizeEmail(email)
	if id == "" || key == "" {
		return &auth.Error{Type: auth.ErrInvalidCredentials, Message: "user id and email are required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; exists {
		s.logger.Warn("failed to add user: id already exists", "user_id", id)
		return &auth.Error{Type: auth.ErrDuplicateUser, Message: fmt.Sprintf("user already exists: %s", id)}
	}
	if _, exists := s.byEmail[key]; exists {
		s.logger.Warn("failed to add user: email already registered", "email", key)
		return &auth.Error{Type: auth.ErrDuplicateUser, Message: fmt.Sprintf("email already registered: %s", key)}
	}

	s.users[id] = &User{ID: id, Name: name, Email: key, PasswordHash: hash}
	s.byEmail[key] = id

	s.logger.Info("user added successfully", "user_id", id, "email", key)
	return nil
}

// Authenticate implements auth.Authenticator
func (s *Store) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Principal, error) {
	s.mu.RLock()
	var user *User
	if id, ok := s.byEmail[normalizeEmail(creds.Username)]; ok {
		user = s.users[id]
	}
	s.mu.RUnlock()

	if user == nil {
		s.logger.Info("authentication failed: user not found", "username", creds.Username)
		return nil, &auth.Error{
			Type:    auth.ErrInvalidCredentials,
			Message: "invalid username or password",
		}
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		s.logger.Info("authentication failed: invalid password", "username", creds.Username)
		return nil, &auth.Error{
			Type:    auth.ErrInvalidCredentials,
			Message: "invalid username or password",
			Err:     err,
		}
	}

	s.logger.Debug("authentication successful", "user_id", user.ID)
	return &auth.Principal{ID: user.ID, Email: user.Email}, nil
}

// FindByID implements storage.Directory
func (s *Store) FindByID(_ context.Context, id string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return &storage.User{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

// FindByEmail implements storage.Directory. Emails compare case-insensitively.
func (s *Store) FindByEmail(ctx context.Context, email string) (*storage.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[normalizeEmail(email)]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("user with email %s: %w", email, storage.ErrNotFound)
	}
	return s.FindByID(ctx, id)
}
