package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// userKey is the Locals key of the authenticated user
const userKey = "user"

// TokenStore issues bearer tokens for the demo login
type TokenStore struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	tokens map[string]token
}

type token struct {
	user    string
	expires time.Time
}

// NewTokenStore creates a store whose tokens expire after ttl
func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]token),
	}
}

// Issue returns a new token for user
func (m *TokenStore) Issue(user string) (string, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := uuid.NewString()
	expires := m.now().Add(m.ttl)
	m.tokens[t] = token{user: user, expires: expires}
	return t, expires
}

// Resolve returns the user of a valid token. Expired tokens are dropped.
func (m *TokenStore) Resolve(t string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[t]
	if !ok {
		return "", false
	}
	if m.now().After(tok.expires) {
		delete(m.tokens, t)
		return "", false
	}
	return tok.user, true
}

// Revoke invalidates a token
func (m *TokenStore) Revoke(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, t)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// login checks the demo credentials and issues a token
func (s *Server) login(c fiber.Ctx) error {
	var req loginRequest
	if err := decode(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	if req.Login == "" || req.Password == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "login and password required"})
	}

	cfg := s.session.Config().Server
	if req.Login != cfg.DemoUser || req.Password != cfg.DemoPassword {
		s.log.Info("login rejected", "login", req.Login)
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	t, expires := s.tokens.Issue(req.Login)
	return c.JSON(fiber.Map{
		"token":     t,
		"expiresAt": expires,
		"user":      fiber.Map{"login": req.Login},
	})
}

func (s *Server) logout(c fiber.Ctx) error {
	if t, ok := bearer(c); ok {
		s.tokens.Revoke(t)
	}
	return c.SendStatus(http.StatusNoContent)
}

func bearer(c fiber.Ctx) (string, bool) {
	auth := c.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(auth, "Bearer "), true
}

// requireAuth rejects requests without a valid bearer token
func (s *Server) requireAuth(c fiber.Ctx) error {
	t, ok := bearer(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	user, ok := s.tokens.Resolve(t)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	c.Locals(userKey, user)
	return c.Next()
}
