// Package telegramauth validates Telegram Mini App init data.
package telegramauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/eventpulse/internal/dependencies/clock"
)

// ErrUnauthorized is returned for every validation failure. Callers must
// not learn which check failed.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the verified caller extracted from init data
type Identity struct {
	TelegramID string
	FirstName  string
	LastName   string
	Username   string
	PhotoURL   string
}

// Config holds configuration for the verifier
type Config struct {
	// Secret is the bot token shared with Telegram
	Secret string
	// MaxAge bounds how old (or how far in the future) auth_date may be
	MaxAge time.Duration
	// DevModeEnabled allows the unverified dev identity fallback
	DevModeEnabled bool
}

// DefaultConfig returns default verifier configuration
func DefaultConfig() Config {
	return Config{
		MaxAge: 24 * time.Hour,
	}
}

// Service verifies Telegram WebApp init data signatures
type Service struct {
	secret         string
	maxAge         time.Duration
	devModeEnabled bool
	clock          clock.Clock
}

// New creates a new verifier service
func New(cfg Config, clock clock.Clock) *Service {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultConfig().MaxAge
	}
	return &Service{
		secret:         cfg.Secret,
		maxAge:         cfg.MaxAge,
		devModeEnabled: cfg.DevModeEnabled,
		clock:          clock,
	}
}

type initDataUser struct {
	ID        json.Number `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Username  string      `json:"username"`
	PhotoURL  string      `json:"photo_url"`
}

// Verify checks the init data signature and freshness and returns the
// caller identity. Every failure maps to ErrUnauthorized.
func (s *Service) Verify(initData string) (*Identity, error) {
	if s.secret == "" || strings.TrimSpace(initData) == "" {
		return nil, ErrUnauthorized
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrUnauthorized
	}

	providedHash := values.Get("hash")
	if providedHash == "" {
		return nil, ErrUnauthorized
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	dataCheckString := strings.Join(pairs, "\n")

	secretKey := hmacSHA256([]byte("WebAppData"), []byte(s.secret))
	expected := hex.EncodeToString(hmacSHA256(secretKey, []byte(dataCheckString)))
	if !hmac.Equal([]byte(expected), []byte(providedHash)) {
		return nil, ErrUnauthorized
	}

	// Freshness only applies when auth_date is present and numeric; a
	// signed payload without it is still valid
	if authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64); err == nil && authDate > 0 {
		age := s.clock.Now().UnixMilli() - authDate*1000
		if age < 0 {
			age = -age
		}
		if age > s.maxAge.Milliseconds() {
			return nil, ErrUnauthorized
		}
	}

	var user initDataUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, ErrUnauthorized
	}
	telegramID := user.ID.String()
	if telegramID == "" {
		return nil, ErrUnauthorized
	}

	return &Identity{
		TelegramID: telegramID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Username:   user.Username,
		PhotoURL:   user.PhotoURL,
	}, nil
}

// ResolveDev returns an unverified identity for local development. It
// fails unless dev mode is explicitly enabled.
func (s *Service) ResolveDev(telegramID string) (*Identity, error) {
	if !s.devModeEnabled {
		return nil, ErrUnauthorized
	}
	telegramID = strings.TrimSpace(telegramID)
	if telegramID == "" {
		return nil, ErrUnauthorized
	}
	return &Identity{
		TelegramID: telegramID,
		FirstName:  fmt.Sprintf("Dev %s", telegramID),
	}, nil
}

func hmacSHA256(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
