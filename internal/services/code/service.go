// Package code signs and verifies encounter codes carried in QR payloads.
package code

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/eventpulse/internal/dependencies/clock"
)

// Prefix is prepended to every issued code. LegacyPrefix is the
// long-form prefix still found on printed badges from earlier events.
const (
	Prefix       = "pe:"
	LegacyPrefix = "pulseevents:"
)

// Errors
var (
	ErrMalformed          = errors.New("malformed code")
	ErrExpired            = errors.New("expired code")
	ErrBadSignature       = errors.New("invalid code signature")
	ErrUnsignedNotAllowed = errors.New("unsigned codes are not accepted")
	ErrNoSecret           = errors.New("no signing secret configured")
)

// Code is a verified encounter code
type Code struct {
	EventSlug string
	PublicID  string
	// IssuedAt is nil for unsigned codes
	IssuedAt *time.Time
}

// Config holds configuration for the code service
type Config struct {
	// Secret signs and verifies codes. Empty means signing is unavailable.
	Secret string
	// AllowUnsigned accepts the short unsigned arities and lets Issue
	// emit unsigned codes when no secret is set
	AllowUnsigned bool
	// MaxAge bounds how far an issue timestamp may sit from now
	MaxAge time.Duration
	// DefaultEventSlug is assumed for bare single-part codes
	DefaultEventSlug string
}

// DefaultConfig returns default code configuration
func DefaultConfig() Config {
	return Config{
		MaxAge:           7 * 24 * time.Hour,
		DefaultEventSlug: "default",
	}
}

// Service issues and verifies encounter codes
type Service struct {
	secret           string
	allowUnsigned    bool
	maxAge           time.Duration
	defaultEventSlug string
	clock            clock.Clock
}

// New creates a new code service
func New(cfg Config, clock clock.Clock) *Service {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultConfig().MaxAge
	}
	if cfg.DefaultEventSlug == "" {
		cfg.DefaultEventSlug = DefaultConfig().DefaultEventSlug
	}
	return &Service{
		secret:           cfg.Secret,
		allowUnsigned:    cfg.AllowUnsigned,
		maxAge:           cfg.MaxAge,
		defaultEventSlug: cfg.DefaultEventSlug,
		clock:            clock,
	}
}

// Issue produces a code for the given event and public id, along with its
// issue time. With a secret configured the code is signed and timestamped;
// without one it falls back to an unsigned payload, with a nil issue time,
// only if unsigned codes are allowed.
func (s *Service) Issue(eventSlug, publicID string) (string, *time.Time, error) {
	if s.secret == "" {
		if !s.allowUnsigned {
			return "", nil, ErrNoSecret
		}
		return fmt.Sprintf("%s%s:%s", Prefix, eventSlug, publicID), nil, nil
	}
	issuedAt := s.clock.Now()
	issuedAtMs := issuedAt.UnixMilli()
	sig := s.signature(eventSlug, publicID, issuedAtMs)
	raw := fmt.Sprintf("%s%s:%s:%d:%s", Prefix, eventSlug, publicID, issuedAtMs, sig)
	return raw, &issuedAt, nil
}

// Verify parses and validates a scanned code
func (s *Service) Verify(raw string) (*Code, error) {
	payload := strings.TrimSpace(raw)
	payload = strings.TrimPrefix(payload, LegacyPrefix)
	payload = strings.TrimPrefix(payload, Prefix)

	var parts []string
	for _, part := range strings.Split(payload, ":") {
		if part != "" {
			parts = append(parts, part)
		}
	}

	switch len(parts) {
	case 0:
		return nil, ErrMalformed
	case 1:
		if !s.allowUnsigned {
			return nil, ErrUnsignedNotAllowed
		}
		return &Code{EventSlug: s.defaultEventSlug, PublicID: parts[0]}, nil
	case 2:
		if !s.allowUnsigned {
			return nil, ErrUnsignedNotAllowed
		}
		return &Code{EventSlug: parts[0], PublicID: parts[1]}, nil
	case 3:
		return nil, ErrMalformed
	}

	eventSlug, publicID, issuedAtPart, sig := parts[0], parts[1], parts[2], parts[3]
	if s.secret == "" {
		// A signed code cannot be checked without the secret; this is
		// operator misconfiguration, not a forgery
		return nil, ErrNoSecret
	}

	issuedAt, err := strconv.ParseInt(issuedAtPart, 10, 64)
	if err != nil || issuedAt <= 0 {
		return nil, ErrMalformed
	}

	distance := s.clock.Now().UnixMilli() - issuedAt
	if distance < 0 {
		distance = -distance
	}
	if distance > s.maxAge.Milliseconds() {
		return nil, ErrExpired
	}

	expected := s.signature(eventSlug, publicID, issuedAt)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return nil, ErrBadSignature
	}

	ts := time.UnixMilli(issuedAt).UTC()
	return &Code{EventSlug: eventSlug, PublicID: publicID, IssuedAt: &ts}, nil
}

func (s *Service) signature(eventSlug, publicID string, issuedAt int64) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	fmt.Fprintf(mac, "%s:%s:%d", eventSlug, publicID, issuedAt)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
