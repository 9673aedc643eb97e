// Package profile stores per-user preference metadata (tone, locale,
// persona, mode) as a Redis hash. Profiles are last-write-wins per field,
// created on first interaction, and never deleted automatically.
package profile

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
)

// Known profile fields. Unknown fields are still stored (the preference
// surface grows without redeploys), but values must pass validation.
const (
	FieldTone    = "tone"
	FieldLocale  = "locale"
	FieldPersona = "persona"
	FieldMode    = "mode"
)

const maxFieldLen = 256

// Profile is a user's preference map.
type Profile map[string]string

// Persona returns the persona field, falling back to mode, then empty.
func (p Profile) Persona() string {
	if v := p["persona"]; v != "" {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return strings.ToLower(strings.TrimSpace(p["mode"]))
}

// Store persists profiles in Redis.
type Store struct {
	client goredis.UniversalClient
	logger *slog.Logger
}

// NewStore creates a profile store on an existing Redis client.
func NewStore(client goredis.UniversalClient, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

func profileKey(userID string) string {
	return "user:" + userID + ":profile"
}

// Get loads a user's profile. A missing profile is an empty map, not an
// error.
func (s *Store) Get(ctx context.Context, userID string) (Profile, error) {
	vals, err := s.client.HGetAll(ctx, profileKey(userID)).Result()
	if err != nil {
		return nil, pkgerrors.NewStoreError("profile.get", profileKey(userID), err)
	}
	return Profile(vals), nil
}

// Merge writes incoming preference fields over the stored profile,
// last-write-wins per field. Malformed fields are dropped with a warning
// rather than failing the request: a bad preference must never block an
// answer.
func (s *Store) Merge(ctx context.Context, userID string, prefs map[string]string) error {
	if len(prefs) == 0 {
		return nil
	}

	clean := make(map[string]string, len(prefs))
	for k, v := range prefs {
		if !validField(k, v) {
			s.logger.Warn("dropping malformed preference field",
				"user_id", userID, "field", k)
			continue
		}
		clean[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	if len(clean) == 0 {
		return nil
	}

	if err := s.client.HSet(ctx, profileKey(userID), clean).Err(); err != nil {
		return pkgerrors.NewStoreError("profile.merge", profileKey(userID), err)
	}
	return nil
}

func validField(k, v string) bool {
	k = strings.TrimSpace(k)
	v = strings.TrimSpace(v)
	if k == "" || v == "" {
		return false
	}
	if len(k) > maxFieldLen || len(v) > maxFieldLen {
		return false
	}
	if !utf8.ValidString(k) || !utf8.ValidString(v) {
		return false
	}
	for _, c := range k {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}
