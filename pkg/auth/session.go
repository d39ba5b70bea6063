// Package auth authenticates API callers by API key or operator session.
//
// Session keys should be 32 or 64 bytes for HMAC authentication and 16, 24,
// or 32 bytes for AES encryption. Generate them with:
//
//	openssl rand -base64 32
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const (
	sessionName      = "autoflex_session"
	sessionKeyPrefix = "autoflex:session:"

	// An operator session lasts one shift.
	sessionMaxAge = 8 * 60 * 60

	sessionFieldOperator   = "operator"
	sessionFieldLoggedInAt = "logged_in_at"
)

// ErrNoSessionOperator is returned when the request carries no operator session.
var ErrNoSessionOperator = errors.New("no operator session")

// RedisStore is a sessions.Store that keeps operator sessions in Redis
// hashes. The cookie carries only the signed and encrypted session id.
//
// Session values must use string keys and are stored as strings.
type RedisStore struct {
	client  *redis.Client
	codecs  []securecookie.Codec
	options sessions.Options
}

// NewSessionStore creates a Redis-backed operator session store.
// secureCookie restricts the cookie to HTTPS and is set in production.
func NewSessionStore(client *redis.Client, authKey, encryptionKey []byte, secureCookie bool) *RedisStore {
	return &RedisStore{
		client: client,
		codecs: securecookie.CodecsFromPairs(authKey, encryptionKey),
		options: sessions.Options{
			Path:     "/",
			MaxAge:   sessionMaxAge,
			HttpOnly: true,
			Secure:   secureCookie,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

// Get returns the request's session, cached per request by gorilla's registry.
func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing, tampered or
// expired cookie yields a fresh session; a Redis failure is returned.
func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := s.options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		return session, nil
	}

	fields, err := s.client.HGetAll(r.Context(), sessionKeyPrefix+id).Result()
	if err != nil {
		return session, fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return session, nil
	}
	session.ID = id
	for k, v := range fields {
		session.Values[k] = v
	}
	session.IsNew = false
	return session, nil
}

// Save writes the session hash and cookie. A negative MaxAge deletes both.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.client.Del(ctx, sessionKeyPrefix+session.ID).Err(); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
	}
	if err := s.write(ctx, session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *RedisStore) write(ctx context.Context, session *sessions.Session) error {
	fields := make(map[string]any, len(session.Values))
	for k, v := range session.Values {
		key, ok := k.(string)
		if !ok {
			return fmt.Errorf("session value key %v is not a string", k)
		}
		fields[key] = fmt.Sprint(v)
	}

	key := sessionKeyPrefix + session.ID
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// StartSession records username as the logged-in operator and saves the
// session, issuing its cookie on w.
func StartSession(w http.ResponseWriter, r *http.Request, store sessions.Store, username string) (Operator, error) {
	session, _ := store.Get(r, sessionName) // a bad cookie still yields a fresh session
	now := time.Now().UTC().Truncate(time.Second)
	session.Values[sessionFieldOperator] = username
	session.Values[sessionFieldLoggedInAt] = now.Format(time.RFC3339)
	if err := session.Save(r, w); err != nil {
		return Operator{}, err
	}
	return Operator{Name: username, Method: MethodSession, Since: now}, nil
}

// SessionOperator returns the operator recorded in the request's session.
func SessionOperator(r *http.Request, store sessions.Store) (Operator, error) {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return Operator{}, err
	}
	name, _ := session.Values[sessionFieldOperator].(string)
	if name == "" {
		return Operator{}, ErrNoSessionOperator
	}
	op := Operator{Name: name, Method: MethodSession}
	if raw, ok := session.Values[sessionFieldLoggedInAt].(string); ok {
		op.Since, _ = time.Parse(time.RFC3339, raw)
	}
	return op, nil
}

// EndSession deletes the request's session and expires its cookie.
func EndSession(w http.ResponseWriter, r *http.Request, store sessions.Store) error {
	session, _ := store.Get(r, sessionName)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
