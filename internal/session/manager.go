// Package session carries per-browser review state in a signed, encrypted cookie.
package session

import (
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const contextKey = "review.session"

// Options configures the session cookie.
type Options struct {
	CookieName string
	Secret     string
	MaxAge     int // seconds
	Secure     bool
}

// Manager encodes State into cookies and back.
type Manager struct {
	codec  *securecookie.SecureCookie
	opts   Options
	logger *zap.Logger
}

// msgpackSerializer plugs msgpack into securecookie.
type msgpackSerializer struct{}

func (msgpackSerializer) Serialize(src interface{}) ([]byte, error) {
	return msgpack.Marshal(src)
}

func (msgpackSerializer) Deserialize(src []byte, dst interface{}) error {
	return msgpack.Unmarshal(src, dst)
}

// NewManager creates a session manager. An empty secret yields random keys,
// so sessions do not survive a restart.
func NewManager(opts Options, logger *zap.Logger) (*Manager, error) {
	if opts.CookieName == "" {
		return nil, fmt.Errorf("session cookie name is required")
	}

	var hashKey, blockKey []byte
	if opts.Secret == "" {
		logger.Warn("no session secret configured, using ephemeral keys")
		hashKey = securecookie.GenerateRandomKey(32)
		blockKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, fmt.Errorf("generating session keys")
		}
	} else {
		h := sha256.Sum256([]byte("hash:" + opts.Secret))
		b := sha256.Sum256([]byte("block:" + opts.Secret))
		hashKey, blockKey = h[:], b[:]
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(msgpackSerializer{})
	codec.MaxAge(opts.MaxAge)

	return &Manager{codec: codec, opts: opts, logger: logger}, nil
}

// Middleware decodes the session cookie and stores the State on the context.
// Undecodable cookies start a fresh session.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(contextKey, m.load(c))
			return next(c)
		}
	}
}

func (m *Manager) load(c echo.Context) *State {
	st := &State{}
	cookie, err := c.Cookie(m.opts.CookieName)
	if err != nil {
		return st
	}
	if err := m.codec.Decode(m.opts.CookieName, cookie.Value, st); err != nil {
		m.logger.Debug("discarding session cookie", zap.Error(err))
		return &State{}
	}
	return st
}

// FromContext returns the request's State. It never returns nil.
func FromContext(c echo.Context) *State {
	if st, ok := c.Get(contextKey).(*State); ok && st != nil {
		return st
	}
	st := &State{}
	c.Set(contextKey, st)
	return st
}

// Save writes the State back to the response cookie.
func (m *Manager) Save(c echo.Context, st *State) error {
	value, err := m.codec.Encode(m.opts.CookieName, st)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	c.SetCookie(&http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   m.opts.MaxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
