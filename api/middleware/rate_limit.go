package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/supplyhub/marketplace-backend/api/responses"
	"github.com/supplyhub/marketplace-backend/pkg/config"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/redis"
)

// emailPeekLimit bounds how much of an auth body is buffered to find the email.
const emailPeekLimit = 16 << 10

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RateLimitRule caps attempts per client IP and per submitted email within
// one fixed window. A zero limit disables that dimension.
type RateLimitRule struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func LoginRule(cfg config.AuthRateLimitConfig) RateLimitRule {
	return RateLimitRule{Name: "login", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerEmail: cfg.LoginEmailLimit}
}

func RegisterRule(cfg config.AuthRateLimitConfig) RateLimitRule {
	return RateLimitRule{Name: "register", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerEmail: cfg.RegisterEmailLimit}
}

func (r RateLimitRule) active() bool {
	return r.Window > 0 && (r.PerIP > 0 || r.PerEmail > 0)
}

func (r RateLimitRule) key(dimension, value string) string {
	return redis.Key("rate_limit", r.Name, dimension, value)
}

// RateLimit throttles the auth endpoints. Client IPs come from RemoteAddr,
// which chi's RealIP middleware has already resolved from proxy headers.
// Emails are hashed before they become part of a key.
func RateLimit(rule RateLimitRule, store counterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !rule.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if rule.PerIP > 0 {
				if ip := remoteHost(r.RemoteAddr); ip != "" {
					if !admit(ctx, w, store, logg, rule, "ip", ip, rule.PerIP) {
						return
					}
				}
			}

			if rule.PerEmail > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				if email != "" && !admit(ctx, w, store, logg, rule, "email", digest(email), rule.PerEmail) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// admit counts one attempt and writes the rejection when the limit is hit.
func admit(ctx context.Context, w http.ResponseWriter, store counterStore, logg *logger.Logger, rule RateLimitRule, dimension, value string, limit int) bool {
	count, err := store.IncrWithTTL(ctx, rule.key(dimension, value), rule.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if count <= int64(limit) {
		return true
	}

	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"rule":      rule.Name,
			"dimension": dimension,
			"attempts":  count,
			"limit":     limit,
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(rule.Window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// peekEmail reads the JSON email field and restores the body for the handler.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, emailPeekLimit))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(payload.Email)), nil
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSpace(addr)
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
