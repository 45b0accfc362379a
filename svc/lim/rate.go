package lim

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"pastebin/svc/util"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	maxLimiters  = 10000
	window       = time.Minute
	redisTimeout = 100 * time.Millisecond
)

// Counter is a shared fixed-window counter, normally Redis.
type Counter interface {
	RateLimit(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// Limiter throttles requests per client IP and endpoint. With a Counter the
// window is shared across processes; otherwise, or when the Counter fails,
// token buckets kept in a bounded LRU are used.
type Limiter struct {
	counter        Counter
	trustedProxies []string
	rpm            int
	burst          int
	local          *lru.Cache[string, *rate.Limiter]
}
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

func New(rpm, burst int, counter Counter, trustedProxies []string) (*Limiter, error) {
	if rpm <= 0 || burst <= 0 {
		return nil, errors.New("rpm and burst must be positive")
	}
	for _, proxy := range trustedProxies {
		if strings.Contains(proxy, "/") {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return nil, errors.Wrapf(err, "invalid CIDR in trustedProxies: %s", proxy)
			}
		} else if net.ParseIP(proxy) == nil {
			return nil, errors.Errorf("invalid IP in trustedProxies: %s", proxy)
		}
	}
	local, err := lru.New[string, *rate.Limiter](maxLimiters)
	if err != nil {
		return nil, errors.Wrap(err, "create limiter cache")
	}
	return &Limiter{
		counter:        counter,
		trustedProxies: trustedProxies,
		rpm:            rpm,
		burst:          burst,
		local:          local,
	}, nil
}
func (l *Limiter) CheckLimit(r *http.Request, endpoint string) *RateLimitResult {
	ip := GetRealIP(r, l.trustedProxies)
	key := endpoint + ":" + ip
	if l.counter != nil {
		ctx, cancel := context.WithTimeout(r.Context(), redisTimeout)
		defer cancel()
		usage, err := l.counter.RateLimit(ctx, key, l.rpm, window)
		if err == nil {
			remaining := l.rpm - usage
			if remaining < 0 {
				remaining = 0
			}
			return &RateLimitResult{
				Allowed:   usage <= l.rpm,
				Limit:     l.rpm,
				Remaining: remaining,
				Reset:     time.Now().Add(window),
			}
		}
		util.Warn().Err(err).Msg("shared rate limit unavailable, using local fallback")
	}
	return l.checkLocal(key)
}
func (l *Limiter) checkLocal(key string) *RateLimitResult {
	limiter, ok := l.local.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(l.rpm)/window.Seconds()), l.burst)
		// a concurrent request may have raced us to the slot; keep whichever landed first
		if prev, found, _ := l.local.PeekOrAdd(key, limiter); found {
			limiter = prev
		}
	}
	allowed := limiter.Allow()
	remaining := int(limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   allowed,
		Limit:     l.rpm,
		Remaining: remaining,
		Reset:     time.Now().Add(window),
	}
}

func GetRealIP(r *http.Request, trustedProxies []string) string {
	remoteIP := stripPort(r.RemoteAddr)
	if len(trustedProxies) == 0 || !isTrustedProxy(remoteIP, trustedProxies) {
		return remoteIP
	}
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return remoteIP
	}
	const maxIPsToParse = 100
	parsedCount := 0
	remaining := xff
	// walk right to left; the first hop we do not trust is the client
	for len(remaining) > 0 && parsedCount < maxIPsToParse {
		var ipStr string
		if lastComma := strings.LastIndexByte(remaining, ','); lastComma == -1 {
			ipStr = strings.TrimSpace(remaining)
			remaining = ""
		} else {
			ipStr = strings.TrimSpace(remaining[lastComma+1:])
			remaining = remaining[:lastComma]
		}
		if ipStr == "" {
			continue
		}
		parsedCount++
		if net.ParseIP(ipStr) == nil {
			util.Warn().Str("ip", util.RedactIP(ipStr)).Msg("invalid IP in X-Forwarded-For, skipping")
			continue
		}
		if !isTrustedProxy(ipStr, trustedProxies) {
			return ipStr
		}
	}
	return remoteIP
}
func isTrustedProxy(ip string, trustedProxies []string) bool {
	parsedIP := net.ParseIP(ip)
	for _, proxy := range trustedProxies {
		if ip == proxy {
			return true
		}
		if strings.Contains(proxy, "/") && parsedIP != nil {
			if _, subnet, err := net.ParseCIDR(proxy); err == nil && subnet.Contains(parsedIP) {
				return true
			}
		}
	}
	return false
}
func stripPort(ip string) string {
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
