package lim

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	hits map[string]int
	err  error
}

func (f *fakeCounter) RateLimit(_ context.Context, key string, limit int, _ time.Duration) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.hits[key] > limit {
		return f.hits[key], nil
	}
	f.hits[key]++
	return f.hits[key], nil
}

func TestLocalLimiterBurst(t *testing.T) {
	l, err := New(60, 3, nil, nil)
	require.NoError(t, err)
	r := httptest.NewRequest("POST", "/paste", nil)
	r.RemoteAddr = "203.0.113.7:4000"

	for i := 0; i < 3; i++ {
		assert.True(t, l.CheckLimit(r, "create").Allowed, "request %d should pass", i)
	}
	assert.False(t, l.CheckLimit(r, "create").Allowed)

	// separate bucket per endpoint and per client
	assert.True(t, l.CheckLimit(r, "view").Allowed)
	other := httptest.NewRequest("POST", "/paste", nil)
	other.RemoteAddr = "203.0.113.8:4000"
	assert.True(t, l.CheckLimit(other, "create").Allowed)
}

func TestSharedCounter(t *testing.T) {
	counter := &fakeCounter{hits: map[string]int{}}
	l, err := New(2, 1, counter, nil)
	require.NoError(t, err)
	r := httptest.NewRequest("GET", "/paste/abc", nil)
	r.RemoteAddr = "198.51.100.1:1"

	first := l.CheckLimit(r, "view")
	assert.True(t, first.Allowed)
	assert.Equal(t, 2, first.Limit)
	assert.Equal(t, 1, first.Remaining)
	assert.True(t, l.CheckLimit(r, "view").Allowed)
	third := l.CheckLimit(r, "view")
	assert.False(t, third.Allowed)
	assert.Equal(t, 0, third.Remaining)
	assert.Equal(t, 3, counter.hits["view:198.51.100.1"])
}

func TestSharedCounterFailureFallsBackLocal(t *testing.T) {
	l, err := New(60, 1, &fakeCounter{err: errors.New("redis down")}, nil)
	require.NoError(t, err)
	r := httptest.NewRequest("GET", "/paste/abc", nil)
	r.RemoteAddr = "198.51.100.1:1"
	first := l.CheckLimit(r, "view")
	assert.True(t, first.Allowed)
	assert.Equal(t, 60, first.Limit, "limit reports requests per window on either backend")
	assert.False(t, l.CheckLimit(r, "view").Allowed)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(0, 1, nil, nil)
	assert.Error(t, err)
	_, err = New(1, 1, nil, []string{"not-an-ip"})
	assert.Error(t, err)
	_, err = New(1, 1, nil, []string{"10.0.0.0/33"})
	assert.Error(t, err)
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		xff     string
		trusted []string
		want    string
	}{
		{"no proxies configured", "1.2.3.4:80", "9.9.9.9", nil, "1.2.3.4"},
		{"untrusted peer ignores xff", "1.2.3.4:80", "9.9.9.9", []string{"10.0.0.1"}, "1.2.3.4"},
		{"trusted peer", "10.0.0.1:80", "9.9.9.9", []string{"10.0.0.1"}, "9.9.9.9"},
		{"trusted cidr chain", "10.0.0.1:80", "9.9.9.9, 10.0.0.7", []string{"10.0.0.0/8"}, "9.9.9.9"},
		{"garbage entry skipped", "10.0.0.1:80", "9.9.9.9, nonsense", []string{"10.0.0.0/8"}, "9.9.9.9"},
		{"all trusted", "10.0.0.1:80", "10.0.0.2", []string{"10.0.0.0/8"}, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, GetRealIP(r, tt.trusted))
		})
	}
}
