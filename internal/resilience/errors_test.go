package resilience

import (
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"wrapped transient", eris.Wrap(NewTransientError(eris.New("429"), 429), "saby: navigate"), true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"timeout message", eris.New("telegram: do request: i/o timeout"), true},
		{"dns message", eris.New("dial tcp: lookup saby.ru: no such host"), true},
		{"navigation timeout", eris.New("browser: navigation timeout on page load"), true},
		{"permanent", eris.New("tariff block not found"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientErrorUnwraps(t *testing.T) {
	inner := eris.New("bad gateway")
	te := NewTransientError(inner, 502)

	assert.Equal(t, "bad gateway", te.Error())
	assert.True(t, eris.Is(te, inner))
	assert.Equal(t, 502, te.StatusCode)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 201, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
