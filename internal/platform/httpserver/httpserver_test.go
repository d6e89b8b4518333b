package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	handler := http.NewServeMux()

	srv := New(":0", handler)
	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, defaultReadHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Zero(t, srv.WriteTimeout)

	srv = New(":0", handler, WithTimeouts(10*time.Second, 20*time.Second))
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 20*time.Second, srv.WriteTimeout)
}
