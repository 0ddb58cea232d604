// Package testutil provides shared test helpers.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
)

// LocalRemoteAddr is a loopback peer address accepted by
// tsweb.AllowDebugAccess.
const LocalRemoteAddr = "127.0.0.1:12345"

// NewLocalRequest creates a test request that appears to come from
// localhost, so it reaches handlers mounted under /debug/.
func NewLocalRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = LocalRemoteAddr
	return req
}

// ServeLocal runs a localhost request through h and returns the recorded
// response.
func ServeLocal(h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, NewLocalRequest(method, path, body))
	return w
}
