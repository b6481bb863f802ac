package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "inspector-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{name: "500 transient", status: 500, body: "oops", want: KindTransient},
		{name: "503 transient", status: 503, want: KindTransient},
		{name: "429 transient", status: 429, want: KindTransient},
		{name: "408 transient", status: 408, want: KindTransient},
		{name: "422 permanent", status: 422, body: "validation failed", want: KindPermanent},
		{name: "404 permanent", status: 404, want: KindPermanent},
		{name: "401 expired", status: 401, body: `{"error":"token_expired"}`, want: KindAuthExpired},
		{name: "401 plain is permanent", status: 401, body: `{"error":"bad credentials"}`, want: KindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyResponse(tt.status, []byte(tt.body))
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.want == KindTransient, err.Retryable())
		})
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, TokenExpired(signedToken(t, now.Add(-time.Minute)), now))
	assert.False(t, TokenExpired(signedToken(t, now.Add(time.Hour)), now))
	// garbage and claim-less tokens are left for the server to reject
	assert.False(t, TokenExpired("not-a-jwt", now))
}

func TestDo_SendsBearerAndPayload(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))

	var gotAuth, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken(token))
	err := c.Do(context.Background(), http.MethodPut, "/audits/a1/progress", json.RawMessage(`{"q1":"yes"}`))
	require.NoError(t, err)

	assert.Equal(t, "Bearer "+token, gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"q1":"yes"}`, gotBody)
}

func TestDo_TransportErrorIsTransient(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", StaticToken(""), WithTimeout(200*time.Millisecond))

	err := c.Do(context.Background(), http.MethodPost, "/audits", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransient, apiErr.Kind)
}

func TestDo_Expired401InvokesAuthHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"token expired"}`))
	}))
	defer srv.Close()

	invalidated := false
	c := NewClient(srv.URL, StaticToken(signedToken(t, time.Now().Add(time.Hour))),
		WithAuthExpiredHandler(func(context.Context) { invalidated = true }))

	err := c.Do(context.Background(), http.MethodPost, "/audits/a1/submit", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindAuthExpired, apiErr.Kind)
	assert.True(t, invalidated)
}

func TestDo_LocallyExpiredTokenShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	invalidated := false
	c := NewClient(srv.URL, StaticToken(signedToken(t, time.Now().Add(-time.Minute))),
		WithAuthExpiredHandler(func(context.Context) { invalidated = true }))

	err := c.Do(context.Background(), http.MethodPost, "/audits", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindAuthExpired, apiErr.Kind)
	assert.True(t, invalidated)
	assert.Equal(t, 0, calls, "no network call for a token known to be expired")
}

func TestGet_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audits/a1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"a1","status":"in_progress"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken(""))

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, c.GetAudit(context.Background(), "a1", &out))
	assert.Equal(t, "a1", out.ID)
	assert.Equal(t, "in_progress", out.Status)
}

func TestUploadToPresignedURL(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("http://unused", StaticToken(""))
	err := c.UploadToPresignedURL(context.Background(), srv.URL+"/bucket/photo.jpg", []byte("jpegbytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", gotContentType)
}

func TestAuditEndpoint(t *testing.T) {
	assert.Equal(t, "/audits/a1", AuditEndpoint("a1"))
	assert.Equal(t, "/audits/a1/progress", AuditEndpoint("a1", "progress"))
	assert.Equal(t, "/audits/a%2Fb", AuditEndpoint("a/b"))
}
