package authproxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/barae/services/logging"
)

func newProxy(handler http.Handler) *Proxy {
	return New(handler, "/v1/auth", "/api/v1/auth", logging.NewNop())
}

func TestProxy_ToStandardRequest(t *testing.T) {
	e := echo.New()
	p := newProxy(http.NotFoundHandler())

	src := httptest.NewRequest(http.MethodPost, "/v1/auth/sign-in/email?y=1", strings.NewReader(`{"email":"a@b.c"}`))
	src.Header.Set("Content-Type", "application/json")
	src.Header.Set("Content-Length", "17")
	src.Header.Add("Cookie", "barae_session=abc")
	c := e.NewContext(src, httptest.NewRecorder())

	req, err := p.ToStandardRequest(c)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/auth/sign-in/email", req.URL.Path)
	assert.Equal(t, "y=1", req.URL.RawQuery)
	assert.Equal(t, "example.com", req.URL.Host)
	assert.Empty(t, req.Header.Get("Content-Length"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "barae_session=abc", req.Header.Get("Cookie"))
	assert.Equal(t, "192.0.2.1", req.Header.Get("X-Real-IP"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@b.c"}`, string(body))
}

func TestProxy_ToStandardRequest_GetHasNoBody(t *testing.T) {
	e := echo.New()
	p := newProxy(http.NotFoundHandler())

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/auth/get-session", nil), httptest.NewRecorder())

	req, err := p.ToStandardRequest(c)
	require.NoError(t, err)
	assert.Equal(t, http.NoBody, req.Body)
	assert.Equal(t, "/api/v1/auth/get-session", req.URL.Path)
}

func TestProxy_ToStandardRequest_PropagatesCancellation(t *testing.T) {
	e := echo.New()
	p := newProxy(http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	src := httptest.NewRequest(http.MethodGet, "/v1/auth/ok", nil).WithContext(ctx)
	c := e.NewContext(src, httptest.NewRecorder())

	req, err := p.ToStandardRequest(c)
	require.NoError(t, err)

	cancel()
	assert.ErrorIs(t, req.Context().Err(), context.Canceled)
}

func TestProxy_RewritePath(t *testing.T) {
	p := newProxy(http.NotFoundHandler())

	tests := []struct {
		in, out string
	}{
		{"/v1/auth", "/api/v1/auth"},
		{"/v1/auth/sign-out", "/api/v1/auth/sign-out"},
		{"/v1/authority", "/v1/authority"},
		{"/health", "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.out, p.rewritePath(tt.in))
		})
	}
}

func TestInvoke(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "a", Value: "1"})
		http.SetCookie(w, &http.Cookie{Name: "b", Value: "2"})
		w.Header().Set("Content-Length", "999")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/x", nil)
	resp := Invoke(handler, req)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "201 Created", resp.Status)
	assert.Len(t, resp.Header.Values("Set-Cookie"), 2)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "created", string(body))
	assert.Equal(t, int64(7), resp.ContentLength)
}

func TestInvoke_ImplicitOK(t *testing.T) {
	resp := Invoke(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	}), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEnrich(t *testing.T) {
	respond := func(status int, body string) *http.Response {
		return &http.Response{StatusCode: status, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(body))}
	}
	signIn := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-in/email", nil)

	read := func(t *testing.T, resp *http.Response) string {
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(data)
	}

	t.Run("adds code", func(t *testing.T) {
		resp := respond(http.StatusForbidden, `{"message":"Email not verified"}`)
		require.NoError(t, Enrich(signIn, resp))
		assert.JSONEq(t, `{"message":"Email not verified","code":"EMAIL_NOT_VERIFIED"}`, read(t, resp))
	})

	t.Run("case insensitive", func(t *testing.T) {
		resp := respond(http.StatusForbidden, `{"message":"EMAIL NOT VERIFIED"}`)
		require.NoError(t, Enrich(signIn, resp))
		assert.Contains(t, read(t, resp), EmailNotVerifiedCode)
	})

	t.Run("non-JSON body untouched", func(t *testing.T) {
		resp := respond(http.StatusForbidden, "email not verified")
		require.NoError(t, Enrich(signIn, resp))
		assert.Equal(t, "email not verified", read(t, resp))
	})

	t.Run("other status untouched", func(t *testing.T) {
		resp := respond(http.StatusUnauthorized, `{"message":"Email not verified"}`)
		require.NoError(t, Enrich(signIn, resp))
		assert.NotContains(t, read(t, resp), "code")
	})

	t.Run("other message untouched", func(t *testing.T) {
		resp := respond(http.StatusForbidden, `{"message":"Invalid origin"}`)
		require.NoError(t, Enrich(signIn, resp))
		assert.NotContains(t, read(t, resp), "code")
	})

	t.Run("other route untouched", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-up/email", nil)
		resp := respond(http.StatusForbidden, `{"message":"Email not verified"}`)
		require.NoError(t, Enrich(req, resp))
		assert.NotContains(t, read(t, resp), "code")
	})
}

func TestFromStandardResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	resp := &http.Response{
		StatusCode: http.StatusAccepted,
		Header: http.Header{
			"Set-Cookie":     {"a=1; Path=/", "b=2; Path=/"},
			"Content-Length": {"999"},
			"X-Custom":       {"yes"},
		},
		Body: io.NopCloser(strings.NewReader("payload")),
	}

	require.NoError(t, FromStandardResponse(c, resp))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"a=1; Path=/", "b=2; Path=/"}, rec.Header().Values("Set-Cookie"))
	assert.Empty(t, rec.Header().Get("Content-Length"))
	assert.Equal(t, "yes", rec.Header().Get("X-Custom"))
	assert.Equal(t, "payload", rec.Body.String())
}

func TestProxy_Handle(t *testing.T) {
	var seenPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Email not verified"}`))
	})

	e := echo.New()
	e.Any("/v1/auth/*", newProxy(handler).Handle)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/sign-in/email", strings.NewReader(`{}`)))

	assert.Equal(t, "/api/v1/auth/sign-in/email", seenPath)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Email not verified","code":"EMAIL_NOT_VERIFIED"}`, rec.Body.String())
}
