// Package authproxy mounts a standard http.Handler behind echo. Requests
// arrive under the public auth prefix and are rewritten to the prefix the
// handler serves.
package authproxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/zap"
)

const EmailNotVerifiedCode = "EMAIL_NOT_VERIFIED"

type Proxy struct {
	handler    http.Handler
	publicPath string
	basePath   string
	logger     *logging.Service
}

func New(handler http.Handler, publicPath, basePath string, logger *logging.Service) *Proxy {
	return &Proxy{
		handler:    handler,
		publicPath: strings.TrimSuffix(publicPath, "/"),
		basePath:   strings.TrimSuffix(basePath, "/"),
		logger:     logger,
	}
}

// Handle is the echo handler that forwards the request and writes back the
// handler's response.
func (p *Proxy) Handle(c echo.Context) error {
	req, err := p.ToStandardRequest(c)
	if err != nil {
		p.logger.Error("failed to translate auth request", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	resp := Invoke(p.handler, req)
	if err := Enrich(req, resp); err != nil {
		p.logger.Warn("failed to enrich auth response", zap.Error(err))
	}
	return FromStandardResponse(c, resp)
}

// ToStandardRequest builds the request the handler sees: same method, query,
// headers and body, path moved from the public prefix to the base path, and
// the caller's context so a client disconnect cancels the work.
func (p *Proxy) ToStandardRequest(c echo.Context) (*http.Request, error) {
	src := c.Request()

	u := *src.URL
	u.Scheme = c.Scheme()
	u.Host = src.Host
	u.Path = p.rewritePath(src.URL.Path)
	u.RawPath = ""

	var body io.Reader = http.NoBody
	if src.Method != http.MethodGet && src.Method != http.MethodHead && src.Body != nil {
		data, err := io.ReadAll(src.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		_ = src.Body.Close()
		if len(data) > 0 {
			body = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequestWithContext(src.Context(), src.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header = src.Header.Clone()
	req.Header.Del("Content-Length")
	req.Header.Set("X-Real-IP", c.RealIP())
	req.Host = src.Host
	req.RemoteAddr = src.RemoteAddr

	return req, nil
}

func (p *Proxy) rewritePath(path string) string {
	if p.publicPath == "" || p.publicPath == p.basePath {
		return path
	}
	if path == p.publicPath || strings.HasPrefix(path, p.publicPath+"/") {
		return p.basePath + strings.TrimPrefix(path, p.publicPath)
	}
	return path
}

// Invoke runs handler against an in-memory response and returns it as a
// client-side response.
func Invoke(handler http.Handler, req *http.Request) *http.Response {
	w := newBufferedWriter()
	handler.ServeHTTP(w, req)

	status := w.status
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        w.header,
		Body:          io.NopCloser(bytes.NewReader(w.body.Bytes())),
		ContentLength: int64(w.body.Len()),
		Request:       req,
	}
}

// Enrich tags the sign-in rejection for unverified accounts with a stable
// machine-readable code. Other responses, and non-JSON bodies, are left as is.
func Enrich(req *http.Request, resp *http.Response) error {
	if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/sign-in/email") || resp.StatusCode != http.StatusForbidden {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))

	if !strings.Contains(strings.ToLower(string(data)), "email not verified") {
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil || payload == nil {
		return nil
	}
	payload["code"] = EmailNotVerifiedCode

	enriched, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp.Body = io.NopCloser(bytes.NewReader(enriched))
	resp.ContentLength = int64(len(enriched))
	return nil
}

// FromStandardResponse writes resp through echo. Every header value is kept,
// so multiple Set-Cookie lines survive. Content-Length is dropped because
// the forwarded body may differ from what the handler declared.
func FromStandardResponse(c echo.Context, resp *http.Response) error {
	defer resp.Body.Close()

	header := c.Response().Header()
	for key, values := range resp.Header {
		if http.CanonicalHeaderKey(key) == "Content-Length" {
			continue
		}
		for _, value := range values {
			header.Add(key, value)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)
	_, err := io.Copy(c.Response(), resp.Body)
	return err
}

type bufferedWriter struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (w *bufferedWriter) Header() http.Header {
	return w.header
}

func (w *bufferedWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}
