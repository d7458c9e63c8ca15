package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	ghplatform "github.com/tilsley/repoproxy/apps/proxy/internal/platform/github"
	"github.com/tilsley/repoproxy/apps/proxy/internal/platform/httpmw"
	"github.com/tilsley/repoproxy/apps/proxy/internal/platform/validation"
	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
	"github.com/tilsley/repoproxy/apps/proxy/internal/repos/handler"
	"github.com/tilsley/repoproxy/apps/proxy/internal/repos/upstream"
	"github.com/tilsley/repoproxy/pkg/ghfake"
	"github.com/tilsley/repoproxy/pkg/logging"
	"github.com/tilsley/repoproxy/schemas"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ─── Stubs ────────────────────────────────────────────────────────────────────

type stubTokens struct {
	forOwnerFn func(ctx context.Context, owner string) (string, error)
}

func (s *stubTokens) ForOwner(ctx context.Context, owner string) (string, error) {
	if s.forOwnerFn != nil {
		return s.forOwnerFn(ctx, owner)
	}
	if owner == "nocreds" {
		return "", repos.MissingCredentialError{Owner: owner}
	}
	return "token-" + owner, nil
}

// ─── Fixture ──────────────────────────────────────────────────────────────────

func numbered(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString("line ")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString("\n")
	}
	return b.String()
}

// seed builds acme/widgets with two commits on main and an annotated v1 tag
// on the first.
func seed(t *testing.T) (fake *ghfake.Fake, first, second string) {
	t.Helper()
	fake = ghfake.New()
	fake.AddRepo("acme", "widgets", "main")
	var err error
	first, err = fake.Commit("acme", "widgets", "main", ghfake.Change{
		Message: "init",
		Author:  "Ada",
		Files: map[string]string{
			"README.md": "hello\n",
			"a.txt":     numbered(600),
			"logo.png":  "\x89PNG\x00\x01",
			"src/a.go":  "package a\n",
			"src/b.go":  "package b\n",
		},
	})
	require.NoError(t, err)
	second, err = fake.Commit("acme", "widgets", "main", ghfake.Change{
		Message: "add world\n\nlonger explanation",
		Author:  "Grace",
		Files:   map[string]string{"README.md": "hello\nworld\n"},
	})
	require.NoError(t, err)
	require.NoError(t, fake.Tag("acme", "widgets", "v1", first, true))
	return fake, first, second
}

// ─── Test server builder ──────────────────────────────────────────────────────

type testServer struct {
	router *gin.Engine
	fake   *ghfake.Fake
	tokens *stubTokens
	first  string
	second string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return build(t, false)
}

func newTestServerWithValidation(t *testing.T) *testServer {
	t.Helper()
	return build(t, true)
}

func build(t *testing.T, validate bool, opts ...handler.Option) *testServer {
	t.Helper()
	fake, first, second := seed(t)
	gh := httptest.NewServer(fake.Handler())
	t.Cleanup(gh.Close)

	ts := &testServer{fake: fake, tokens: &stubTokens{}, first: first, second: second}
	svc := repos.NewService(ts.tokens, func(token string) repos.Upstream {
		return upstream.New(ghplatform.NewTokenClient(token, gh.URL))
	})

	r := gin.New()
	r.Use(httpmw.CORS())
	if validate {
		mw, err := validation.New(schemas.OpenAPISpec)
		require.NoError(t, err)
		r.Use(mw)
	}
	handler.RegisterRoutes(r, svc, logging.NewTo(io.Discard, "text", "debug"), "", opts...)
	ts.router = r
	return ts
}

func (ts *testServer) do(method, path string) *httptest.ResponseRecorder {
	return serve(ts, httptest.NewRequest(method, path, http.NoBody))
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(http.MethodGet, path)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, out.Kind, w.Header().Get(handler.HeaderErrorKind))
	return out
}

func newRequest(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, http.NoBody)
}

func serve(ts *testServer, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}
