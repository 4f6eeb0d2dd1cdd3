package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPLoader_ResolvesSameOriginFramesOnly(t *testing.T) {
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>foreign</body></html>"))
	}))
	defer foreign.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apps":
			_, _ = w.Write([]byte(`<html><body>
				<iframe src="/frame"></iframe>
				<iframe src="` + foreign.URL + `/frame"></iframe>
				<iframe src="/missing"></iframe>
			</body></html>`))
		case "/frame":
			_, _ = w.Write([]byte(`<html><body><a href="/doc/1">Jane</a></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	loader := NewHTTPLoader(HTTPLoaderConfig{})
	p, err := loader.Load(context.Background(), server.URL+"/apps")
	require.NoError(t, err)

	require.Len(t, p.Frames, 3)
	assert.True(t, p.Frames[0].Accessible)
	assert.Equal(t, server.URL+"/frame", p.Frames[0].Src)
	assert.Contains(t, p.Frames[0].HTML, "Jane")

	assert.False(t, p.Frames[1].Accessible, "cross-origin frame must be skipped")
	assert.Empty(t, p.Frames[1].HTML)

	assert.False(t, p.Frames[2].Accessible, "failed frame load is recorded as inaccessible")
}

func TestHTTPLoader_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewHTTPLoader(HTTPLoaderConfig{}).Load(context.Background(), server.URL)
	require.Error(t, err)

	var pageErr *Error
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, http.StatusForbidden, pageErr.StatusCode)
}

func TestHTTPLoader_InvalidURL(t *testing.T) {
	_, err := NewHTTPLoader(HTTPLoaderConfig{}).Load(context.Background(), "not-a-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestHTTPLoader_SendsSessionCookies(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("JSESSIONID"); err == nil {
			gotCookie = c.Value
		}
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	jar, err := NewSessionJar("JSESSIONID=abc123; other=1", []string{server.URL})
	require.NoError(t, err)

	loader := NewHTTPLoader(HTTPLoaderConfig{Client: &http.Client{Jar: jar}})
	_, err = loader.Load(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "abc123", gotCookie)
}

func TestNewSessionJar_Empty(t *testing.T) {
	jar, err := NewSessionJar("", []string{"https://example.com"})
	require.NoError(t, err)
	u, _ := url.Parse("https://example.com")
	assert.Empty(t, jar.Cookies(u))
}

func TestNewSessionJar_InvalidURL(t *testing.T) {
	_, err := NewSessionJar("a=b", []string{"::nope"})
	assert.Error(t, err)
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	html := `<html><body><a href="/doc">x</a><iframe src="frame.html"></iframe></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0644))

	p, err := FileLoader{BaseURL: "https://hcm.example.com/apps/list"}.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://hcm.example.com/apps/list", p.URL)
	require.Len(t, p.Frames, 1)
	assert.Equal(t, "https://hcm.example.com/apps/frame.html", p.Frames[0].Src)
	assert.False(t, p.Frames[0].Accessible)
}

func TestFileLoader_Missing(t *testing.T) {
	_, err := FileLoader{}.Load(context.Background(), "/nonexistent/page.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read page file")
}

func TestSameOrigin(t *testing.T) {
	assert.True(t, SameOrigin("https://a.example.com/x", "https://A.example.com/y?z=1"))
	assert.False(t, SameOrigin("https://a.example.com", "http://a.example.com"))
	assert.False(t, SameOrigin("https://a.example.com", "https://a.example.com:8443"))
	assert.False(t, SameOrigin("https://a.example.com", "https://b.example.com"))
}

func TestResolve(t *testing.T) {
	base, _ := url.Parse("https://hcm.example.com/hcmUI/faces/page")
	assert.Equal(t, "https://hcm.example.com/hcmUI/doc?id=1", Resolve(base, "../doc?id=1"))
	assert.Equal(t, "https://other.example.com/x", Resolve(base, "https://other.example.com/x"))
	assert.Equal(t, "", Resolve(base, "   "))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com"))
	assert.True(t, IsRemote("HTTP://example.com"))
	assert.False(t, IsRemote("./saved/page.html"))
}

func TestFramesFromSnapshots(t *testing.T) {
	body := "<html><body></body></html>"
	frames := framesFromSnapshots([]frameSnapshot{
		{Src: "https://a/1", HTML: &body},
		{Src: "https://b/2", HTML: nil},
	})

	require.Len(t, frames, 2)
	assert.True(t, frames[0].Accessible)
	assert.Equal(t, body, frames[0].HTML)
	assert.False(t, frames[1].Accessible)
}

func TestExportCookies(t *testing.T) {
	jar, err := NewSessionJar("", nil)
	require.NoError(t, err)

	exportCookies(jar, []string{"https://hcm.example.com/page", "::bad"}, []*network.Cookie{
		{Name: "ORA_SESSION", Value: "s1", Path: "/"},
	})

	u, _ := url.Parse("https://hcm.example.com/content/doc")
	cookies := jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, "ORA_SESSION", cookies[0].Name)
}
