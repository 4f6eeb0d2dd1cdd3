package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-evaluator/internal/config"
	"github.com/jonathan/resume-evaluator/internal/observability"
	"github.com/jonathan/resume-evaluator/internal/server"
	"github.com/jonathan/resume-evaluator/internal/store"
	"github.com/jonathan/resume-evaluator/internal/types"
)

func TestEvaluateThenResults(t *testing.T) {
	site := newSite(t)
	dir := setupEnv(t, site.URL)

	out, err := execute(t, "evaluate", "--page", site.URL+"/apps", "--query", "go engineer")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Found 2 unique resume links")
	assert.Contains(t, out, "SEARCH RESULTS")
	assert.Contains(t, out, "Matches:  1 of 2")
	assert.Contains(t, out, "resume_jane_doe_")
	assert.Contains(t, out, "Results published (primary channel)")

	out, err = execute(t, "results", "--json", "--keep")
	require.NoError(t, err, out)
	var set types.SearchResultSet
	require.NoError(t, json.Unmarshal([]byte(out), &set))
	assert.Equal(t, "go engineer", set.Query)
	assert.Equal(t, 1, set.TotalMatches)

	report := filepath.Join(dir, "report.html")
	out, err = execute(t, "results", "--html", report, "--filter", "match")
	require.NoError(t, err, out)
	html, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(html), "resume_jane_doe_")
	assert.NotContains(t, string(html), "resume_john_roe_")

	// The report consumed the result set.
	_, err = execute(t, "results")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results available")
}

func TestEvaluate_FromFile(t *testing.T) {
	site := newSite(t)
	dir := setupEnv(t, site.URL)

	saved := filepath.Join(dir, "apps.html")
	require.NoError(t, os.WriteFile(saved, []byte(applicationsHTML), 0o644))

	out, err := execute(t, "evaluate", "--file", saved, "--page", site.URL+"/apps", "--query", "go", "--verbose")
	require.NoError(t, err, out)
	assert.Contains(t, out, "RESUME LINKS")
	assert.Contains(t, out, "Completed fetching 2 PDFs")
	assert.Contains(t, out, "Matches:  1 of 2")
}

func TestEvaluate_NoLinks(t *testing.T) {
	site := newSite(t)
	setupEnv(t, site.URL)

	out, err := execute(t, "evaluate", "--page", site.URL+"/apps", "--query", "go", "--prefix", "https://elsewhere.example.com/")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No resume links found with the specified prefix.")
	assert.NotContains(t, out, "SEARCH RESULTS")
}

func TestEvaluate_RequiresPage(t *testing.T) {
	site := newSite(t)
	setupEnv(t, site.URL)

	_, err := execute(t, "evaluate", "--query", "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--page or --file is required")
}

func TestEvaluate_InvalidConfig(t *testing.T) {
	site := newSite(t)
	setupEnv(t, site.URL)
	t.Setenv("DATABASE_URL", "mysql://nope")

	_, err := execute(t, "evaluate", "--page", site.URL+"/apps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestIndex(t *testing.T) {
	site := newSite(t)
	setupEnv(t, site.URL)

	out, err := execute(t, "index", "--posting", site.URL+"/posting")
	require.NoError(t, err, out)
	assert.Contains(t, out, `Index process completed for query: "Go experience."`)
	assert.Contains(t, out, "Matches:  1 of 2")
}

func TestLinkedIn(t *testing.T) {
	site := newSite(t)
	setupEnv(t, site.URL)

	out, err := execute(t, "linkedin", "--query", "go engineer")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, out, "Strong Go background")
	assert.Contains(t, out, "Results published")

	out, err = execute(t, "linkedin", "--posting", site.URL+"/posting")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Go experience.")

	_, err = execute(t, "linkedin")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	site := newSite(t)
	setupEnv(t, site.URL)

	_, err := execute(t, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")

	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	out, err := execute(t, "token", "--subject", "ops")
	require.NoError(t, err)

	claims, err := server.NewJWTService(&config.JWTConfig{Secret: "cli-test-secret", ExpirationHours: 2}).
		ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestNewServer_Health(t *testing.T) {
	site := newSite(t)
	setupEnv(t, site.URL)

	cfg, err := config.Load("")
	require.NoError(t, err)
	a, err := newApp(context.Background(), cfg, observability.Discard())
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	srv, err := newServer(a)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenHandoff_PrimaryLocked(t *testing.T) {
	site := newSite(t)
	setupEnv(t, site.URL)

	cfg, err := config.Load("")
	require.NoError(t, err)

	held, err := store.OpenLevelDB(cfg.StorePath, cfg.MaxStoreBytes)
	require.NoError(t, err)
	defer func() { _ = held.Close() }()

	handoff, err := openHandoff(cfg, observability.Discard())
	require.NoError(t, err)
	defer func() { _ = handoff.Close() }()

	channel, err := handoff.Publish(&types.SearchResultSet{Query: "go", Timestamp: "2024-01-02T03:04:05.006Z", Results: []types.FormattedResult{}})
	require.NoError(t, err)
	assert.Equal(t, store.ChannelFallback, channel)
}

func TestCLI_FlagValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errorString string
	}{
		{name: "index without posting", args: []string{"index"}, errorString: `required flag(s) "posting" not set`},
		{name: "linkedin with query and posting", args: []string{"linkedin", "--query", "a", "--posting", "http://x"}, errorString: "none of the others can be"},
		{name: "results with html and json", args: []string{"results", "--html", "out.html", "--json"}, errorString: "none of the others can be"},
		{name: "evaluate without page", args: []string{"evaluate"}, errorString: "--page or --file is required"},
	}

	binaryPath := getBinaryPath(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.args...)
			output, err := cmd.CombinedOutput()
			assert.Error(t, err)
			assert.Contains(t, string(output), tt.errorString)
		})
	}
}

func TestValidate(t *testing.T) {
	site := newSite(t)
	dir := setupEnv(t, site.URL)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"query": "go", "timestamp": "2024-01-02T03:04:05.006Z", "totalMatches": 0, "results": []}`), 0o644))
	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is a valid search result set")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"query": 1}`), 0o644))
	_, err = execute(t, "validate", bad)
	assert.Error(t, err)
}
