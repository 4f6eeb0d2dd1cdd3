package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// getBinaryPath returns the path to the resume_eval binary for testing
func getBinaryPath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", "resume_eval")
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/resume_eval ./cmd/resume_eval'", binaryPath)
	}
	return binaryPath
}

// newSite serves an applications page, two resumes, a job posting and the
// evaluation and LinkedIn endpoints.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /apps", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, applicationsHTML)
	})
	mux.HandleFunc("GET /posting", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="af_richTextEditor_content ck-content">What you'll bring: Go experience. What success looks like</div>
			<a title="Active Applications" href="/apps">Active Applications</a>
		</body></html>`)
	})
	mux.HandleFunc("GET /hcmRec/resume/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprintf(w, "%%PDF-1.4 resume %s", r.PathValue("id"))
	})
	mux.HandleFunc("POST /evaluate/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"result": [["0", "Yes", "because strong experience"], ["1", "No", "missing certification"]]}`)
	})
	mux.HandleFunc("POST /linkedin", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"result": ["Jane Doe", "YES", "Strong Go background"]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

const applicationsHTML = `<html><body>
	<a href="/hcmRec/resume/1?preview=true">Jane Doe</a>
	<a href="/hcmRec/resume/2">John Roe</a>
	<a href="/hcmRec/resume/1?preview=true">Jane Doe</a>
</body></html>`

// setupEnv points the configuration at site and a temporary store directory.
func setupEnv(t *testing.T, site string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RESUME_PREFIX", site+"/hcmRec")
	t.Setenv("EVALUATE_URL", site+"/evaluate/")
	t.Setenv("LINKEDIN_URL", site+"/linkedin")
	t.Setenv("FETCH_THROTTLE", "0s")
	t.Setenv("STORE_PATH", filepath.Join(dir, "results"))
	t.Setenv("FALLBACK_DIR", filepath.Join(dir, "fallback"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SESSION_COOKIES", "")
	t.Setenv("BROWSER_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
	return dir
}

// execute runs the root command in-process with every flag reset to its default.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
