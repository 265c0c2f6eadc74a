package posting

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Careers | Acme</title><style>.x{}</style></head>
<body>
<nav>Home Jobs About</nav>
<div class="job-description">
<h1>Senior Go Engineer</h1>
<p>Company: Acme Corp</p>
<p>We build   <b>distributed</b> systems.<br>Remote friendly.</p>
<ul><li>Go</li><li>Kubernetes</li></ul>
</div>
<footer>Copyright</footer>
</body>
</html>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTextFile(t *testing.T) {
	path := writeFile(t, "job.txt", "\n  Data Scientist  \nCompany: Logistics Inc\nPython required.\n")

	p, err := NewLoader(0).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Data Scientist", p.Title)
	assert.Equal(t, "Logistics Inc", p.Company)
	assert.True(t, strings.HasPrefix(p.Text, "Data Scientist"))
	assert.Equal(t, path, p.Source)
}

func TestLoadHTMLFile(t *testing.T) {
	path := writeFile(t, "job.html", samplePage)

	p, err := NewLoader(0).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Senior Go Engineer", p.Title)
	assert.Equal(t, "Acme Corp", p.Company)
	assert.Equal(t, "Senior Go Engineer\nCompany: Acme Corp\nWe build distributed systems.\nRemote friendly.\nGo\nKubernetes", p.Text)
	assert.NotContains(t, p.Text, "Home Jobs")
	assert.NotContains(t, p.Text, "Copyright")
}

func TestLoadStdin(t *testing.T) {
	l := NewLoader(0)
	l.Stdin = strings.NewReader("Backend Developer\nGo")

	p, err := l.Load(context.Background(), "-")
	require.NoError(t, err)
	assert.Equal(t, "Backend Developer", p.Title)
	assert.Empty(t, p.Company)
}

func TestLoadURL(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.UserAgent()
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	l := NewLoader(0)
	p, err := l.Load(context.Background(), srv.URL+"/jobs/1")
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", p.Title)
	assert.Contains(t, userAgent, "job-seeker")

	_, err = l.Load(context.Background(), srv.URL+"/missing")
	var postingErr *Error
	require.ErrorAs(t, err, &postingErr)
	assert.Equal(t, "HTTP status 404", postingErr.Message)
}

func TestLoadURLBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("Senior Go Engineer\n", 100)))
	}))
	defer srv.Close()

	l := NewLoader(0)
	l.MaxBytes = 1024

	_, err := l.Load(context.Background(), srv.URL)
	var postingErr *Error
	require.ErrorAs(t, err, &postingErr)
	assert.Equal(t, "response body exceeds 1024 bytes", postingErr.Message)

	l.MaxBytes = 1900
	p, err := l.Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", p.Title)
}

func TestLoadErrors(t *testing.T) {
	l := NewLoader(0)
	var postingErr *Error

	_, err := l.Load(context.Background(), "")
	require.ErrorAs(t, err, &postingErr)

	_, err = l.Load(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.ErrorAs(t, err, &postingErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = l.Load(context.Background(), writeFile(t, "empty.txt", " \n\t\n"))
	require.ErrorAs(t, err, &postingErr)
	assert.Equal(t, "posting is empty", postingErr.Message)
}

func TestGuessTitle(t *testing.T) {
	cases := map[string]string{
		"Go Engineer\nAcme":    "Go Engineer",
		"\n\n  ML Engineer \n": "ML Engineer",
		"":                     DefaultTitle,
		" \n ":                 DefaultTitle,
	}
	for in, want := range cases {
		assert.Equal(t, want, GuessTitle(in), "input %q", in)
	}
}

func TestGuessCompany(t *testing.T) {
	assert.Equal(t, "Acme", GuessCompany("Title\ncompany:  Acme  \nMore"))
	assert.Equal(t, "Globex", GuessCompany("Employer: Globex"))
	assert.Empty(t, GuessCompany("We are a company that builds things"))
}
