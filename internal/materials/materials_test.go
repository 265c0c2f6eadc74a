package materials

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-seeker/internal/generation"
	"github.com/spigell/job-seeker/internal/render"
	"github.com/spigell/job-seeker/internal/workflow"
)

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func TestFolderName(t *testing.T) {
	cases := []struct {
		company, title, want string
	}{
		{"Acme Corp", "Senior Go Engineer", "Acme_Corp_Senior_Go_Engineer_20250314_092653"},
		{"", "Data Scientist (m/f/d)", "Data_Scientist_mfd_20250314_092653"},
		{"Société Générale", "Analyste  R&D", "Société_Générale_Analyste_RD_20250314_092653"},
		{"", "!!!", "Job_Application_20250314_092653"},
		{"  ", "", "Job_Application_20250314_092653"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FolderName(tc.company, tc.title, fixedTime))
	}
}

func TestFolderNameCapsLongParts(t *testing.T) {
	title := strings.Repeat("We are looking for a passionate engineer to join our team ", 6)
	company := strings.Repeat("Ünïcödé Großunternehmen ", 5)
	require.Greater(t, len(title), 300)

	name := FolderName(company, title, fixedTime)

	assert.Equal(t,
		"Ünïcödé_Großunternehmen_Ünïcödé_Großunternehmen_Ünïcödé_Groß_"+
			"We_are_looking_for_a_passionate_engineer_to_join_our_team_We_"+
			"20250314_092653",
		name)
	assert.True(t, utf8.ValidString(name))

	folder, err := Create(t.TempDir(), company, title, fixedTime, nil)
	require.NoError(t, err)
	assert.DirExists(t, folder.Dir)
}

func sampleResult() *workflow.Result {
	score := 82.0
	return &workflow.Result{
		RunID: "run-1",
		State: workflow.StateDone,
		Assessment: &generation.Assessment{
			Summary:    "Strong match",
			MatchScore: &score,
			Strengths:  []string{"Go"},
		},
		Artifacts: map[generation.Kind]*generation.Artifact{
			generation.KindCV:          {Kind: generation.KindCV, Text: "JANE DOE\njane@example.com\n\nSUMMARY\nEngineer."},
			generation.KindCoverLetter: {Kind: generation.KindCoverLetter, Text: "Dear Hiring Manager,"},
		},
		Failures: map[generation.Kind]*generation.Error{
			generation.KindInterviewPrep: {Kind: generation.KindInterviewPrep, Reason: generation.ReasonTimeout},
		},
		StepLog: []workflow.StepRecord{{Seq: 1, Kind: generation.KindAssessment, Status: workflow.StatusSucceeded}},
	}
}

func TestSaveResult(t *testing.T) {
	folder, err := Create(t.TempDir(), "Acme", "Go Engineer", fixedTime, nil)
	require.NoError(t, err)
	require.NoError(t, folder.SavePosting("Go Engineer\nAcme"))
	require.NoError(t, folder.SaveResult(sampleResult(), "Go Engineer", "Acme"))

	cv, err := os.ReadFile(filepath.Join(folder.Dir, CVFile))
	require.NoError(t, err)
	assert.Equal(t, "JANE DOE\njane@example.com\n\nSUMMARY\nEngineer.\n", string(cv))

	_, err = os.Stat(filepath.Join(folder.Dir, InterviewPrepFile))
	assert.True(t, os.IsNotExist(err))

	var assessment map[string]any
	data, err := os.ReadFile(filepath.Join(folder.Dir, AssessmentFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &assessment))
	assert.Equal(t, 82.0, assessment["match_score"])

	var run map[string]any
	data, err = os.ReadFile(filepath.Join(folder.Dir, RunFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &run))
	assert.Equal(t, "run-1", run["run_id"])
	assert.Equal(t, "Go Engineer", run["title"])
	assert.Contains(t, run["failures"], "interview_prep")

	files, err := folder.Summary()
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
		assert.Positive(t, f.Size)
	}
	assert.Equal(t, []string{AssessmentFile, CoverLetterFile, CVFile, PostingFile, RunFile}, names)
}

func TestRenderDocuments(t *testing.T) {
	folder, err := Create(t.TempDir(), "", "Go Engineer", fixedTime, nil)
	require.NoError(t, err)
	require.NoError(t, folder.SaveResult(sampleResult(), "Go Engineer", ""))

	created, err := folder.RenderDocuments(context.Background(), render.New(&render.HTMLBackend{Page: render.PageLetter}, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"cv.html", "cover_letter.html"}, created)

	html, err := os.ReadFile(filepath.Join(folder.Dir, "cv.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), `<h1 class="name">JANE DOE</h1>`)
}

type recordingRenderer struct {
	mu    sync.Mutex
	types map[render.DocType]string
	err   error
}

func (r *recordingRenderer) RenderFile(_ context.Context, text string, docType render.DocType, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types == nil {
		r.types = map[render.DocType]string{}
	}
	r.types[docType] = text
	return r.err
}

func (r *recordingRenderer) Extension() string { return ".pdf" }

func TestRenderDocumentsSkipsMissingFiles(t *testing.T) {
	folder, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(folder.Dir, CoverLetterFile), []byte("Dear Hiring Manager,"), 0o644))

	r := &recordingRenderer{}
	created, err := folder.RenderDocuments(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, []string{"cover_letter.pdf"}, created)
	assert.Equal(t, map[render.DocType]string{render.DocCoverLetter: "Dear Hiring Manager,"}, r.types)
}

func TestRenderDocumentsReportsFailure(t *testing.T) {
	folder, err := Create(t.TempDir(), "", "x", fixedTime, nil)
	require.NoError(t, err)
	require.NoError(t, folder.SaveResult(sampleResult(), "x", ""))

	_, err = folder.RenderDocuments(context.Background(), &recordingRenderer{err: errors.New("chrome not found")})
	assert.ErrorContains(t, err, "chrome not found")
}

func TestOpenRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path, nil)
	assert.Error(t, err)
}
