// Package materials stores the output of a run in its own folder.
package materials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-seeker/internal/generation"
	"github.com/spigell/job-seeker/internal/render"
	"github.com/spigell/job-seeker/internal/workflow"
)

// File names inside a run folder.
const (
	PostingFile       = "job_offer.txt"
	AssessmentFile    = "assessment.json"
	CVFile            = "cv.txt"
	CoverLetterFile   = "cover_letter.txt"
	InterviewPrepFile = "interview_prep.md"
	RunFile           = "run.json"

	timestampLayout = "20060102_150405"
	defaultName     = "Job_Application"
)

var artifactFiles = map[generation.Kind]string{
	generation.KindCV:            CVFile,
	generation.KindCoverLetter:   CoverLetterFile,
	generation.KindInterviewPrep: InterviewPrepFile,
}

// renderable lists the text files converted to paginated documents.
var renderable = []struct {
	file    string
	docType render.DocType
}{
	{CVFile, render.DocCV},
	{CoverLetterFile, render.DocCoverLetter},
}

// DocumentRenderer renders text to a file.
type DocumentRenderer interface {
	RenderFile(ctx context.Context, text string, docType render.DocType, dst string) error
	Extension() string
}

// Folder is a run folder.
type Folder struct {
	Dir    string
	logger *zap.Logger
}

// FileInfo describes a file in a run folder.
type FileInfo struct {
	Name string
	Size int64
}

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// maxPartRunes bounds the company and title parts of a folder name.
const maxPartRunes = 60

func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "_")
	if runes := []rune(s); len(runes) > maxPartRunes {
		s = strings.TrimRight(string(runes[:maxPartRunes]), "_-")
	}
	return s
}

// FolderName builds "<Company>_<Title>_<YYYYMMDD_HHMMSS>". The company part is
// omitted when empty; both parts are cut to maxPartRunes.
func FolderName(company, title string, now time.Time) string {
	name := sanitize(title)
	if name == "" {
		name = defaultName
	}
	if c := sanitize(company); c != "" {
		name = c + "_" + name
	}
	return name + "_" + now.Format(timestampLayout)
}

// Create makes a new run folder under outputDir.
func Create(outputDir, company, title string, now time.Time, logger *zap.Logger) (*Folder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Join(outputDir, FolderName(company, title, now))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run folder: %w", err)
	}
	logger.Info("run folder created", zap.String("path", dir))
	return &Folder{Dir: dir, logger: logger}, nil
}

// Open uses an existing folder.
func Open(dir string, logger *zap.Logger) (*Folder, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open run folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open run folder: %s is not a directory", dir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Folder{Dir: dir, logger: logger}, nil
}

func (f *Folder) path(name string) string { return filepath.Join(f.Dir, name) }

func (f *Folder) write(name string, data []byte) error {
	if err := os.WriteFile(f.path(name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	f.logger.Debug("file saved", zap.String("name", name), zap.Int("bytes", len(data)))
	return nil
}

// SavePosting stores the posting text.
func (f *Folder) SavePosting(text string) error {
	return f.write(PostingFile, []byte(text))
}

type runRecord struct {
	*workflow.Result
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
}

// SaveResult writes the assessment, every produced artifact and run.json.
func (f *Folder) SaveResult(res *workflow.Result, title, company string) error {
	if res == nil {
		return errors.New("result is nil")
	}

	if res.Assessment != nil {
		data, err := json.MarshalIndent(res.Assessment, "", "  ")
		if err != nil {
			return fmt.Errorf("encode assessment: %w", err)
		}
		if err := f.write(AssessmentFile, data); err != nil {
			return err
		}
	}

	for kind, name := range artifactFiles {
		artifact := res.Artifacts[kind]
		if artifact == nil {
			continue
		}
		if err := f.write(name, []byte(artifact.Text+"\n")); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(runRecord{Result: res, Title: title, Company: company}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}
	return f.write(RunFile, data)
}

// RenderDocuments converts the CV and cover letter found in the folder,
// concurrently. Missing text files are skipped. It returns the created files.
func (f *Folder) RenderDocuments(ctx context.Context, r DocumentRenderer) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	created := make([]string, len(renderable))

	for i, doc := range renderable {
		text, err := os.ReadFile(f.path(doc.file))
		if errors.Is(err, os.ErrNotExist) {
			f.logger.Info("skipping rendering, file not found", zap.String("name", doc.file))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", doc.file, err)
		}

		dst := strings.TrimSuffix(doc.file, filepath.Ext(doc.file)) + r.Extension()
		g.Go(func() error {
			if err := r.RenderFile(ctx, string(text), doc.docType, f.path(dst)); err != nil {
				return fmt.Errorf("%s: %w", doc.file, err)
			}
			created[i] = dst
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(created))
	for _, name := range created {
		if name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// Summary lists the files in the folder by name.
func (f *Folder) Summary() ([]FileInfo, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("list run folder: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
