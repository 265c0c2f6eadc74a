package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-seeker/internal/ai"
	"github.com/spigell/job-seeker/internal/ai/anthropic"
	"github.com/spigell/job-seeker/internal/ai/gemini"
	"github.com/spigell/job-seeker/internal/generation"
	"github.com/spigell/job-seeker/internal/logger"
	"github.com/spigell/job-seeker/internal/materials"
	"github.com/spigell/job-seeker/internal/posting"
	"github.com/spigell/job-seeker/internal/profile"
	"github.com/spigell/job-seeker/internal/render"
	"github.com/spigell/job-seeker/internal/secrets"
	"github.com/spigell/job-seeker/internal/workflow"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run [posting]",
	Short: "Assess a job posting and generate the CV, cover letter and interview guide",
	Long: `Assess a job posting against the candidate profile. When the match score clears
the threshold, generate a tailored CV, a cover letter and an interview preparation
guide, and render the CV and the cover letter as documents.

The posting is a text or HTML file, an http(s) URL, or "-" for stdin.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("posting", "p", "", "job posting source: file, URL or - for stdin")
	runCmd.Flags().String("title", "", "job title used for the run folder (default is the first line of the posting)")
	runCmd.Flags().String("company", "", "company name used for the run folder")
	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before generating")
	runCmd.Flags().Float64("threshold", workflow.DefaultThreshold, "minimum match score required to generate documents")
	runCmd.Flags().StringP("output", "o", "", "directory for run folders")
	runCmd.Flags().String("profile", "", "candidate profile file")
	runCmd.Flags().StringSlice("only", nil, "generate only these documents: cv, cover_letter, interview_prep (default all)")

	viper.BindPFlag("workflow.minimum-match-score", runCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("output", runCmd.Flags().Lookup("output"))
	viper.BindPFlag("profile", runCmd.Flags().Lookup("profile"))
	viper.BindPFlag("workflow.documents", runCmd.Flags().Lookup("only"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-seeker", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	source, _ := cmd.Flags().GetString("posting")
	if source == "" && len(args) > 0 {
		source = args[0]
	}
	if source == "" {
		logger.Fatal("posting source is required", zap.String("hint", "pass a file, a URL or - as an argument"))
	}

	post, err := posting.NewLoader(0).Load(ctx, source)
	if err != nil {
		logger.Fatal("loading the job posting", zap.Error(err))
	}

	autoApprove, _ := cmd.Flags().GetBool("yes")

	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = post.Title
	}
	company, _ := cmd.Flags().GetString("company")
	if company == "" {
		company = post.Company
	}
	if company == "" && !autoApprove {
		if company, err = askCompany(); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	logger.Info("job posting loaded",
		zap.String("source", post.Source),
		zap.String("title", title),
		zap.String("company", company),
		zap.Int("length", len(post.Text)),
	)

	candidate, err := profile.Load(config.Profile)
	if err != nil {
		logger.Fatal("loading the candidate profile", zap.Error(err))
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the text generator", zap.Error(err))
	}

	controller, err := workflow.New(generator, generation.DefaultSteps(), config.workflowConfig(), workflow.WithLogger(logger))
	if err != nil {
		logger.Fatal("building the workflow", zap.Error(err))
	}

	if !autoApprove {
		if err := confirm(title, company); err != nil {
			if errors.Is(err, errExit) {
				logger.Info("exiting", zap.String("reason", "got no from prompt"))
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	// The folder exists before any generator call so a bad path costs nothing.
	folder, err := openRunFolder(config.Output, company, title, post.Text, time.Now(), logger)
	if err != nil {
		logger.Fatal("preparing the run folder", zap.Error(err))
	}

	res, err := controller.Run(ctx, post.Text, candidate.Fields())
	if err != nil {
		logger.Fatal("running the workflow", zap.Error(err))
	}

	if err := folder.SaveResult(res, title, company); err != nil {
		logger.Fatal("saving materials", zap.Error(err))
	}

	report(logger, res)

	if !res.Rejected && len(res.Artifacts) > 0 {
		renderDocuments(ctx, logger, config.Render, folder)
	}

	summarize(logger, folder)
}

// openRunFolder creates the run folder and stores the posting in it.
func openRunFolder(output, company, title, text string, now time.Time, log *zap.Logger) (*materials.Folder, error) {
	folder, err := materials.Create(output, company, title, now, log)
	if err != nil {
		return nil, err
	}
	if err := folder.SavePosting(text); err != nil {
		return nil, err
	}
	return folder, nil
}

func askCompany() (string, error) {
	companyPrompt := promptui.Prompt{
		Label: "Company name (leave empty to skip)",
	}
	company, err := companyPrompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(company), nil
}

func confirm(title, company string) error {
	label := fmt.Sprintf("Assess %q", title)
	if company != "" {
		label += fmt.Sprintf(" at %q", company)
	}

	prompt := promptui.Select{
		Label: label + " and generate materials?",
		Items: []string{PromptYes, PromptNo},
	}

	_, action, err := prompt.Run()
	if err != nil {
		return err
	}
	if action == PromptNo {
		return errExit
	}
	return nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", gemini.Provider:
		pc := providerConfig(cfg.Gemini)
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  pc.APIKeyFile,
			Value: pc.APIKey,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		genLogger := logger.WithCommonFields(log, gemini.Provider, pc.Model).With(zap.Int("ai_retry_attempts", pc.MaxRetries))
		return gemini.NewGenerator(ctx, apiKey, pc.Model, pc.MaxRetries, pc.MaxLogLength, genLogger)

	case anthropic.Provider:
		pc := providerConfig(cfg.Anthropic)
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "anthropic api key",
			File:  pc.APIKeyFile,
			Value: pc.APIKey,
			Env:   "ANTHROPIC_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.anthropic.api-key-file or ANTHROPIC_API_KEY_FILE)", err)
		}

		genLogger := logger.WithCommonFields(log, anthropic.Provider, pc.Model).With(zap.Int("ai_retry_attempts", pc.MaxRetries))
		return anthropic.NewGenerator(apiKey, pc.Model, pc.MaxRetries, pc.MaxLogLength, genLogger)

	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func providerConfig(pc *ProviderConfig) *ProviderConfig {
	if pc == nil {
		return &ProviderConfig{}
	}
	return pc
}

func newRenderer(cfg *RenderConfig, log *zap.Logger) (*render.Renderer, error) {
	if cfg == nil {
		cfg = &RenderConfig{}
	}
	page, err := render.ParsePageSize(cfg.PageSize)
	if err != nil {
		return nil, err
	}
	backend, err := render.NewBackend(cfg.Backend, page, cfg.Timeout, log)
	if err != nil {
		return nil, err
	}
	return render.New(backend, log), nil
}

// renderDocuments is best effort: the text files are already saved.
func renderDocuments(ctx context.Context, logger *zap.Logger, cfg *RenderConfig, folder *materials.Folder) {
	renderer, err := newRenderer(cfg, logger)
	if err != nil {
		logger.Warn("skipping document rendering", zap.Error(err))
		return
	}

	created, err := folder.RenderDocuments(ctx, renderer)
	if err != nil {
		logger.Warn("rendering documents failed",
			zap.Error(err),
			zap.String("hint", "install Chrome or set render.backend to html, then run the render command on the folder"),
		)
		return
	}

	logger.Info("documents rendered", zap.Strings("files", created))
}

func report(logger *zap.Logger, res *workflow.Result) {
	fields := []zap.Field{
		zap.String("run_id", res.RunID),
		zap.String("state", string(res.State)),
	}
	if res.Assessment.Scored() {
		fields = append(fields, zap.Float64("match_score", res.Assessment.Score()))
	}

	if res.Rejected {
		logger.Info("application not recommended", append(fields, zap.String("reason", res.RejectionReason))...)
		if res.Assessment != nil {
			logger.Info("assessment gaps", zap.Strings("gaps", res.Assessment.Gaps))
		}
		return
	}

	for kind, failure := range res.Failures {
		logger.Warn("material was not generated",
			zap.String("kind", string(kind)),
			zap.String("reason", string(failure.Reason)),
			zap.String("detail", failure.Detail),
		)
	}

	if res.Halted {
		logger.Warn("workflow halted before completion", fields...)
		return
	}

	logger.Info("application materials generated", append(fields, zap.Int("artifacts", len(res.Artifacts)))...)
}

func summarize(logger *zap.Logger, folder *materials.Folder) {
	files, err := folder.Summary()
	if err != nil {
		logger.Warn("listing created files", zap.Error(err))
		return
	}
	for _, f := range files {
		logger.Info("created file", zap.String("name", f.Name), zap.Float64("size_kb", float64(f.Size)/1024))
	}
	logger.Info("all materials saved", zap.String("folder", folder.Dir))
}
