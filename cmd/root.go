package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-seeker/internal/generation"
	"github.com/spigell/job-seeker/internal/render"
	"github.com/spigell/job-seeker/internal/workflow"
)

const (
	app = "job-seeker"
)

type Config struct {
	Profile  string          `mapstructure:"profile" validate:"required"`
	Output   string          `mapstructure:"output" validate:"required"`
	Workflow *WorkflowConfig `mapstructure:"workflow" validate:"required"`
	AI       *AIConfig       `mapstructure:"ai" validate:"required"`
	Render   *RenderConfig   `mapstructure:"render" validate:"required"`
}

type WorkflowConfig struct {
	MinimumMatchScore float64       `mapstructure:"minimum-match-score" validate:"gte=0,lte=100"`
	MaxSteps          int           `mapstructure:"max-steps" validate:"gte=0"`
	StepTimeout       time.Duration `mapstructure:"step-timeout" validate:"gte=0"`
	MissingUpstream   string        `mapstructure:"missing-upstream" validate:"omitempty,oneof=skip placeholder"`
	Documents         []string      `mapstructure:"documents" validate:"dive,oneof=cv cover_letter interview_prep"`
}

type AIConfig struct {
	Provider  string          `mapstructure:"provider" validate:"omitempty,oneof=gemini anthropic"`
	Gemini    *ProviderConfig `mapstructure:"gemini"`
	Anthropic *ProviderConfig `mapstructure:"anthropic"`
}

type ProviderConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	APIKey       string `mapstructure:"api-key" json:"-"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type RenderConfig struct {
	Backend  string        `mapstructure:"backend" validate:"omitempty,oneof=pdf html"`
	PageSize string        `mapstructure:"page-size" validate:"omitempty,oneof=letter a4 Letter A4"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-seeker assesses a job posting against your profile and writes tailored application materials",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"profile":                   "JOB_SEEKER_PROFILE",
		"ai.gemini.api-key-file":    "GEMINI_API_KEY_FILE",
		"ai.anthropic.api-key-file": "ANTHROPIC_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-seeker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("output", "output")
	viper.SetDefault("workflow.minimum-match-score", workflow.DefaultThreshold)
	viper.SetDefault("workflow.max-steps", workflow.DefaultMaxSteps)
	viper.SetDefault("workflow.step-timeout", workflow.DefaultStepTimeout)
	viper.SetDefault("workflow.missing-upstream", string(workflow.MissingUpstreamSkip))
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("ai.anthropic.max-retries", 3)
	viper.SetDefault("ai.anthropic.max-log-length", 200)
	viper.SetDefault("render.backend", render.BackendPDF)
	viper.SetDefault("render.page-size", string(render.PageLetter))
	viper.SetDefault("render.timeout", 30*time.Second)
}

func initConfig() {
	// A missing .env is the common case.
	_ = godotenv.Load()

	// version needs no config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without a config file, defaults, flags and environment still apply.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

var validate = validator.New()

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return config, fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return config, err
	}

	return config, nil
}

func (c *Config) workflowConfig() workflow.Config {
	docs := make([]generation.Kind, 0, len(c.Workflow.Documents))
	for _, d := range c.Workflow.Documents {
		docs = append(docs, generation.Kind(d))
	}
	return workflow.Config{
		Threshold:       c.Workflow.MinimumMatchScore,
		MaxSteps:        c.Workflow.MaxSteps,
		StepTimeout:     c.Workflow.StepTimeout,
		MissingUpstream: workflow.MissingUpstream(c.Workflow.MissingUpstream),
		Documents:       docs,
	}
}
