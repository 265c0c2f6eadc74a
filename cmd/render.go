package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-seeker/internal/logger"
	"github.com/spigell/job-seeker/internal/materials"
	"github.com/spigell/job-seeker/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Convert a generated CV or cover letter into a document",
	Long: `Convert a plain text CV or cover letter into a paginated document.

Either convert a single file with --input, or both documents of a run folder
with --folder.`,
	Run: func(cmd *cobra.Command, _ []string) {
		renderRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("input", "i", "", "text file to convert")
	renderCmd.Flags().StringP("type", "t", string(render.DocCV), "document type: cv or cover_letter")
	renderCmd.Flags().StringP("output", "o", "", "output file (default is the input path with the backend extension)")
	renderCmd.Flags().StringP("folder", "f", "", "run folder whose cv.txt and cover_letter.txt are converted")
	renderCmd.Flags().String("backend", "", "render backend: pdf or html")
	renderCmd.Flags().String("page-size", "", "page size: letter or a4")

	viper.BindPFlag("render.backend", renderCmd.Flags().Lookup("backend"))
	viper.BindPFlag("render.page-size", renderCmd.Flags().Lookup("page-size"))
}

func renderRun(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	var cfg RenderConfig
	if err := viper.UnmarshalKey("render", &cfg); err != nil {
		logger.Fatal("getting render config", zap.Error(err))
	}
	if err := validate.Struct(cfg); err != nil {
		logger.Fatal("invalid render config", zap.Error(err))
	}

	renderer, err := newRenderer(&cfg, logger)
	if err != nil {
		logger.Fatal("building the renderer", zap.Error(err))
	}

	folderPath, _ := cmd.Flags().GetString("folder")
	if folderPath != "" {
		folder, err := materials.Open(folderPath, logger)
		if err != nil {
			logger.Fatal("opening the run folder", zap.Error(err))
		}
		created, err := folder.RenderDocuments(ctx, renderer)
		if err != nil {
			logger.Fatal("rendering documents", zap.Error(err))
		}
		if len(created) == 0 {
			logger.Warn("nothing to render", zap.String("folder", folderPath))
			return
		}
		logger.Info("documents rendered", zap.String("folder", folderPath), zap.Strings("files", created))
		return
	}

	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		logger.Fatal("either --input or --folder is required")
	}

	docTypeFlag, _ := cmd.Flags().GetString("type")
	docType, err := parseDocType(docTypeFlag)
	if err != nil {
		logger.Fatal("invalid document type", zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + renderer.Extension()
	}

	text, err := os.ReadFile(input)
	if err != nil {
		logger.Fatal("reading input", zap.Error(err))
	}

	if err := renderer.RenderFile(ctx, string(text), docType, output); err != nil {
		logger.Fatal("rendering document", zap.Error(err))
	}
}

func parseDocType(s string) (render.DocType, error) {
	switch render.DocType(strings.ToLower(strings.TrimSpace(s))) {
	case render.DocCV:
		return render.DocCV, nil
	case render.DocCoverLetter, "cover-letter":
		return render.DocCoverLetter, nil
	default:
		return "", fmt.Errorf("unsupported document type %q", s)
	}
}
