package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"md2lang-oai/internal/filewalker"
	"md2lang-oai/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func batchCmd(opts *options) *cobra.Command {
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "batch <input-dir> <output-dir>",
		Short: "Translate every Markdown/text file under a directory",
		Long: `Walks <input-dir> for .md, .markdown, .mdx and .txt files, translates them in
parallel and writes each one to the same relative path under <output-dir>.
Hidden files and directories are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, args[0], args[1], skipExisting)
		},
	}
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Leave files that already exist in <output-dir> untouched")

	return cmd
}

type fileResult struct {
	outPath string
	skipped bool
	clean   bool
}

// runBatch handles the `batch` command.
func runBatch(cmd *cobra.Command, opts *options, inputDir, outputDir string, skipExisting bool) error {
	loc, err := targetLocale(opts)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	apiKey, err := cfg.APIKey()
	if err != nil {
		return err
	}

	inputAbs, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input directory: %w", err)
	}
	outputAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	if inputAbs == outputAbs {
		return fmt.Errorf("output directory must differ from input directory: %s", inputAbs)
	}

	ctx, cancel := setupContext(cmd.Context())
	defer cancel()

	deps, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	// Files run in parallel, so each document translates its chunks in order.
	p, err := deps.buildPipeline(ctx, cfg, apiKey, pipelineSettings{
		workers:       1,
		memory:        opts.memory,
		preloadLocale: loc.String(),
	})
	if err != nil {
		return err
	}

	entries, err := filewalker.NewWalker().Walk(inputAbs)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}

	if err := os.MkdirAll(outputAbs, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	log.Info().
		Int("files", len(entries)).
		Str("locale", loc.String()).
		Str("model", cfg.Model).
		Msg("Starting batch translation")

	filePool := worker.NewPool[filewalker.FileEntry, fileResult](cfg.WorkerCount,
		func(ctx context.Context, entry filewalker.FileEntry) (fileResult, error) {
			outPath := entry.OutputPath(outputAbs)
			if skipExisting {
				if _, err := os.Stat(outPath); err == nil {
					return fileResult{outPath: outPath, skipped: true}, nil
				}
			}

			data, err := os.ReadFile(entry.Path)
			if err != nil {
				return fileResult{}, fmt.Errorf("read %s: %w", entry.Rel, err)
			}

			res, err := p.Document(ctx, string(data), loc, cfg.Model)
			if err != nil {
				return fileResult{}, fmt.Errorf("translate %s: %w", entry.Rel, err)
			}

			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fileResult{}, fmt.Errorf("create directory for %s: %w", entry.Rel, err)
			}
			if err := os.WriteFile(outPath, []byte(res.Output), 0o644); err != nil {
				return fileResult{}, fmt.Errorf("write %s: %w", outPath, err)
			}
			return fileResult{outPath: outPath, clean: res.Report.Clean()}, nil
		},
	)

	var translated, skipped, failed, degraded int
	for _, task := range filePool.Execute(ctx, entries) {
		switch {
		case task.Err != nil:
			failed++
			log.Error().Err(task.Err).Str("file", task.Input.Rel).Msg("File failed")
		case task.Result.skipped:
			skipped++
			log.Debug().Str("file", task.Input.Rel).Msg("Output exists, skipped")
		default:
			translated++
			if !task.Result.clean {
				degraded++
			}
			log.Info().
				Str("input", task.Input.Rel).
				Str("output", task.Result.outPath).
				Msg("File translated")
		}
	}

	log.Info().
		Int("translated", translated).
		Int("skipped", skipped).
		Int("failed", failed).
		Int("placeholder_warnings", degraded).
		Str("output", outputAbs).
		Msg("Batch translation complete")

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(entries))
	}
	return nil
}
