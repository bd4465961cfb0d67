package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"md2lang-oai/internal/config"
	"md2lang-oai/internal/locale"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is the released version of md2lang-oai.
const Version = "1.1.0"

// options holds the flags shared by every command.
type options struct {
	configPath string
	to         string
	input      string
	output     string
	model      string
	baseURL    string
	apiKeyEnv  string
	workers    int
	memory     bool
	verbose    bool
}

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "md2lang-oai",
		Short: "Translate Markdown/text into a target locale (pipe-friendly)",
		Long: `Translate Markdown or plain text into a target locale with an OpenAI-compatible
Chat Completions API. Code, link destinations, raw HTML and front matter are
shielded from the model and restored byte for byte.

Reads stdin and writes stdout unless --input / --output are given.`,
		Example: `  md2lang-oai --to es < README.md > README.es.md
  md2lang-oai --to pt-BR --input docs/guide.md -o docs/guide.pt-BR.md`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, opts)
		},
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.to, "to", "", "Target locale: xx or xx-YY (e.g. es or es-ES)")
	pf.StringVar(&opts.model, "model", config.DefaultModel, "Chat Completions model name")
	pf.StringVar(&opts.baseURL, "base-url", config.DefaultBaseURL, "OpenAI-compatible base URL")
	pf.StringVar(&opts.apiKeyEnv, "api-key-env", config.DefaultAPIKeyEnv, "Environment variable name holding the API key")
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (default $MD2LANG_CONFIG)")
	pf.IntVar(&opts.workers, "workers", 0, "Concurrent requests (default from config)")
	pf.BoolVar(&opts.memory, "memory", false, "Use the pgvector translation memory (requires DATABASE_URL)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().StringVar(&opts.input, "input", "", "Read input from a file instead of stdin")
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write output to a file instead of stdout")

	rootCmd.AddCommand(batchCmd(opts))
	rootCmd.AddCommand(protectCmd())
	rootCmd.AddCommand(glossaryCmd(opts))

	return rootCmd
}

func setupLogging(w io.Writer, verbose bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// loadConfig reads the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if flags.Changed("api-key-env") {
		cfg.APIKeyEnv = opts.apiKeyEnv
	}
	if flags.Changed("workers") && opts.workers > 0 {
		cfg.WorkerCount = opts.workers
	}
	return cfg, nil
}

// targetLocale validates the --to flag.
func targetLocale(opts *options) (locale.Locale, error) {
	if opts.to == "" {
		return locale.Locale{}, fmt.Errorf(`required flag "to" not set`)
	}
	return locale.Normalize(opts.to)
}

// setupContext creates a cancellable context with signal handling.
func setupContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// runTranslate handles the root command: one document from stdin or --input.
func runTranslate(cmd *cobra.Command, opts *options) error {
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

	raw, err := readInput(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}

	ctx, cancel := setupContext(cmd.Context())
	defer cancel()

	deps, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	p, err := deps.buildPipeline(ctx, cfg, apiKey, pipelineSettings{workers: cfg.WorkerCount, memory: opts.memory})
	if err != nil {
		return err
	}

	log.Debug().Str("locale", loc.String()).Str("model", cfg.Model).Int("bytes", len(raw)).Msg("Translating document")

	res, err := p.Document(ctx, raw, loc, cfg.Model)
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}

	return writeOutput(cmd.OutOrStdout(), opts.output, res.Output)
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func writeOutput(stdout io.Writer, path, content string) error {
	if path != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	if _, err := io.WriteString(stdout, content); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}
	return nil
}
