package cli

import (
	"errors"
	"fmt"
	"sort"

	"md2lang-oai/internal/graph"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func glossaryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Manage the Neo4j glossary used as translation context",
	}
	cmd.AddCommand(glossaryImportCmd(opts))
	return cmd
}

func glossaryImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Load glossary terms from a YAML file into Neo4j",
		Long: `Loads terms from a YAML file of the form

  locale: es
  terms:
    - source: pull request
      target: solicitud de incorporación
      category: git
      related: [commit]

--to supplies the locale when the file names none. Requires NEO4J_URI.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGlossaryImport(cmd, opts, args[0])
		},
	}
}

// runGlossaryImport handles the `glossary import` command.
func runGlossaryImport(cmd *cobra.Command, opts *options, path string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if cfg.Neo4jURI == "" {
		return errors.New("glossary import requires NEO4J_URI")
	}

	terms, err := graph.LoadGlossaryFile(path, opts.to)
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

	builder := graph.NewGraphBuilder(deps.neo4jDriver)
	if err := builder.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	if err := builder.UpsertTerms(ctx, terms); err != nil {
		return fmt.Errorf("import glossary: %w", err)
	}

	locales := make(map[string]bool)
	for _, t := range terms {
		locales[t.Locale] = true
	}
	sorted := make([]string, 0, len(locales))
	for l := range locales {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)

	querier := graph.NewGraphQuerier(deps.neo4jDriver)
	for _, l := range sorted {
		n, err := querier.CountTerms(ctx, l)
		if err != nil {
			log.Warn().Err(err).Str("locale", l).Msg("Count glossary terms")
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d terms\n", l, n)
	}
	return nil
}
