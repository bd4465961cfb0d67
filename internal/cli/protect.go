package cli

import (
	"fmt"
	"text/tabwriter"

	"md2lang-oai/internal/placeholder"

	"github.com/spf13/cobra"
)

func protectCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "protect",
		Short: "Show what the model would see, without calling it",
		Long: `Prints the protected text to stdout and the placeholder table to stderr.
Useful to check which parts of a document are shielded from translation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}

			protected, m := placeholder.Protect(raw)
			if err := writeOutput(cmd.OutOrStdout(), "", protected); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.ErrOrStderr(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOKEN\tCLASS\tOFFSET\tTEXT")
			for _, e := range m.Entries() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%q\n", e.Token, e.Span.Class, e.Span.Offset, e.Span.Text)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Read input from a file instead of stdin")

	return cmd
}
