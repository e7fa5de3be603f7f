package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/equery/internal/lexer"
)

// TokenOutput is one token in JSON output.
type TokenOutput struct {
	Kind   string `json:"kind"`
	Lexeme string `json:"lexeme"`
	Pos    int    `json:"pos"`
}

// NewLexCommand creates the lex command.
func NewLexCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lex <statement>",
		Short: "Print the tokens of a statement",
		Long: `Split a statement into tokens and print one per line with its byte offset.

Lexing never fails; unknown characters become word tokens and are
rejected later by the parser.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.newFormatter(cmd)
			tokens := lexer.Lex(args[0])

			if formatter.Format == "json" {
				out := make([]TokenOutput, len(tokens))
				for i, t := range tokens {
					out[i] = TokenOutput{Kind: t.Kind.String(), Lexeme: t.Lexeme, Pos: t.Pos}
				}
				return formatter.Success(out)
			}

			for _, t := range tokens {
				fmt.Fprintln(formatter.Writer, t.String())
			}
			return nil
		},
	}
}
