package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/embroider"
)

var flagGrammarsFormat string

var grammarsCmd = &cobra.Command{
	Use:   "grammars",
	Short: "List the registered grammars and their file extensions",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagGrammarsFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := embroider.New()
		if err != nil {
			return err
		}
		defer e.Close()

		var grammars []CLIGrammar
		for _, g := range e.Grammars() {
			grammars = append(grammars, CLIGrammar{Name: g.Grammar.Name(), Extensions: g.Extensions})
		}
		return outputResult(cmd.OutOrStdout(), flagGrammarsFormat, CLIResult{
			Command: "grammars",
			Results: grammars,
		})
	},
}

func init() {
	grammarsCmd.Flags().StringVar(&flagGrammarsFormat, "format", "text", "output format: json|text")
}
