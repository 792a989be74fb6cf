package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// validateFormat checks the --format flag value.
func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be json or text", format)
	}
}

// outputResult writes result as indented JSON or as aligned text.
func outputResult(w io.Writer, format string, result CLIResult) error {
	if format == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLINode:
		formatNodesText(w, v)
	case []CLIGrammar:
		formatGrammarsText(w, v)
	default:
		return fmt.Errorf("no text format for %s results", result.Command)
	}
	return nil
}

// formatNodesText formats CLINode results as aligned columns.
func formatNodesText(w io.Writer, nodes []CLINode) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tNAME\tTYPE\tFILE")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", n.ID, n.Kind, n.Name, dash(n.Type), n.File)
	}
	tw.Flush()
}

// formatGrammarsText formats CLIGrammar results as aligned columns.
func formatGrammarsText(w io.Writer, grammars []CLIGrammar) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXTENSIONS")
	for _, g := range grammars {
		fmt.Fprintf(tw, "%s\t%s\n", g.Name, strings.Join(g.Extensions, " "))
	}
	tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
