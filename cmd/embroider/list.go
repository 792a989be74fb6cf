package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/embroider"
	"github.com/jward/embroider/internal/config"
	"github.com/jward/embroider/internal/store"
)

var (
	flagKind   string
	flagName   string
	flagPath   string
	flagLimit  int
	flagFormat string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed declarations",
	Long:  "Queries the index written by generate --db. Names are glob patterns matched case-insensitively.",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&flagKind, "kind", "", "node kind: module|subroutine|function|interface|type|variable|argument")
	listCmd.Flags().StringVar(&flagName, "name", "", "name glob, e.g. 'solve*'")
	listCmd.Flags().StringVar(&flagPath, "path", "", "restrict to one source file as recorded in the index")
	listCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum number of results (0 for all)")
	listCmd.Flags().StringVar(&flagFormat, "format", "text", "output format: json|text")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	s, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.SearchNodes(embroider.NodeQuery{
		Kind:  flagKind,
		Name:  flagName,
		Path:  flagPath,
		Limit: flagLimit,
	})
	if err != nil {
		return err
	}

	nodes := make([]CLINode, 0, len(rows))
	for _, r := range rows {
		nodes = append(nodes, toCLINode(r))
	}
	total := len(nodes)
	return outputResult(cmd.OutOrStdout(), flagFormat, CLIResult{
		Command:    "list",
		Results:    nodes,
		TotalCount: &total,
	})
}

// openStore opens an existing index.
func openStore(dbPath string) (*store.Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("no index configured (set --db or database in %s)", config.FileName)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'embroider generate --db %s' first)", dbPath, dbPath)
	}
	return store.NewStore(dbPath)
}

func toCLINode(r *embroider.IndexedNode) CLINode {
	return CLINode{
		ID:          r.ID,
		ParentID:    r.ParentID,
		Kind:        r.Kind,
		Name:        r.Name,
		File:        r.Path,
		Declaration: r.Declaration,
		Type:        r.Type,
		Value:       r.Value,
		Description: r.Description,
	}
}
