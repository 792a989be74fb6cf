package main

// CLIResult is the top-level JSON envelope for query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
}

// CLINode is a JSON-friendly index row.
type CLINode struct {
	ID          int64  `json:"id"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	File        string `json:"file"`
	Declaration string `json:"declaration,omitempty"`
	Type        string `json:"type,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

// CLIGrammar describes one registered grammar.
type CLIGrammar struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}
