// Package embroider extracts structural documentation from free-format
// source files. Declarations (modules, procedures, interfaces, derived types
// and named constants) are recognized line by line, assembled into a tree
// that mirrors lexical scoping, and rendered to Textile or Markdown.
//
// # Pipeline
//
// For each source file the [Engine]:
//
//  1. Looks up a grammar by file extension. Files without one are skipped.
//  2. Skips the file when an index is configured and its content hash is
//     unchanged.
//  3. Parses the file into a declaration tree. Parsing never fails; malformed
//     nesting is repaired and reported as diagnostics.
//  4. Prunes the tree with the configured Risor filter, if any.
//  5. Renders the tree and writes the document next to the source or under
//     the output directory.
//  6. Records the file and its flattened tree in the SQLite index.
//
// Steps 3 to 5 run on a worker pool; the index is written by a single
// goroutine.
//
// # Usage
//
//	e, err := embroider.New(
//		embroider.WithOutputDir("docs"),
//		embroider.WithStore(".embroider.db"),
//	)
//	if err != nil { ... }
//	defer e.Close()
//
//	sum, err := e.ProcessDirectory(ctx, "src")
//
// # Filters
//
// [WithFilter] takes a Risor expression evaluated once per declaration with
// a `node` map in scope (kind, name, declaration, description, type, value,
// parameter, optional). Declarations for which it is falsy are dropped with
// their subtrees before rendering and indexing:
//
//	embroider.WithFilter(`!node.name.has_prefix("internal_")`)
package embroider
