package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const fileCols = "id, path, grammar, hash, output, last_processed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash, output sql.NullString
	if err := scanner.Scan(&f.ID, &f.Path, &f.Grammar, &hash, &output, &f.LastProcessed); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.Output = output.String
	return f, nil
}

// FileByPath returns the recorded file, or nil if the path is unknown.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every recorded file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

const nodeCols = `n.id, n.file_id, n.parent_id, n.kind, n.name, n.declaration,
	n.description, n.type, n.value, n.ordinal, f.path`

func scanNode(scanner interface{ Scan(...any) error }) (*NodeResult, error) {
	r := &NodeResult{}
	var parent sql.NullInt64
	var decl, desc, typ, value sql.NullString
	err := scanner.Scan(&r.ID, &r.FileID, &parent, &r.Kind, &r.Name, &decl,
		&desc, &typ, &value, &r.Ordinal, &r.Path)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		r.ParentID = &parent.Int64
	}
	r.Declaration = decl.String
	r.Description = desc.String
	r.Type = typ.String
	r.Value = value.String
	return r, nil
}

func (s *Store) queryNodes(query string, args ...any) ([]*NodeResult, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var nodes []*NodeResult
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// NodesByFile returns a file's nodes in insertion (source) order.
func (s *Store) NodesByFile(fileID int64) ([]*NodeResult, error) {
	return s.queryNodes(
		"SELECT "+nodeCols+" FROM nodes n JOIN files f ON f.id = n.file_id WHERE n.file_id = ? ORDER BY n.id",
		fileID,
	)
}

// NodeChildren returns the direct children of a node in source order.
func (s *Store) NodeChildren(nodeID int64) ([]*NodeResult, error) {
	return s.queryNodes(
		"SELECT "+nodeCols+" FROM nodes n JOIN files f ON f.id = n.file_id WHERE n.parent_id = ? ORDER BY n.ordinal",
		nodeID,
	)
}

// SearchNodes returns nodes matching q, ordered by path then source order.
func (s *Store) SearchNodes(q NodeQuery) ([]*NodeResult, error) {
	var (
		where []string
		args  []any
	)
	if q.Kind != "" {
		where = append(where, "n.kind = ?")
		args = append(args, q.Kind)
	}
	if q.Name != "" {
		where = append(where, "LOWER(n.name) GLOB ?")
		args = append(args, strings.ToLower(q.Name))
	}
	if q.Path != "" {
		where = append(where, "f.path = ?")
		args = append(args, q.Path)
	}

	query := "SELECT " + nodeCols + " FROM nodes n JOIN files f ON f.id = n.file_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.path, n.id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	nodes, err := s.queryNodes(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search nodes: %w", err)
	}
	return nodes, nil
}
