package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch replaces everything recorded for the batch's file within a
// single transaction. Fake parent IDs are remapped to the real IDs assigned
// on insert; parents always precede their children in the batch.
func (s *Store) CommitBatch(batch *Batch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fileID, err := upsertFileTx(tx, &batch.File)
	if err != nil {
		return fmt.Errorf("commit batch: file %q: %w", batch.File.Path, err)
	}
	if _, err := tx.Exec("DELETE FROM nodes WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("commit batch: clear nodes: %w", err)
	}

	fakeToReal := make(map[int64]int64, len(batch.Nodes))
	for i := range batch.Nodes {
		n := batch.Nodes[i]
		n.FileID = fileID
		if n.ParentID != nil && *n.ParentID < 0 {
			realID, ok := fakeToReal[*n.ParentID]
			if !ok {
				return fmt.Errorf("commit batch: node %q: parent not yet inserted", n.Name)
			}
			n.ParentID = &realID
		}
		realID, err := insertNodeTx(tx, &n)
		if err != nil {
			return fmt.Errorf("commit batch: node %q: %w", n.Name, err)
		}
		fakeToReal[batch.Nodes[i].ID] = realID
	}

	return tx.Commit()
}

func upsertFileTx(tx *sql.Tx, f *File) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			"INSERT INTO files (path, grammar, hash, output, last_processed) VALUES (?, ?, ?, ?, ?)",
			f.Path, f.Grammar, f.Hash, f.Output, f.LastProcessed,
		)
		if err != nil {
			return 0, fmt.Errorf("insert file: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("lookup file: %w", err)
	default:
		if _, err := tx.Exec(
			"UPDATE files SET grammar = ?, hash = ?, output = ?, last_processed = ? WHERE id = ?",
			f.Grammar, f.Hash, f.Output, f.LastProcessed, id,
		); err != nil {
			return 0, fmt.Errorf("update file: %w", err)
		}
	}
	f.ID = id
	return id, nil
}

func insertNodeTx(tx *sql.Tx, n *Node) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO nodes (file_id, parent_id, kind, name, declaration, description, type, value, ordinal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.FileID, n.ParentID, n.Kind, n.Name, n.Declaration, n.Description, n.Type, n.Value, n.Ordinal,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
