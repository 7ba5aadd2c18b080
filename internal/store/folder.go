package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// CreateFolder inserts a new folder. If f.ParentID is non-empty it must
// reference an existing folder. f.ID is populated with a generated id.
func (s *Store) CreateFolder(ctx context.Context, f *model.Folder) error {
	f.ID = uuid.New().String()
	return s.tx(ctx, func(t *sql.Tx) error {
		if f.ParentID != "" {
			if err := requireFolderExists(ctx, t, f.ParentID); err != nil {
				return err
			}
		}
		_, err := t.ExecContext(ctx,
			`INSERT INTO folders (id, name, parent_id) VALUES (?, ?, NULLIF(?, ''))`,
			f.ID, f.Name, f.ParentID,
		)
		if err != nil {
			return fmt.Errorf("store: create folder: %w", err)
		}
		return nil
	})
}

// GetFolder retrieves a folder by id.
func (s *Store) GetFolder(ctx context.Context, id string) (*model.Folder, error) {
	var f model.Folder
	var parentID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, parent_id FROM folders WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: folder %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get folder: %w", err)
	}
	f.ParentID = parentID.String
	return &f, nil
}

// ListFolders returns every folder, unordered structurally (callers assemble
// the tree from ParentID).
func (s *Store) ListFolders(ctx context.Context) ([]model.Folder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parent_id FROM folders ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list folders: %w", err)
	}
	defer rows.Close()

	var out []model.Folder
	for rows.Next() {
		var f model.Folder
		var parentID sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &parentID); err != nil {
			return nil, fmt.Errorf("store: list folders scan: %w", err)
		}
		f.ParentID = parentID.String
		out = append(out, f)
	}
	return out, rows.Err()
}

// MoveFolder reparents folder id under newParentID (empty means root). It
// rejects the move with apperr.ErrInvalidState if newParentID is id itself or
// a descendant of id, which would introduce a cycle (spec §3 Folder
// invariant: "No cycles").
func (s *Store) MoveFolder(ctx context.Context, id, newParentID string) error {
	return s.tx(ctx, func(t *sql.Tx) error {
		if err := requireFolderExists(ctx, t, id); err != nil {
			return err
		}
		if newParentID != "" {
			if err := requireFolderExists(ctx, t, newParentID); err != nil {
				return err
			}
			isDescendant, err := folderIsDescendant(ctx, t, newParentID, id)
			if err != nil {
				return err
			}
			if newParentID == id || isDescendant {
				return fmt.Errorf("store: move folder %q under %q would create a cycle: %w", id, newParentID, apperr.ErrInvalidState)
			}
		}
		_, err := t.ExecContext(ctx,
			`UPDATE folders SET parent_id = NULLIF(?, '') WHERE id = ?`, newParentID, id,
		)
		if err != nil {
			return fmt.Errorf("store: move folder: %w", err)
		}
		return nil
	})
}

// folderIsDescendant reports whether candidate is a descendant of ancestor
// by walking candidate's parent chain up to the root.
func folderIsDescendant(ctx context.Context, t *sql.Tx, candidate, ancestor string) (bool, error) {
	current := candidate
	for i := 0; i < 10_000; i++ { // generous bound against a corrupted graph
		var parentID sql.NullString
		err := t.QueryRowContext(ctx, `SELECT parent_id FROM folders WHERE id = ?`, current).Scan(&parentID)
		if errors.Is(err, sql.ErrNoRows) || !parentID.Valid || parentID.String == "" {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("store: walk folder ancestry: %w", err)
		}
		if parentID.String == ancestor {
			return true, nil
		}
		current = parentID.String
	}
	return false, fmt.Errorf("store: folder ancestry walk exceeded bound: %w", apperr.ErrInternal)
}

// DeleteFolder removes a folder. Its children (Sources, Episodes, and
// sub-Folders) are re-parented to the deleted folder's parent (or root) per
// spec §3 ("Deleting a folder re-parents its children to its parent or root").
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	return s.tx(ctx, func(t *sql.Tx) error {
		f, err := getFolderTx(ctx, t, id)
		if err != nil {
			return err
		}
		for _, stmt := range []string{
			`UPDATE folders SET parent_id = NULLIF(?, '') WHERE parent_id = ?`,
			`UPDATE sources SET folder_id = NULLIF(?, '') WHERE folder_id = ?`,
			`UPDATE episodes SET folder_id = NULLIF(?, '') WHERE folder_id = ?`,
		} {
			if _, err := t.ExecContext(ctx, stmt, f.ParentID, id); err != nil {
				return fmt.Errorf("store: reparent children of folder %q: %w", id, err)
			}
		}
		if _, err := t.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: delete folder: %w", err)
		}
		return nil
	})
}

func requireFolderExists(ctx context.Context, t *sql.Tx, id string) error {
	var exists bool
	err := t.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM folders WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("store: check folder exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("store: folder %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func getFolderTx(ctx context.Context, t *sql.Tx, id string) (*model.Folder, error) {
	var f model.Folder
	var parentID sql.NullString
	err := t.QueryRowContext(ctx, `SELECT id, name, parent_id FROM folders WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: folder %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get folder: %w", err)
	}
	f.ParentID = parentID.String
	return &f, nil
}
