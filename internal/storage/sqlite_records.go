package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ListNotes returns the notes of a project, newest first.
func (s *SQLiteStorage) ListNotes(ctx context.Context, projectID string) ([]Note, error) {
	if err := projectExists(ctx, s.db, projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, content, image_url, created_at
		FROM project_notes WHERE project_id = ?
		ORDER BY created_at DESC, rowid DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		var (
			n       Note
			created string
		)
		if err := rows.Scan(&n.ID, &n.ProjectID, &n.Content, &n.ImageURL, &created); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if n.CreatedAt, err = parseTime("created_at", created); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

// AddNote attaches a note to an existing project.
func (s *SQLiteStorage) AddNote(ctx context.Context, projectID string, in NewNote) (Note, error) {
	if err := validateNote(in); err != nil {
		return Note{}, err
	}

	n := Note{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		CreatedAt: s.now().UTC(),
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := projectExists(ctx, tx, projectID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO project_notes (id, project_id, content, image_url, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			n.ID, n.ProjectID, n.Content, n.ImageURL, n.CreatedAt.Format(timeLayout),
		); err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

// DeleteNote removes the note with the given id.
func (s *SQLiteStorage) DeleteNote(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, `DELETE FROM project_notes WHERE id = ?`, id, "note", ErrNoteNotFound)
}

// ListInventory returns every inventory item, newest first.
func (s *SQLiteStorage) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, material, length, width, thickness, quantity, location, notes, created_at
		FROM inventory_items
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	items := []InventoryItem{}
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return items, nil
}

// GetInventoryItem returns the inventory item with the given id.
func (s *SQLiteStorage) GetInventoryItem(ctx context.Context, id string) (InventoryItem, error) {
	return getInventoryItem(ctx, s.db, id)
}

// CreateInventoryItem validates and records a new inventory item.
func (s *SQLiteStorage) CreateInventoryItem(ctx context.Context, in NewInventoryItem) (InventoryItem, error) {
	item := in.item(uuid.NewString(), s.now().UTC())
	if err := validateInventoryItem(item); err != nil {
		return InventoryItem{}, err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items
			(id, name, material, length, width, thickness, quantity, location, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Material, item.Length, item.Width, item.Thickness,
		item.Quantity, item.Location, item.Notes, item.CreatedAt.Format(timeLayout),
	); err != nil {
		return InventoryItem{}, fmt.Errorf("insert inventory item: %w", err)
	}
	return item, nil
}

// UpdateInventoryItem applies patch to an existing inventory item inside one
// transaction.
func (s *SQLiteStorage) UpdateInventoryItem(ctx context.Context, id string, patch InventoryPatch) (InventoryItem, error) {
	var updated InventoryItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		item, err := getInventoryItem(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.apply(&item)
		if err := validateInventoryItem(item); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET name = ?, material = ?, length = ?, width = ?, thickness = ?, quantity = ?, location = ?, notes = ?
			WHERE id = ?`,
			item.Name, item.Material, item.Length, item.Width, item.Thickness,
			item.Quantity, item.Location, item.Notes, id,
		); err != nil {
			return fmt.Errorf("update inventory item: %w", err)
		}
		updated = item
		return nil
	})
	return updated, err
}

// DeleteInventoryItem removes the inventory item with the given id.
func (s *SQLiteStorage) DeleteInventoryItem(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, `DELETE FROM inventory_items WHERE id = ?`, id, "inventory item", ErrInventoryNotFound)
}

func projectExists(ctx context.Context, q querier, id string) error {
	var found int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("look up project: %w", err)
	}
	return nil
}

func deleteByID(ctx context.Context, q querier, query, id, what string, notFound error) error {
	res, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", what, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func getInventoryItem(ctx context.Context, q querier, id string) (InventoryItem, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, material, length, width, thickness, quantity, location, notes, created_at
		FROM inventory_items WHERE id = ?`, id)
	item, err := scanInventoryItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return InventoryItem{}, ErrInventoryNotFound
	}
	return item, err
}

func scanInventoryItem(sc scanner) (InventoryItem, error) {
	var (
		item    InventoryItem
		created string
	)
	if err := sc.Scan(
		&item.ID, &item.Name, &item.Material, &item.Length, &item.Width, &item.Thickness,
		&item.Quantity, &item.Location, &item.Notes, &created,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return InventoryItem{}, err
		}
		return InventoryItem{}, fmt.Errorf("scan inventory item: %w", err)
	}

	var err error
	if item.CreatedAt, err = parseTime("created_at", created); err != nil {
		return InventoryItem{}, err
	}
	return item, nil
}
