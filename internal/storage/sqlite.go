package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
)

const (
	memoryPath = ":memory:"
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage persists projects in a SQLite database file.
type SQLiteStorage struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// OpenSQLite opens the database at path, applies pending migrations and
// returns a ready store. Path ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStorage, error) {
	o := buildOptions(opts)

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if path == memoryPath {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if err := migrate(ctx, db, o.logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db, now: o.now, logger: o.logger}, nil
}

func sqliteDSN(path string) string {
	pragmas := url.Values{}
	pragmas.Add("_pragma", "foreign_keys(1)")
	pragmas.Add("_pragma", "busy_timeout(5000)")
	if path != memoryPath {
		pragmas.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + pragmas.Encode()
}

func migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("applied migration",
			zap.String("source", r.Source.Path),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}

// ListProjects returns every project with its cut list, newest first.
func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, image_url, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(projects)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT project_id, id, part_name, quantity, length, width, thickness, material, unit_price, notes
		FROM cut_list_items
		ORDER BY project_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query cut list items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var projectID string
		item, err := scanItem(itemRows, &projectID)
		if err != nil {
			return nil, err
		}
		if i, ok := index[projectID]; ok {
			projects[i].CutList = append(projects[i].CutList, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cut list items: %w", err)
	}

	hwRows, err := s.db.QueryContext(ctx, `
		SELECT project_id, id, name, type, size, quantity, unit_price, notes, url
		FROM hardware_items
		ORDER BY project_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query hardware items: %w", err)
	}
	defer hwRows.Close()

	for hwRows.Next() {
		var projectID string
		item, err := scanHardware(hwRows, &projectID)
		if err != nil {
			return nil, err
		}
		if i, ok := index[projectID]; ok {
			projects[i].Hardware = append(projects[i].Hardware, item)
		}
	}
	if err := hwRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hardware items: %w", err)
	}

	return projects, nil
}

// GetProject returns the project with the given id.
func (s *SQLiteStorage) GetProject(ctx context.Context, id string) (Project, error) {
	return getProject(ctx, s.db, id)
}

// CreateProject validates and stores a new project with its cut list.
func (s *SQLiteStorage) CreateProject(ctx context.Context, in NewProject) (Project, error) {
	if err := validateNewProject(in); err != nil {
		return Project{}, err
	}

	var created Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.insert(ctx, tx, in)
		return err
	})
	return created, err
}

// UpdateProject applies patch to an existing project inside one transaction.
func (s *SQLiteStorage) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (Project, error) {
	if err := validatePatch(patch); err != nil {
		return Project{}, err
	}

	var updated Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProject(ctx, tx, id)
		if err != nil {
			return err
		}

		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.ImageURL != nil {
			p.ImageURL = *patch.ImageURL
		}
		p.UpdatedAt = s.now().UTC()

		if _, err := tx.ExecContext(ctx, `
			UPDATE projects SET title = ?, description = ?, image_url = ?, updated_at = ?
			WHERE id = ?`,
			p.Title, p.Description, p.ImageURL, p.UpdatedAt.Format(timeLayout), id,
		); err != nil {
			return fmt.Errorf("update project: %w", err)
		}

		if patch.CutList != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cut_list_items WHERE project_id = ?`, id); err != nil {
				return fmt.Errorf("clear cut list: %w", err)
			}
			p.CutList = withItemIDs(*patch.CutList)
			if err := insertItems(ctx, tx, id, p.CutList); err != nil {
				return err
			}
		}
		if patch.Hardware != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM hardware_items WHERE project_id = ?`, id); err != nil {
				return fmt.Errorf("clear hardware: %w", err)
			}
			p.Hardware = withHardwareIDs(*patch.Hardware)
			if err := insertHardware(ctx, tx, id, p.Hardware); err != nil {
				return err
			}
		}

		updated = p
		return nil
	})
	return updated, err
}

// DeleteProject removes a project; its cut list, hardware and notes go with it.
func (s *SQLiteStorage) DeleteProject(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, `DELETE FROM projects WHERE id = ?`, id, "project", ErrNotFound)
}

// CloneProject stores a copy of an existing project under a new id.
func (s *SQLiteStorage) CloneProject(ctx context.Context, id, title string) (Project, error) {
	var cloned Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		src, err := getProject(ctx, tx, id)
		if err != nil {
			return err
		}
		cloned, err = s.insert(ctx, tx, NewProject{
			Title:       cloneTitle(src.Title, title),
			Description: src.Description,
			ImageURL:    src.ImageURL,
			CutList:     src.CutList,
			Hardware:    src.Hardware,
		})
		return err
	})
	return cloned, err
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) insert(ctx context.Context, tx *sql.Tx, in NewProject) (Project, error) {
	now := s.now().UTC()
	p := Project{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		CutList:     withItemIDs(in.CutList),
		Hardware:    withHardwareIDs(in.Hardware),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, title, description, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.ImageURL, now.Format(timeLayout), now.Format(timeLayout),
	); err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}

	if err := insertItems(ctx, tx, p.ID, p.CutList); err != nil {
		return Project{}, err
	}
	if err := insertHardware(ctx, tx, p.ID, p.Hardware); err != nil {
		return Project{}, err
	}
	return p, nil
}

func insertItems(ctx context.Context, q querier, projectID string, items []optimizer.CutListItem) error {
	for i, item := range items {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO cut_list_items
				(id, project_id, position, part_name, quantity, length, width, thickness, material, unit_price, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, projectID, i, item.PartName, item.Quantity, item.Length, item.Width, item.Thickness,
			item.Material, item.UnitPrice.String(), item.Notes,
		); err != nil {
			return fmt.Errorf("insert cut list item %q: %w", item.PartName, err)
		}
	}
	return nil
}

func insertHardware(ctx context.Context, q querier, projectID string, items []HardwareItem) error {
	for i, item := range items {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO hardware_items
				(id, project_id, position, name, type, size, quantity, unit_price, notes, url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, projectID, i, item.Name, item.Type, item.Size, item.Quantity,
			item.UnitPrice.String(), item.Notes, item.URL,
		); err != nil {
			return fmt.Errorf("insert hardware item %q: %w", item.Name, err)
		}
	}
	return nil
}

func getProject(ctx context.Context, q querier, id string) (Project, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, title, description, image_url, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT project_id, id, part_name, quantity, length, width, thickness, material, unit_price, notes
		FROM cut_list_items WHERE project_id = ?
		ORDER BY position`, id)
	if err != nil {
		return Project{}, fmt.Errorf("query cut list items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var projectID string
		item, err := scanItem(rows, &projectID)
		if err != nil {
			return Project{}, err
		}
		p.CutList = append(p.CutList, item)
	}
	if err := rows.Err(); err != nil {
		return Project{}, fmt.Errorf("iterate cut list items: %w", err)
	}

	hwRows, err := q.QueryContext(ctx, `
		SELECT project_id, id, name, type, size, quantity, unit_price, notes, url
		FROM hardware_items WHERE project_id = ?
		ORDER BY position`, id)
	if err != nil {
		return Project{}, fmt.Errorf("query hardware items: %w", err)
	}
	defer hwRows.Close()

	for hwRows.Next() {
		var projectID string
		item, err := scanHardware(hwRows, &projectID)
		if err != nil {
			return Project{}, err
		}
		p.Hardware = append(p.Hardware, item)
	}
	if err := hwRows.Err(); err != nil {
		return Project{}, fmt.Errorf("iterate hardware items: %w", err)
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (Project, error) {
	var (
		p                Project
		created, updated string
	)
	if err := sc.Scan(&p.ID, &p.Title, &p.Description, &p.ImageURL, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, err
		}
		return Project{}, fmt.Errorf("scan project: %w", err)
	}

	var err error
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Project{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Project{}, fmt.Errorf("parse updated_at: %w", err)
	}
	p.CutList = []optimizer.CutListItem{}
	p.Hardware = []HardwareItem{}
	return p, nil
}

func scanItem(sc scanner, projectID *string) (optimizer.CutListItem, error) {
	var item optimizer.CutListItem
	if err := sc.Scan(
		projectID, &item.ID, &item.PartName, &item.Quantity, &item.Length, &item.Width, &item.Thickness,
		&item.Material, &item.UnitPrice, &item.Notes,
	); err != nil {
		return optimizer.CutListItem{}, fmt.Errorf("scan cut list item: %w", err)
	}
	return item, nil
}

func scanHardware(sc scanner, projectID *string) (HardwareItem, error) {
	var item HardwareItem
	if err := sc.Scan(
		projectID, &item.ID, &item.Name, &item.Type, &item.Size, &item.Quantity, &item.UnitPrice, &item.Notes, &item.URL,
	); err != nil {
		return HardwareItem{}, fmt.Errorf("scan hardware item: %w", err)
	}
	return item, nil
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", column, err)
	}
	return t, nil
}
