package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage keeps projects in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu        sync.RWMutex
	projects  map[string]Project
	order     []string
	notes     []Note
	inventory []InventoryItem
	now       func() time.Time
}

// NewMemoryStorage initialises an empty in-memory project store.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	o := buildOptions(opts)
	return &MemoryStorage{
		projects: make(map[string]Project),
		now:      o.now,
	}
}

// ListProjects returns copies of every project, newest first.
func (s *MemoryStorage) ListProjects(context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Project, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, cloneProject(s.projects[s.order[i]]))
	}
	return out, nil
}

// GetProject returns a copy of the project with the given id.
func (s *MemoryStorage) GetProject(_ context.Context, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return cloneProject(p), nil
}

// CreateProject validates and stores a new project.
func (s *MemoryStorage) CreateProject(_ context.Context, in NewProject) (Project, error) {
	if err := validateNewProject(in); err != nil {
		return Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(in), nil
}

// UpdateProject applies patch to an existing project.
func (s *MemoryStorage) UpdateProject(_ context.Context, id string, patch ProjectPatch) (Project, error) {
	if err := validatePatch(patch); err != nil {
		return Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
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
	if patch.CutList != nil {
		p.CutList = withItemIDs(*patch.CutList)
	}
	if patch.Hardware != nil {
		p.Hardware = withHardwareIDs(*patch.Hardware)
	}
	p.UpdatedAt = s.now().UTC()

	s.projects[id] = p
	return cloneProject(p), nil
}

// DeleteProject removes the project with the given id.
func (s *MemoryStorage) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.notes = slices.DeleteFunc(s.notes, func(n Note) bool { return n.ProjectID == id })
	return nil
}

// CloneProject stores a copy of an existing project under a new id.
func (s *MemoryStorage) CloneProject(_ context.Context, id, title string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}

	return s.insertLocked(NewProject{
		Title:       cloneTitle(src.Title, title),
		Description: src.Description,
		ImageURL:    src.ImageURL,
		CutList:     src.CutList,
		Hardware:    src.Hardware,
	}), nil
}

// ListNotes returns the notes of a project, newest first.
func (s *MemoryStorage) ListNotes(_ context.Context, projectID string) ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.projects[projectID]; !ok {
		return nil, ErrNotFound
	}
	out := []Note{}
	for i := len(s.notes) - 1; i >= 0; i-- {
		if s.notes[i].ProjectID == projectID {
			out = append(out, s.notes[i])
		}
	}
	return out, nil
}

// AddNote attaches a note to an existing project.
func (s *MemoryStorage) AddNote(_ context.Context, projectID string, in NewNote) (Note, error) {
	if err := validateNote(in); err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return Note{}, ErrNotFound
	}
	n := Note{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		CreatedAt: s.now().UTC(),
	}
	s.notes = append(s.notes, n)
	return n, nil
}

// DeleteNote removes the note with the given id.
func (s *MemoryStorage) DeleteNote(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.notes, func(n Note) bool { return n.ID == id })
	if i < 0 {
		return ErrNoteNotFound
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	return nil
}

// ListInventory returns every inventory item, newest first.
func (s *MemoryStorage) ListInventory(context.Context) ([]InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]InventoryItem, 0, len(s.inventory))
	for i := len(s.inventory) - 1; i >= 0; i-- {
		out = append(out, s.inventory[i])
	}
	return out, nil
}

// GetInventoryItem returns the inventory item with the given id.
func (s *MemoryStorage) GetInventoryItem(_ context.Context, id string) (InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.inventoryIndexLocked(id)
	if i < 0 {
		return InventoryItem{}, ErrInventoryNotFound
	}
	return s.inventory[i], nil
}

// CreateInventoryItem validates and records a new inventory item.
func (s *MemoryStorage) CreateInventoryItem(_ context.Context, in NewInventoryItem) (InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := in.item(uuid.NewString(), s.now().UTC())
	if err := validateInventoryItem(item); err != nil {
		return InventoryItem{}, err
	}
	s.inventory = append(s.inventory, item)
	return item, nil
}

// UpdateInventoryItem applies patch to an existing inventory item.
func (s *MemoryStorage) UpdateInventoryItem(_ context.Context, id string, patch InventoryPatch) (InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.inventoryIndexLocked(id)
	if i < 0 {
		return InventoryItem{}, ErrInventoryNotFound
	}
	item := s.inventory[i]
	patch.apply(&item)
	if err := validateInventoryItem(item); err != nil {
		return InventoryItem{}, err
	}
	s.inventory[i] = item
	return item, nil
}

// DeleteInventoryItem removes the inventory item with the given id.
func (s *MemoryStorage) DeleteInventoryItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.inventoryIndexLocked(id)
	if i < 0 {
		return ErrInventoryNotFound
	}
	s.inventory = slices.Delete(s.inventory, i, i+1)
	return nil
}

func (s *MemoryStorage) inventoryIndexLocked(id string) int {
	return slices.IndexFunc(s.inventory, func(item InventoryItem) bool { return item.ID == id })
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStorage) Ping(context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) insertLocked(in NewProject) Project {
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
	s.projects[p.ID] = p
	s.order = append(s.order, p.ID)
	return cloneProject(p)
}
