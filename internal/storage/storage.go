package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
)

var (
	// ErrNotFound indicates no project exists with the requested id.
	ErrNotFound = errors.New("project not found")
	// ErrInvalidProject indicates a project or one of its cut-list items fails validation.
	ErrInvalidProject = errors.New("invalid project")
)

// DefaultHardwareType is used when a hardware item is stored without a type.
const DefaultHardwareType = "Screw"

// HardwareTypes lists the accepted hardware item types.
var HardwareTypes = []string{
	"Screw", "Nail", "Bolt", "Hinge", "Drawer Slide", "Knob", "Pull", "Bracket", "Glue", "Finish", "Other",
}

// Project is a woodworking project with the lumber and hardware it needs.
type Project struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description,omitempty"`
	ImageURL    string                  `json:"imageUrl,omitempty"`
	CutList     []optimizer.CutListItem `json:"cutList"`
	Hardware    []HardwareItem          `json:"hardware"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// HardwareItem is a non-lumber purchase such as screws or hinges.
type HardwareItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Size      string          `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Notes     string          `json:"notes,omitempty"`
	URL       string          `json:"url,omitempty"`
}

// Total is the line cost of the item.
func (h HardwareItem) Total() decimal.Decimal {
	return h.UnitPrice.Mul(decimal.NewFromInt(int64(h.Quantity)))
}

// NewProject holds the fields supplied when creating a project.
type NewProject struct {
	Title       string
	Description string
	ImageURL    string
	CutList     []optimizer.CutListItem
	Hardware    []HardwareItem
}

// ProjectPatch is a partial update. Nil fields are left unchanged; a non-nil
// CutList or Hardware replaces the whole list.
type ProjectPatch struct {
	Title       *string
	Description *string
	ImageURL    *string
	CutList     *[]optimizer.CutListItem
	Hardware    *[]HardwareItem
}

// Storage persists projects, their notes and the shop inventory.
type Storage interface {
	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	CreateProject(ctx context.Context, p NewProject) (Project, error)
	UpdateProject(ctx context.Context, id string, patch ProjectPatch) (Project, error)
	DeleteProject(ctx context.Context, id string) error
	CloneProject(ctx context.Context, id, title string) (Project, error)

	ListNotes(ctx context.Context, projectID string) ([]Note, error)
	AddNote(ctx context.Context, projectID string, n NewNote) (Note, error)
	DeleteNote(ctx context.Context, id string) error

	ListInventory(ctx context.Context) ([]InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (InventoryItem, error)
	CreateInventoryItem(ctx context.Context, in NewInventoryItem) (InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, id string, patch InventoryPatch) (InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// Option configures a storage backend.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *zap.Logger
}

// WithClock overrides the time source used for created and updated stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used for migration and maintenance messages.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// cloneTitle names a copy of a project when the caller gives no title.
func cloneTitle(original, requested string) string {
	if t := strings.TrimSpace(requested); t != "" {
		return t
	}
	return original + " (Copy)"
}

func validateNewProject(p NewProject) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidProject)
	}
	if err := validateCutList(p.CutList); err != nil {
		return err
	}
	return validateHardware(p.Hardware)
}

func validatePatch(patch ProjectPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidProject)
	}
	if patch.CutList != nil {
		if err := validateCutList(*patch.CutList); err != nil {
			return err
		}
	}
	if patch.Hardware != nil {
		return validateHardware(*patch.Hardware)
	}
	return nil
}

func validateCutList(items []optimizer.CutListItem) error {
	for i, item := range items {
		switch {
		case strings.TrimSpace(item.PartName) == "":
			return fmt.Errorf("%w: item %d: part name is required", ErrInvalidProject, i+1)
		case strings.TrimSpace(item.Material) == "":
			return fmt.Errorf("%w: item %d: material is required", ErrInvalidProject, i+1)
		case item.Quantity < 1:
			return fmt.Errorf("%w: item %d: quantity must be at least 1", ErrInvalidProject, i+1)
		case item.Quantity > optimizer.MaxQuantity:
			return fmt.Errorf("%w: item %d: quantity must not exceed %d", ErrInvalidProject, i+1, optimizer.MaxQuantity)
		case !positiveFinite(item.Length) || !positiveFinite(item.Width) || !positiveFinite(item.Thickness):
			return fmt.Errorf("%w: item %d: dimensions must be positive", ErrInvalidProject, i+1)
		case item.UnitPrice.IsNegative():
			return fmt.Errorf("%w: item %d: unit price cannot be negative", ErrInvalidProject, i+1)
		}
	}
	return nil
}

func validateHardware(items []HardwareItem) error {
	for i, item := range items {
		switch {
		case strings.TrimSpace(item.Name) == "":
			return fmt.Errorf("%w: hardware %d: name is required", ErrInvalidProject, i+1)
		case item.Type != "" && !slices.Contains(HardwareTypes, item.Type):
			return fmt.Errorf("%w: hardware %d: unknown type %q", ErrInvalidProject, i+1, item.Type)
		case item.Quantity < 1 || item.Quantity > optimizer.MaxQuantity:
			return fmt.Errorf("%w: hardware %d: quantity must be between 1 and %d", ErrInvalidProject, i+1, optimizer.MaxQuantity)
		case item.UnitPrice.IsNegative():
			return fmt.Errorf("%w: hardware %d: unit price cannot be negative", ErrInvalidProject, i+1)
		}
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// withItemIDs copies items and gives every copy a fresh id.
func withItemIDs(items []optimizer.CutListItem) []optimizer.CutListItem {
	out := make([]optimizer.CutListItem, len(items))
	for i, item := range items {
		item.ID = uuid.NewString()
		out[i] = item
	}
	return out
}

// withHardwareIDs copies items, giving every copy a fresh id and a type.
func withHardwareIDs(items []HardwareItem) []HardwareItem {
	out := make([]HardwareItem, len(items))
	for i, item := range items {
		item.ID = uuid.NewString()
		if item.Type == "" {
			item.Type = DefaultHardwareType
		}
		out[i] = item
	}
	return out
}

func cloneProject(p Project) Project {
	p.CutList = append([]optimizer.CutListItem{}, p.CutList...)
	p.Hardware = append([]HardwareItem{}, p.Hardware...)
	return p
}
