// Package templates provides the built-in starter projects users can create
// a project from.
package templates

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
)

//go:embed templates.yaml
var templatesYAML []byte

// ErrNotFound indicates no template exists with the requested id.
var ErrNotFound = errors.New("template not found")

// Template is a starter project with a ready-made cut list.
type Template struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Description   string                  `json:"description"`
	Category      string                  `json:"category"`
	Difficulty    string                  `json:"difficulty"`
	EstimatedTime string                  `json:"estimatedTime"`
	ImageURL      string                  `json:"imageUrl,omitempty"`
	CutList       []optimizer.CutListItem `json:"cutList"`
}

type templateFile struct {
	Templates []templateEntry `yaml:"templates"`
}

type templateEntry struct {
	ID            string      `yaml:"id"`
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description"`
	Category      string      `yaml:"category"`
	Difficulty    string      `yaml:"difficulty"`
	EstimatedTime string      `yaml:"estimated_time"`
	ImageURL      string      `yaml:"image_url"`
	CutList       []itemEntry `yaml:"cut_list"`
}

type itemEntry struct {
	PartName  string          `yaml:"part_name"`
	Quantity  int             `yaml:"quantity"`
	Length    float64         `yaml:"length"`
	Width     float64         `yaml:"width"`
	Thickness float64         `yaml:"thickness"`
	Material  string          `yaml:"material"`
	UnitPrice decimal.Decimal `yaml:"unit_price"`
	Notes     string          `yaml:"notes"`
}

// Library is an ordered, read-only set of templates.
type Library struct {
	templates []Template
}

// Default returns the built-in template library. It panics if the embedded
// data is malformed.
func Default() *Library {
	lib, err := Parse(templatesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded templates are invalid: %v", err))
	}
	return lib
}

// Parse builds a library from YAML data.
func Parse(data []byte) (*Library, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates YAML: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Templates))
	out := make([]Template, 0, len(file.Templates))
	for _, entry := range file.Templates {
		if entry.ID == "" {
			return nil, errors.New("template without id")
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}
		out = append(out, entry.toTemplate())
	}
	return &Library{templates: out}, nil
}

// List returns every template in declaration order.
func (l *Library) List() []Template {
	out := make([]Template, len(l.templates))
	for i, t := range l.templates {
		out[i] = cloneTemplate(t)
	}
	return out
}

// Get returns the template with the given id.
func (l *Library) Get(id string) (Template, error) {
	for _, t := range l.templates {
		if t.ID == id {
			return cloneTemplate(t), nil
		}
	}
	return Template{}, ErrNotFound
}

// ByCategory returns the templates in category, in declaration order.
func (l *Library) ByCategory(category string) []Template {
	return l.filter(func(t Template) bool { return t.Category == category })
}

// ByDifficulty returns the templates at difficulty, in declaration order.
func (l *Library) ByDifficulty(difficulty string) []Template {
	return l.filter(func(t Template) bool { return t.Difficulty == difficulty })
}

func (l *Library) filter(keep func(Template) bool) []Template {
	out := []Template{}
	for _, t := range l.templates {
		if keep(t) {
			out = append(out, cloneTemplate(t))
		}
	}
	return out
}

func (e templateEntry) toTemplate() Template {
	items := make([]optimizer.CutListItem, len(e.CutList))
	for i, it := range e.CutList {
		items[i] = optimizer.CutListItem{
			PartName:  it.PartName,
			Quantity:  it.Quantity,
			Length:    it.Length,
			Width:     it.Width,
			Thickness: it.Thickness,
			Material:  it.Material,
			UnitPrice: it.UnitPrice,
			Notes:     it.Notes,
		}
	}
	return Template{
		ID:            e.ID,
		Name:          e.Name,
		Description:   e.Description,
		Category:      e.Category,
		Difficulty:    e.Difficulty,
		EstimatedTime: e.EstimatedTime,
		ImageURL:      e.ImageURL,
		CutList:       items,
	}
}

func cloneTemplate(t Template) Template {
	t.CutList = append([]optimizer.CutListItem{}, t.CutList...)
	return t
}
