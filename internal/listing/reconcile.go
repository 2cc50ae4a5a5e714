package listing

import (
	"strings"

	"github.com/satulemari/partner-service/internal/llm"
)

// Category is a selectable listing category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MatchCategory finds the first known category whose name contains the
// suggestion or is contained by it, ignoring case.
func MatchCategory(suggested string, known []Category) (Category, bool) {
	s := strings.ToLower(strings.TrimSpace(suggested))
	if s == "" {
		return Category{}, false
	}
	for _, c := range known {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			continue
		}
		if strings.Contains(name, s) || strings.Contains(s, name) {
			return c, true
		}
	}
	return Category{}, false
}

// ApplySuggestion copies an analysis onto the draft. Name, description,
// color, size and condition are overwritten; the category only changes when
// it matches a known one. Tags, material and occasion fill empty fields only.
// Applying the same suggestion twice leaves the draft unchanged.
func ApplySuggestion(d *Draft, s *llm.ClothingAnalysis, known []Category) {
	if s == nil {
		return
	}
	d.Name = s.Name
	d.Description = s.Description
	d.Color = s.Color
	d.Size = s.Size
	d.Condition = s.Condition

	if c, ok := MatchCategory(s.Category, known); ok {
		d.CategoryID = c.ID
		d.CategoryName = c.Name
	}

	if len(d.Tags) == 0 && len(s.Tags) > 0 {
		d.Tags = append([]string(nil), s.Tags...)
	}
	if d.Material == "" {
		d.Material = s.Material
	}
	if d.Occasion == "" {
		d.Occasion = s.Occasion
	}
}
