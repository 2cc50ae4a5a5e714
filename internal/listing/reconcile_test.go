package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchCategory(t *testing.T) {
	tests := []struct {
		name      string
		suggested string
		want      string
		wantOK    bool
	}{
		{"exact", "Pakaian Formal", "Pakaian Formal", true},
		{"case insensitive", "pakaian formal", "Pakaian Formal", true},
		{"suggestion contains known", "Pakaian Formal Pria", "Pakaian Formal", true},
		{"known contains suggestion", "Olahraga", "Pakaian Olahraga", true},
		{"no match", "Sepatu", "", false},
		{"empty", "  ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchCategory(tt.suggested, knownCategories)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestMatchCategory_FirstMatchWins(t *testing.T) {
	known := []Category{{ID: "1", Name: "Pakaian"}, {ID: "2", Name: "Pakaian Formal"}}
	got, ok := MatchCategory("Pakaian Formal", known)
	assert.True(t, ok)
	assert.Equal(t, "1", got.ID)
}

func TestApplySuggestion_OverwritesFields(t *testing.T) {
	d := NewDraft("d1")
	d.Name = "old name"
	d.Color = "Merah"
	d.Quantity = 3
	d.Price = 25000

	ApplySuggestion(&d, kemeja(), knownCategories)

	assert.Equal(t, "Kemeja Putih", d.Name)
	assert.Equal(t, "Kemeja putih lengan panjang berbahan katun.", d.Description)
	assert.Equal(t, "Putih", d.Color)
	assert.Equal(t, "M", d.Size)
	assert.Equal(t, "good", d.Condition)
	assert.Equal(t, categoryByName("Pakaian Formal").ID, d.CategoryID)
	assert.Equal(t, "Pakaian Formal", d.CategoryName)
	assert.Equal(t, []string{"formal", "putih", "kemeja"}, d.Tags)
	assert.Equal(t, "Katun", d.Material)
	assert.Equal(t, "Formal", d.Occasion)

	// untouched by suggestions
	assert.Equal(t, 3, d.Quantity)
	assert.Equal(t, 25000.0, d.Price)
}

func TestApplySuggestion_FuzzyCategory(t *testing.T) {
	d := NewDraft("d1")
	s := kemeja()
	s.Category = "Pakaian Formal Pria"

	ApplySuggestion(&d, s, knownCategories)
	assert.Equal(t, "Pakaian Formal", d.CategoryName)
}

func TestApplySuggestion_UnknownCategoryKeepsSelection(t *testing.T) {
	d := NewDraft("d1")
	d.CategoryID = categoryByName("Celana").ID
	d.CategoryName = "Celana"
	s := kemeja()
	s.Category = "Sepatu"

	ApplySuggestion(&d, s, knownCategories)
	assert.Equal(t, categoryByName("Celana").ID, d.CategoryID)
	assert.Equal(t, "Celana", d.CategoryName)
	assert.Equal(t, "Kemeja Putih", d.Name)
}

func TestApplySuggestion_KeepsExistingMetadata(t *testing.T) {
	d := NewDraft("d1")
	d.Tags = []string{"vintage"}
	d.Material = "Linen"

	ApplySuggestion(&d, kemeja(), knownCategories)
	assert.Equal(t, []string{"vintage"}, d.Tags)
	assert.Equal(t, "Linen", d.Material)
	assert.Equal(t, "Formal", d.Occasion)
}

func TestApplySuggestion_Idempotent(t *testing.T) {
	once := NewDraft("d1")
	once.Type = "donation"
	ApplySuggestion(&once, kemeja(), knownCategories)

	twice := once.clone()
	ApplySuggestion(&twice, kemeja(), knownCategories)

	assert.Equal(t, once, twice)
}

func TestApplySuggestion_Nil(t *testing.T) {
	d := NewDraft("d1")
	d.Name = "keep"
	ApplySuggestion(&d, nil, knownCategories)
	assert.Equal(t, "keep", d.Name)
}
