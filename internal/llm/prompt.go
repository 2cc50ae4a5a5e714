package llm

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

// Categories is the category list offered to the model. It matches the
// category names used by the marketplace backend.
var Categories = []string{
	"Aksesoris",
	"Alas Kaki",
	"Celana",
	"Pakaian Anak",
	"Pakaian Kasual",
	"Pakaian Formal",
	"Pakaian Olahraga",
	"Pakaian Luar",
	"Pakaian Tradisional",
}

// Item conditions accepted by the backend.
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
)

var (
	Conditions = []string{ConditionExcellent, ConditionGood, ConditionFair}
	Sizes      = []string{"XS", "S", "M", "L", "XL", "XXL"}
)

const clothingAnalysisPrompt = `
	Analyze this clothing image and provide detailed information in JSON format. Please be specific and accurate.

	Return ONLY a valid JSON object with these exact fields:
	{
	  "name": "Specific name of the clothing item (e.g., 'Kemeja Putih Lengan Panjang', 'Gaun Midi Floral')",
	  "category": "One of: %s",
	  "description": "Detailed description in Indonesian (2-3 sentences about style, features, and suitability)",
	  "color": "Primary color in Indonesian (e.g., 'Putih', 'Biru Navy', 'Hitam')",
	  "condition": "One of: %s",
	  "size": "Estimated size: %s",
	  "tags": ["array", "of", "relevant", "tags", "in", "Indonesian"],
	  "material": "Estimated material in Indonesian (e.g., 'Katun', 'Polyester', 'Denim')",
	  "occasion": "Suitable occasion in Indonesian (e.g., 'Kasual', 'Formal', 'Olahraga', 'Pesta')"
	}

	Guidelines:
	- Be specific about clothing type and style
	- Use Indonesian language for all text fields
	- Estimate condition based on visible wear, wrinkles, or damage
	- Provide realistic size estimation
	- Include 3-5 relevant tags
	- Be descriptive but concise
`

// BuildPrompt returns the clothing analysis instruction. An empty category
// list falls back to Categories.
func BuildPrompt(categories []string) string {
	if len(categories) == 0 {
		categories = Categories
	}
	return fmt.Sprintf(
		strings.TrimSpace(dedent.Dedent(clothingAnalysisPrompt)),
		quoteList(categories, ", "),
		quoteList(Conditions, ", "),
		sizeList(),
	)
}

func quoteList(values []string, sep string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, sep)
}

// sizeList renders "'XS', 'S', ... or 'XXL'".
func sizeList() string {
	last := len(Sizes) - 1
	return quoteList(Sizes[:last], ", ") + ", or '" + Sizes[last] + "'"
}
