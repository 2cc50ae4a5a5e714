package listing

import (
	"github.com/satulemari/partner-service/internal/llm"
)

var knownCategories = func() []Category {
	cats := make([]Category, len(llm.Categories))
	for i, name := range llm.Categories {
		cats[i] = Category{ID: "cat-" + string(rune('a'+i)), Name: name}
	}
	return cats
}()

func kemeja() *llm.ClothingAnalysis {
	return &llm.ClothingAnalysis{
		Name:        "Kemeja Putih",
		Category:    "Pakaian Formal",
		Description: "Kemeja putih lengan panjang berbahan katun.",
		Color:       "Putih",
		Condition:   "good",
		Size:        "M",
		Tags:        []string{"formal", "putih", "kemeja"},
		Material:    "Katun",
		Occasion:    "Formal",
	}
}

func categoryByName(name string) Category {
	for _, c := range knownCategories {
		if c.Name == name {
			return c
		}
	}
	return Category{}
}

func photo(data string) *Photo {
	return &Photo{FileName: data + ".jpg", Image: llm.Image{Data: []byte(data), MIMEType: "image/jpeg"}}
}
