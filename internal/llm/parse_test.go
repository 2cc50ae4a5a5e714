package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClothingAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *ClothingAnalysis
		wantErr error
	}{
		{
			name:  "bare object",
			input: kemejaJSON,
			want:  &kemeja,
		},
		{
			name:  "markdown fence and prose",
			input: "Tentu! Ini hasilnya:\n```json\n" + kemejaJSON + "\n```",
			want:  &kemeja,
		},
		{
			name:    "no object",
			input:   "Maaf, saya tidak dapat menganalisis gambar ini.",
			wantErr: ErrNoJSON,
		},
		{
			name:    "closing brace before opening brace",
			input:   "} nothing here {",
			wantErr: ErrNoJSON,
		},
		{
			name:    "malformed object",
			input:   `{"name": "Kemeja", "tags": [}`,
			wantErr: ErrMalformedJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClothingAnalysis(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrInvalidContent)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClothingAnalysis_ReportsEachMissingField(t *testing.T) {
	for _, field := range RequiredFields {
		t.Run(field, func(t *testing.T) {
			var obj map[string]any
			require.NoError(t, json.Unmarshal([]byte(kemejaJSON), &obj))
			delete(obj, field)
			raw, err := json.Marshal(obj)
			require.NoError(t, err)

			_, err = ParseClothingAnalysis(string(raw))

			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, field, missing.Field)
			assert.ErrorIs(t, err, ErrInvalidContent)
		})
	}
}

func TestValidate_FirstMissingFieldWins(t *testing.T) {
	a := kemeja
	a.Color = ""
	a.Material = ""

	err := a.Validate()
	assert.EqualError(t, err, "missing required field: color")
}

func TestValidate_EmptyValuesAreMissing(t *testing.T) {
	a := kemeja
	a.Name = ""
	assert.EqualError(t, a.Validate(), "missing required field: name")

	b := kemeja
	b.Tags = []string{}
	assert.EqualError(t, b.Validate(), "missing required field: tags")
}

func TestValidate_WhitespaceValueIsPresent(t *testing.T) {
	a := kemeja
	a.Description = "   "
	assert.NoError(t, a.Validate())
}

func TestParseClothingAnalysis_LenientValues(t *testing.T) {
	tests := []struct {
		name     string
		replace  map[string]any
		wantTags []string
		wantDesc string
	}{
		{"whitespace description", map[string]any{"description": "  "}, kemeja.Tags, "  "},
		{"comma separated tags", map[string]any{"tags": "formal, putih"}, []string{"formal", "putih"}, kemeja.Description},
		{"single tag string", map[string]any{"tags": "formal"}, []string{"formal"}, kemeja.Description},
		{"tag string of separators", map[string]any{"tags": " , "}, []string{" , "}, kemeja.Description},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var obj map[string]any
			require.NoError(t, json.Unmarshal([]byte(kemejaJSON), &obj))
			for k, v := range tt.replace {
				obj[k] = v
			}
			raw, err := json.Marshal(obj)
			require.NoError(t, err)

			got, err := ParseClothingAnalysis(string(raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTags, got.Tags)
			assert.Equal(t, tt.wantDesc, got.Description)
		})
	}
}

func TestParseClothingAnalysis_EmptyTagsAreMissing(t *testing.T) {
	for _, tags := range []string{`[]`, `""`, `null`} {
		input := strings.Replace(kemejaJSON, `["formal","putih","kemeja"]`, tags, 1)
		_, err := ParseClothingAnalysis(input)

		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing, tags)
		assert.Equal(t, "tags", missing.Field)
	}
}

func TestParseClothingAnalysis_NonTextTagsAreMalformed(t *testing.T) {
	input := strings.Replace(kemejaJSON, `["formal","putih","kemeja"]`, `42`, 1)
	_, err := ParseClothingAnalysis(input)
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestExtractJSONObject(t *testing.T) {
	got, err := extractJSONObject(`prefix {"a": {"b": 1}} suffix`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, got)
}
