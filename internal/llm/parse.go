package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidContent is the parent of every error caused by the model's
// output rather than by the model service. Such errors are never retried.
var ErrInvalidContent = errors.New("invalid analysis content")

var (
	ErrNoJSON        = fmt.Errorf("%w: no JSON object found in output", ErrInvalidContent)
	ErrMalformedJSON = fmt.Errorf("%w: malformed JSON", ErrInvalidContent)
)

// MissingFieldError reports the first required field that was absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrInvalidContent
}

// RequiredFields lists the analysis fields in validation order.
var RequiredFields = []string{
	"name", "category", "description", "color", "condition", "size", "tags", "material", "occasion",
}

// extractJSONObject returns the text between the first '{' and the last '}'.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// ParseClothingAnalysis extracts and validates a ClothingAnalysis from raw
// model output. Prose around the JSON object is ignored.
func ParseClothingAnalysis(text string) (*ClothingAnalysis, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var raw struct {
		ClothingAnalysis
		Tags tagList `json:"tags"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	analysis := raw.ClothingAnalysis
	analysis.Tags = raw.Tags

	if err := analysis.Validate(); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Validate checks that every required field is present and non-empty.
// Values are taken literally, so a whitespace-only string counts as present.
// The first failing field in RequiredFields order is reported.
func (a *ClothingAnalysis) Validate() error {
	values := map[string]bool{
		"name":        a.Name != "",
		"category":    a.Category != "",
		"description": a.Description != "",
		"color":       a.Color != "",
		"condition":   a.Condition != "",
		"size":        a.Size != "",
		"tags":        len(a.Tags) > 0,
		"material":    a.Material != "",
		"occasion":    a.Occasion != "",
	}
	for _, field := range RequiredFields {
		if !values[field] {
			return &MissingFieldError{Field: field}
		}
	}
	return nil
}

// tagList accepts tags either as an array or as one comma-separated string.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("tags must be an array or a string: %w", err)
	}
	*t = splitTags(text)
	return nil
}

func splitTags(text string) []string {
	if text == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	if len(tags) == 0 {
		return []string{text}
	}
	return tags
}
