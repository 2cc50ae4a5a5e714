package llm

import "context"

// ClothingAnalysis is the structured suggestion produced for one clothing
// photo. All fields are required, see Validate.
type ClothingAnalysis struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Condition   string   `json:"condition"`
	Size        string   `json:"size"`
	Tags        []string `json:"tags"`
	Material    string   `json:"material"`
	Occasion    string   `json:"occasion"`
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// AnalysisResult contains the clothing analysis and usage information.
type AnalysisResult struct {
	Item  *ClothingAnalysis
	Usage Usage
	// Attempts is the number of model calls made, 0 when served from cache.
	Attempts int
	Cached   bool
}

// Analyzer can analyze a clothing image and suggest listing fields.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, img Image) (*AnalysisResult, error)
}
