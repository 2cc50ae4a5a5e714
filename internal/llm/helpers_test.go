package llm

import (
	"context"
	"sync"
	"time"

	"google.golang.org/genai"
)

const kemejaJSON = `{"name":"Kemeja Putih","category":"Pakaian Formal","description":"Kemeja putih lengan panjang berbahan katun. Cocok untuk acara kantor.","color":"Putih","condition":"good","size":"M","tags":["formal","putih","kemeja"],"material":"Katun","occasion":"Formal"}`

var kemeja = ClothingAnalysis{
	Name:        "Kemeja Putih",
	Category:    "Pakaian Formal",
	Description: "Kemeja putih lengan panjang berbahan katun. Cocok untuk acara kantor.",
	Color:       "Putih",
	Condition:   "good",
	Size:        "M",
	Tags:        []string{"formal", "putih", "kemeja"},
	Material:    "Katun",
	Occasion:    "Formal",
}

// fakeResponse is one scripted reply of fakeGenerator.
type fakeResponse struct {
	text string
	err  error
}

// fakeGenerator replays responses in order, repeating the last one.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     int
	models    []string
	parts     [][]*genai.Part
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	f.models = append(f.models, model)
	if len(contents) > 0 {
		f.parts = append(f.parts, contents[0].Parts)
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	r := f.responses[i]
	if r.err != nil {
		return nil, r.err
	}
	return textResponse(r.text), nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}}},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     1000,
			CandidatesTokenCount: 200,
			TotalTokenCount:      1200,
		},
	}
}

// recordingRetrier never sleeps; it records requested delays instead.
func recordingRetrier(waits *[]time.Duration) *Retrier {
	return &Retrier{
		MaxAttempts: MaxAttempts,
		Backoff:     ExponentialBackoff,
		Wait: func(ctx context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return ctx.Err()
		},
	}
}

func testImage() Image {
	return Image{Data: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, MIMEType: "image/png"}
}

// stubAnalyzer is a scripted Analyzer counting its calls.
type stubAnalyzer struct {
	mu     sync.Mutex
	calls  int
	result *AnalysisResult
	err    error
	hook   func(ctx context.Context)
}

func (s *stubAnalyzer) AnalyzeImage(ctx context.Context, img Image) (*AnalysisResult, error) {
	s.mu.Lock()
	s.calls++
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubAnalyzer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
