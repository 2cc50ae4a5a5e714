package listing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satulemari/partner-service/internal/llm"
)

// countingAnalyzer counts analyses per image and delegates to fn.
type countingAnalyzer struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error)
}

func newCountingAnalyzer(fn func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error)) *countingAnalyzer {
	return &countingAnalyzer{calls: make(map[string]int), fn: fn}
}

func (a *countingAnalyzer) Analyze(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
	a.mu.Lock()
	a.calls[string(img.Data)]++
	a.mu.Unlock()
	return a.fn(ctx, img)
}

func (a *countingAnalyzer) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		n += c
	}
	return n
}

type analyzerFunc func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error)

func (f analyzerFunc) AnalyzeImage(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
	return f(ctx, img)
}

func succeed(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
	return &llm.AnalysisResult{Item: kemeja(), Attempts: 1}, nil
}

func waitIdle(t *testing.T, s *Session) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	return s.Snapshot()
}

func TestSession_PrimaryUploadAnalyzesAndApplies(t *testing.T) {
	a := newCountingAnalyzer(succeed)
	s := NewSession(NewDraft("d1"), a.Analyze, time.Second)
	defer s.Close()

	snap, err := s.SetImage(0, photo("one"))
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzing, snap.State)
	assert.Equal(t, [ImageSlots]bool{true, false}, snap.Images)

	snap = waitIdle(t, s)
	assert.Equal(t, StateSucceeded, snap.State)
	require.NotNil(t, snap.Suggestion)
	assert.Equal(t, "Kemeja Putih", snap.Suggestion.Name)
	assert.Empty(t, snap.Draft.Name, "suggestion must not be applied without user action")

	snap, err = s.Apply(knownCategories)
	require.NoError(t, err)
	assert.Equal(t, StateApplied, snap.State)
	assert.Equal(t, "Kemeja Putih", snap.Draft.Name)
	assert.Equal(t, "Pakaian Formal", snap.Draft.CategoryName)
	assert.Equal(t, 1, a.total())
}

func TestSession_SecondarySlotNeverAnalyzes(t *testing.T) {
	a := newCountingAnalyzer(succeed)
	s := NewSession(NewDraft("d1"), a.Analyze, time.Second)
	defer s.Close()

	snap, err := s.SetImage(1, photo("two"))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)

	waitIdle(t, s)
	assert.Equal(t, 0, a.total())
}

func TestSession_InvalidSlot(t *testing.T) {
	s := NewSession(NewDraft("d1"), nil, 0)
	defer s.Close()

	_, err := s.SetImage(2, photo("x"))
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = s.SetImage(-1, photo("x"))
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestSession_DisabledAnalysisStaysIdle(t *testing.T) {
	s := NewSession(NewDraft("d1"), nil, 0)
	defer s.Close()

	snap, err := s.SetImage(0, photo("one"))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, 0, int(snap.Generation))
}

func TestSession_FailureThenRetry(t *testing.T) {
	var mu sync.Mutex
	fail := true
	a := newCountingAnalyzer(func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, errors.New("model is overloaded")
		}
		return succeed(ctx, img)
	})
	s := NewSession(NewDraft("d1"), a.Analyze, time.Second)
	defer s.Close()

	_, err := s.SetImage(0, photo("one"))
	require.NoError(t, err)
	snap := waitIdle(t, s)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, llm.MsgOverloaded, snap.Failure)
	assert.Nil(t, snap.Suggestion)

	// retries are unbounded while failing
	for i := 0; i < 3; i++ {
		_, err = s.Retry()
		require.NoError(t, err)
		assert.Equal(t, StateFailed, waitIdle(t, s).State)
	}

	mu.Lock()
	fail = false
	mu.Unlock()

	_, err = s.Retry()
	require.NoError(t, err)
	snap = waitIdle(t, s)
	assert.Equal(t, StateSucceeded, snap.State)
	assert.Empty(t, snap.Failure)
	assert.Equal(t, 5, a.total())
}

func TestSession_DismissLeavesDraftUntouched(t *testing.T) {
	a := newCountingAnalyzer(succeed)
	s := NewSession(NewDraft("d1"), a.Analyze, time.Second)
	defer s.Close()

	name := "Nama saya"
	_, err := s.Update(Patch{Name: &name}, knownCategories)
	require.NoError(t, err)
	_, err = s.SetImage(0, photo("one"))
	require.NoError(t, err)
	waitIdle(t, s)

	snap, err := s.Dismiss()
	require.NoError(t, err)
	assert.Equal(t, StateDismissed, snap.State)
	assert.Equal(t, "Nama saya", snap.Draft.Name)

	_, err = s.Apply(knownCategories)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_InvalidTransitions(t *testing.T) {
	a := newCountingAnalyzer(succeed)
	s := NewSession(NewDraft("d1"), a.Analyze, time.Second)
	defer s.Close()

	_, err := s.Apply(knownCategories)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Dismiss()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Retry()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.SetImage(0, photo("one"))
	require.NoError(t, err)
	waitIdle(t, s)

	_, err = s.Retry()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_NewPrimaryUploadCancelsRunningAnalysis(t *testing.T) {
	cancelled := make(chan struct{})
	a := newCountingAnalyzer(func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
		if string(img.Data) == "first" {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		}
		res := &llm.AnalysisResult{Item: kemeja()}
		res.Item.Name = "Gaun Midi"
		return res, nil
	})
	s := NewSession(NewDraft("d1"), a.Analyze, time.Second)
	defer s.Close()

	_, err := s.SetImage(0, photo("first"))
	require.NoError(t, err)
	snap, err := s.SetImage(0, photo("second"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Generation)

	snap = waitIdle(t, s)
	assert.Equal(t, StateSucceeded, snap.State)
	assert.Equal(t, "Gaun Midi", snap.Suggestion.Name)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("first analysis was not cancelled")
	}
}

func TestSession_ReuploadOfSamePhotoWithCacheSucceeds(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	started := make(chan struct{})
	inner := newCountingAnalyzer(func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return succeed(ctx, img)
	})
	cached := llm.NewCachedAnalyzer(analyzerFunc(inner.Analyze), nil, 0)
	s := NewSession(NewDraft("d1"), cached.AnalyzeImage, time.Second)
	defer s.Close()

	_, err := s.SetImage(0, photo("same"))
	require.NoError(t, err)
	<-started
	_, err = s.SetImage(0, photo("same"))
	require.NoError(t, err)

	snap := waitIdle(t, s)
	require.Equal(t, StateSucceeded, snap.State, "failure: %s", snap.Failure)
	assert.Equal(t, "Kemeja Putih", snap.Suggestion.Name)
	assert.Equal(t, 2, inner.total())
}

func TestSession_SupersededResultIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	a := newCountingAnalyzer(func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
		if string(img.Data) == "first" {
			close(started)
			<-release
			// ignores cancellation and reports success late
			return succeed(ctx, img)
		}
		return nil, errors.New("invalid argument")
	})
	s := NewSession(NewDraft("d1"), a.Analyze, time.Second)

	_, err := s.SetImage(0, photo("first"))
	require.NoError(t, err)
	<-started
	_, err = s.SetImage(0, photo("second"))
	require.NoError(t, err)

	snap := waitIdle(t, s)
	assert.Equal(t, StateFailed, snap.State)

	close(release)
	s.Close()

	snap = s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Nil(t, snap.Suggestion)
}

func TestSession_TimeoutFails(t *testing.T) {
	a := newCountingAnalyzer(func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s := NewSession(NewDraft("d1"), a.Analyze, 20*time.Millisecond)
	defer s.Close()

	_, err := s.SetImage(0, photo("one"))
	require.NoError(t, err)

	snap := waitIdle(t, s)
	assert.Equal(t, StateFailed, snap.State)
	assert.ErrorIs(t, s.Err(), context.DeadlineExceeded)
	assert.Equal(t, llm.MsgAnalysisFailed, snap.Failure)
}

func TestSession_CloseCancelsAnalysis(t *testing.T) {
	started := make(chan struct{})
	a := newCountingAnalyzer(func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s := NewSession(NewDraft("d1"), a.Analyze, time.Minute)

	_, err := s.SetImage(0, photo("one"))
	require.NoError(t, err)
	<-started

	s.Close()
	assert.Equal(t, StateAnalyzing, s.Snapshot().State)

	_, err = s.SetImage(0, photo("two"))
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Update(Patch{}, nil)
	assert.ErrorIs(t, err, ErrSessionClosed)

	// closing twice is a no-op
	s.Close()
}

func TestSession_PanickingAnalyzerFails(t *testing.T) {
	a := newCountingAnalyzer(func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
		panic("boom")
	})
	s := NewSession(NewDraft("d1"), a.Analyze, time.Second)
	defer s.Close()

	_, err := s.SetImage(0, photo("one"))
	require.NoError(t, err)
	snap := waitIdle(t, s)
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, s.Err().Error(), "panicked")
}

func TestSession_ReuploadAfterApply(t *testing.T) {
	a := newCountingAnalyzer(succeed)
	s := NewSession(NewDraft("d1"), a.Analyze, time.Second)
	defer s.Close()

	_, err := s.SetImage(0, photo("one"))
	require.NoError(t, err)
	waitIdle(t, s)
	_, err = s.Apply(knownCategories)
	require.NoError(t, err)

	snap, err := s.SetImage(0, photo("two"))
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzing, snap.State)
	assert.Equal(t, StateSucceeded, waitIdle(t, s).State)
}

func TestSession_WaitRespectsContext(t *testing.T) {
	release := make(chan struct{})
	a := newCountingAnalyzer(func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error) {
		<-release
		return succeed(ctx, img)
	})
	s := NewSession(NewDraft("d1"), a.Analyze, time.Minute)
	defer s.Close()
	defer close(release)

	_, err := s.SetImage(0, photo("one"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}
