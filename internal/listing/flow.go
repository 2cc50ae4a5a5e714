package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/satulemari/partner-service/internal/llm"
)

// State is the analysis state of a draft.
type State int

const (
	StateIdle State = iota
	StateAnalyzing
	StateSucceeded
	StateFailed
	StateApplied
	StateDismissed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateApplied:
		return "applied"
	case StateDismissed:
		return "dismissed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	ErrSessionClosed     = errors.New("draft session is closed")
	ErrInvalidTransition = errors.New("invalid analysis state transition")
	ErrInvalidSlot       = errors.New("invalid image slot")
	ErrNoPrimaryImage    = errors.New("no primary image to analyze")
)

// AnalyzeFunc runs one clothing analysis.
type AnalyzeFunc func(ctx context.Context, img llm.Image) (*llm.AnalysisResult, error)

// Snapshot is a consistent view of a session.
type Snapshot struct {
	Draft      Draft                 `json:"draft"`
	State      State                 `json:"state"`
	Suggestion *llm.ClothingAnalysis `json:"suggestion,omitempty"`
	Failure    string                `json:"failure,omitempty"`
	Images     [ImageSlots]bool      `json:"images"`
	// Generation counts analyses started for this draft.
	Generation uint64 `json:"generation"`
}

// Session owns a draft and drives the upload-to-apply flow: a primary photo
// upload starts an analysis in the background, and its suggestion is only
// copied onto the draft when the user applies it. A newer primary upload
// cancels and replaces the running analysis.
type Session struct {
	id      string
	analyze AnalyzeFunc
	timeout time.Duration

	mu         sync.Mutex
	draft      Draft
	state      State
	suggestion *llm.ClothingAnalysis
	failure    error
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	closed     bool
	lastActive time.Time

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewSession creates a session for draft. A nil analyze disables analysis:
// uploads are stored but the state stays idle.
func NewSession(draft Draft, analyze AnalyzeFunc, timeout time.Duration) *Session {
	ctx, stop := context.WithCancel(context.Background())
	return &Session{
		id:         draft.ID,
		analyze:    analyze,
		timeout:    timeout,
		draft:      draft,
		lastActive: time.Now(),
		ctx:        ctx,
		stop:       stop,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current draft and analysis state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Draft:      s.draft.clone(),
		State:      s.state,
		Generation: s.generation,
	}
	if s.suggestion != nil {
		sug := *s.suggestion
		snap.Suggestion = &sug
	}
	if s.failure != nil {
		snap.Failure = llm.ClassifyFailure(s.failure).Message()
	}
	for i, p := range s.draft.Images {
		snap.Images[i] = p != nil
	}
	return snap
}

// Err returns the error of the last failed analysis, if the session is in
// the failed state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// LastActive returns when the session was last touched.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Update applies a manual edit to the draft.
func (s *Session) Update(p Patch, known []Category) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	s.draft.ApplyPatch(p, known)
	s.lastActive = time.Now()
	return s.snapshotLocked(), nil
}

// SetImage stores a photo in slot. A photo in slot 0 starts a new analysis,
// cancelling any analysis still running. A nil photo clears the slot.
func (s *Session) SetImage(slot int, photo *Photo) (Snapshot, error) {
	if slot < 0 || slot >= ImageSlots {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}

	s.draft.Images[slot] = photo
	s.lastActive = time.Now()
	if slot == 0 && photo != nil && s.analyze != nil {
		s.startLocked(photo.Image)
	}
	return s.snapshotLocked(), nil
}

// Retry runs the analysis again after a failure.
func (s *Session) Retry() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	if s.state != StateFailed {
		return Snapshot{}, fmt.Errorf("%w: cannot retry from %s", ErrInvalidTransition, s.state)
	}
	primary := s.draft.Images[0]
	if primary == nil || s.analyze == nil {
		return Snapshot{}, ErrNoPrimaryImage
	}

	s.lastActive = time.Now()
	s.startLocked(primary.Image)
	return s.snapshotLocked(), nil
}

// Apply copies the successful suggestion onto the draft.
func (s *Session) Apply(known []Category) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	if s.state != StateSucceeded {
		return Snapshot{}, fmt.Errorf("%w: cannot apply from %s", ErrInvalidTransition, s.state)
	}

	ApplySuggestion(&s.draft, s.suggestion, known)
	s.lastActive = time.Now()
	s.setStateLocked(StateApplied)
	return s.snapshotLocked(), nil
}

// Dismiss discards the suggestion or failure without touching the draft.
func (s *Session) Dismiss() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	if s.state != StateSucceeded && s.state != StateFailed {
		return Snapshot{}, fmt.Errorf("%w: cannot dismiss from %s", ErrInvalidTransition, s.state)
	}

	s.lastActive = time.Now()
	s.setStateLocked(StateDismissed)
	return s.snapshotLocked(), nil
}

// Wait blocks until no analysis is running or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		done := s.done
		analyzing := s.state == StateAnalyzing
		s.mu.Unlock()

		if !analyzing || done == nil {
			return nil
		}
		select {
		case <-done:
			// a newer analysis may have replaced the one we waited on
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels any running analysis and waits for it to stop. The session
// rejects all operations afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stop()
	s.mu.Unlock()

	s.wg.Wait()
	log.Debug().Str("draft", s.id).Msg("draft session closed")
}

func (s *Session) startLocked(img llm.Image) {
	if s.cancel != nil {
		s.cancel()
	}

	s.generation++
	gen := s.generation

	var ctx context.Context
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	done := make(chan struct{})

	s.cancel = cancel
	s.done = done
	s.suggestion = nil
	s.failure = nil
	s.setStateLocked(StateAnalyzing)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		defer cancel()

		result, err := s.runAnalysis(ctx, img)
		s.finish(gen, result, err)
	}()
}

func (s *Session) runAnalysis(ctx context.Context, img llm.Image) (result *llm.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panicked: %v", r)
		}
	}()
	result, err = s.analyze(ctx, img)
	if err == nil && (result == nil || result.Item == nil) {
		err = errors.New("analysis returned no result")
	}
	return result, err
}

func (s *Session) finish(gen uint64, result *llm.AnalysisResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		log.Debug().Str("draft", s.id).Uint64("generation", gen).Msg("discarding superseded analysis result")
		return
	}

	s.cancel = nil
	if err != nil {
		s.failure = err
		s.setStateLocked(StateFailed)
		return
	}
	s.suggestion = result.Item
	s.setStateLocked(StateSucceeded)
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	log.Info().
		Str("draft", s.id).
		Str("from", s.state.String()).
		Str("to", next.String()).
		Uint64("generation", s.generation).
		Msg("draft analysis state changed")
	s.state = next
}
