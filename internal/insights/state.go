// Package insights implements the feature-computation pipeline of spec
// §4.4: a time-indexed state store, a dependency-ordered feature graph, a
// warmup-gated Runnable wrapping both, and the feature-kind catalog.
//
// Grounded on _examples/original_source/arkin-insights/src/{service,state}.rs.
package insights

import (
	"sort"
	"sync"
	"time"

	"github.com/arkin-run/arkin/internal/model"
)

// CompositeIndex orders insight values at the same timestamp deterministically:
// Tiebreaker increments on a timestamp collision within one series, grounded
// on arkin-insights/src/state.rs's CompositeIndex::increment loop in insert.
type CompositeIndex struct {
	Timestamp  time.Time
	Tiebreaker int
}

// Less orders by Timestamp then Tiebreaker.
func (c CompositeIndex) Less(o CompositeIndex) bool {
	if !c.Timestamp.Equal(o.Timestamp) {
		return c.Timestamp.Before(o.Timestamp)
	}
	return c.Tiebreaker < o.Tiebreaker
}

type point struct {
	idx   CompositeIndex
	value float64
}

// series is a sorted-slice-backed ordered map from CompositeIndex to value.
// No pack Go repo exercises a generic ordered-map/btree shape for this exact
// need, so this is a documented stdlib fallback (binary-search insert over a
// slice) rather than an unjustified third-party dependency choice.
type series struct {
	points []point
}

func (s *series) insert(ts time.Time, value float64) {
	idx := CompositeIndex{Timestamp: ts}
	i := sort.Search(len(s.points), func(i int) bool { return !s.points[i].idx.Less(idx) })
	for i < len(s.points) && s.points[i].idx.Timestamp.Equal(ts) {
		idx.Tiebreaker++
		i++
	}
	s.points = append(s.points, point{})
	copy(s.points[i+1:], s.points[i:])
	s.points[i] = point{idx: idx, value: value}
}

// last returns the most recent value with timestamp <= at.
func (s *series) last(at time.Time) (float64, bool) {
	i := sort.Search(len(s.points), func(i int) bool { return s.points[i].idx.Timestamp.After(at) })
	if i == 0 {
		return 0, false
	}
	return s.points[i-1].value, true
}

// window returns every value in [at-d, at].
func (s *series) window(at time.Time, d time.Duration) []float64 {
	from := at.Add(-d)
	i := sort.Search(len(s.points), func(i int) bool { return !s.points[i].idx.Timestamp.Before(from) })
	j := sort.Search(len(s.points), func(i int) bool { return s.points[i].idx.Timestamp.After(at) })
	out := make([]float64, 0, j-i)
	for ; i < j; i++ {
		out = append(out, s.points[i].value)
	}
	return out
}

// intervals returns the last n values with timestamp <= at, oldest first.
func (s *series) intervals(at time.Time, n int) []float64 {
	j := sort.Search(len(s.points), func(i int) bool { return s.points[i].idx.Timestamp.After(at) })
	start := j - n
	if start < 0 {
		start = 0
	}
	out := make([]float64, 0, j-start)
	for i := start; i < j; i++ {
		out = append(out, s.points[i].value)
	}
	return out
}

// StateKey identifies one feature series: Instrument nil means an
// instrument-agnostic (global) series.
type StateKey struct {
	Instrument *model.Instrument
	FeatureID  string
}

// State is the insights pipeline's time-indexed feature store. Writes land
// in a pending buffer; Commit atomically swaps the buffer into the live
// store so Graph.Calculate always sees a stable snapshot for one tick, per
// spec §4.4/§5's buffer+swap commit pattern.
type State struct {
	mu      sync.RWMutex
	live    map[StateKey]*series
	pending map[StateKey]*series
	ttl     time.Duration
}

// NewState constructs an empty State. A zero ttl disables pruning.
func NewState(ttl time.Duration) *State {
	return &State{
		live:    make(map[StateKey]*series),
		pending: make(map[StateKey]*series),
		ttl:     ttl,
	}
}

// Prune drops every entry older than State's configured TTL relative to at,
// bounding memory as the store runs forever (spec §4.4).
func (s *State) Prune(at time.Time) {
	if s.ttl <= 0 {
		return
	}
	cutoff := at.Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sr := range s.live {
		i := sort.Search(len(sr.points), func(i int) bool { return sr.points[i].idx.Timestamp.After(cutoff) })
		if i > 0 {
			sr.points = append([]point(nil), sr.points[i:]...)
		}
	}
}

// Insert buffers one insight's value for the next Commit.
func (s *State) Insert(in model.Insight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := StateKey{Instrument: in.Instrument, FeatureID: in.FeatureID}
	sr, ok := s.pending[key]
	if !ok {
		sr = &series{}
		s.pending[key] = sr
	}
	sr.insert(in.EventTime, in.Value)
}

// InsertBatch buffers many insights.
func (s *State) InsertBatch(ins []model.Insight) {
	for _, in := range ins {
		s.Insert(in)
	}
}

// InsertLive writes one insight directly into the live store, bypassing the
// pending buffer, so a node's output is immediately visible to Last/Window/
// Intervals reads from later nodes in the same Graph.Calculate pass (spec
// §4.4 step 4). Used by Graph.Calculate, not by raw-event ingestion, which
// must wait for the next Commit.
func (s *State) InsertLive(in model.Insight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := StateKey{Instrument: in.Instrument, FeatureID: in.FeatureID}
	sr, ok := s.live[key]
	if !ok {
		sr = &series{}
		s.live[key] = sr
	}
	sr.insert(in.EventTime, in.Value)
}

// Commit merges every pending write into the live store and clears the
// buffer, making this tick's inputs visible to Graph.Calculate.
func (s *State) Commit(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sr := range s.pending {
		live, ok := s.live[key]
		if !ok {
			live = &series{}
			s.live[key] = live
		}
		for _, p := range sr.points {
			live.insert(p.idx.Timestamp, p.value)
		}
	}
	s.pending = make(map[StateKey]*series)
}

// Last returns the most recent committed value of featureID for instrument
// at or before at.
func (s *State) Last(instrument *model.Instrument, featureID string, at time.Time) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.live[StateKey{Instrument: instrument, FeatureID: featureID}]
	if !ok {
		return 0, false
	}
	return sr.last(at)
}

// Window returns every committed value within [at-window, at].
func (s *State) Window(instrument *model.Instrument, featureID string, at time.Time, window time.Duration) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.live[StateKey{Instrument: instrument, FeatureID: featureID}]
	if !ok {
		return nil
	}
	return sr.window(at, window)
}

// Intervals returns the last n committed values at or before at, oldest first.
func (s *State) Intervals(instrument *model.Instrument, featureID string, at time.Time, n int) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.live[StateKey{Instrument: instrument, FeatureID: featureID}]
	if !ok {
		return nil
	}
	return sr.intervals(at, n)
}
