// Package eventstore records build lifecycle events in SQLite and projects
// them into a build history.
package eventstore

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"
)

// StatusRunning marks a build whose BuildCompleted event has not been seen.
// Finished builds carry their outcome ("success", "failed", "canceled").
const StatusRunning = "running"

const defaultHistorySize = 100

// Unlimited keeps every finished build in a projection.
const Unlimited = -1

// TaskSummary is one task line of a BuildSummary.
type TaskSummary struct {
	Task     string        `json:"task"`
	Result   string        `json:"result"`
	Duration time.Duration `json:"duration"`
	Files    int           `json:"files"`
	Error    string        `json:"error,omitempty"`
}

// BuildSummary is the read model of one build.
type BuildSummary struct {
	BuildID      string        `json:"build_id"`
	Graph        string        `json:"graph"`
	Mode         string        `json:"mode"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Files        int           `json:"files"`
	Tasks        []TaskSummary `json:"tasks,omitempty"`
	ErrorTask    string        `json:"error_task,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

func (s *BuildSummary) clone() *BuildSummary {
	cp := *s
	cp.Tasks = slices.Clone(s.Tasks)
	return &cp
}

// BuildHistoryProjection keeps a bounded, newest-first build history
// reconstructed from the event store.
type BuildHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	builds   map[string]*BuildSummary
	history  []*BuildSummary
	maxSize  int
	lastSync time.Time
}

// NewBuildHistoryProjection creates a projection over store. maxHistorySize
// 0 selects the default of 100; Unlimited (or any negative size) keeps
// everything.
func NewBuildHistoryProjection(store Store, maxHistorySize int) *BuildHistoryProjection {
	if maxHistorySize == 0 {
		maxHistorySize = defaultHistorySize
	}
	p := &BuildHistoryProjection{
		store:   store,
		builds:  make(map[string]*BuildSummary),
		maxSize: maxHistorySize,
	}
	p.history = p.newHistory()
	return p
}

func (p *BuildHistoryProjection) newHistory() []*BuildSummary {
	if p.maxSize < 0 {
		return nil
	}
	return make([]*BuildSummary, 0, min(p.maxSize, defaultHistorySize))
}

func (p *BuildHistoryProjection) trimLocked() {
	if p.maxSize > 0 && len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
}

// Rebuild replays every stored event.
func (p *BuildHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Unix(0, 0), time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.builds = make(map[string]*BuildSummary)
	p.history = p.newHistory()
	for _, event := range events {
		p.applyEventLocked(event)
	}

	slices.SortStableFunc(p.history, func(a, b *BuildSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	p.trimLocked()
	p.pruneBuildsLocked()

	p.lastSync = time.Now()
	return nil
}

// Apply folds a single live event into the projection.
func (p *BuildHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *BuildHistoryProjection) applyEventLocked(event Event) {
	buildID := event.BuildID()
	if buildID == "" {
		return
	}

	summary, exists := p.builds[buildID]
	if !exists {
		summary = &BuildSummary{
			BuildID:   buildID,
			Status:    StatusRunning,
			StartedAt: event.Timestamp(),
		}
		p.builds[buildID] = summary
	}

	switch event.Type() {
	case TypeBuildStarted:
		var data BuildStartedData
		if err := json.Unmarshal(event.Payload(), &data); err == nil {
			summary.Graph = data.Graph
			summary.Mode = data.Mode
		}
		summary.StartedAt = event.Timestamp()

	case TypeTaskCompleted:
		var data TaskCompletedData
		if err := json.Unmarshal(event.Payload(), &data); err == nil {
			summary.Tasks = append(summary.Tasks, TaskSummary{
				Task:     data.Task,
				Result:   data.Result,
				Duration: time.Duration(data.DurationMS) * time.Millisecond,
				Files:    data.Files,
				Error:    data.Error,
			})
		}

	case TypeBuildCompleted:
		at := event.Timestamp()
		summary.CompletedAt = &at
		summary.Duration = at.Sub(summary.StartedAt)
		var data BuildCompletedData
		if err := json.Unmarshal(event.Payload(), &data); err == nil {
			summary.Status = cmp.Or(data.Outcome, summary.Status)
			summary.Files = data.Files
			summary.ErrorTask = data.ErrorTask
			summary.ErrorMessage = data.ErrorMessage
			if data.DurationMS > 0 {
				summary.Duration = time.Duration(data.DurationMS) * time.Millisecond
			}
		}
		p.addToHistoryLocked(summary)
	}
}

func (p *BuildHistoryProjection) addToHistoryLocked(summary *BuildSummary) {
	for _, h := range p.history {
		if h.BuildID == summary.BuildID {
			return
		}
	}
	p.history = append([]*BuildSummary{summary}, p.history...)
	p.trimLocked()
	p.pruneBuildsLocked()
}

// pruneBuildsLocked drops finished builds that fell out of the history.
func (p *BuildHistoryProjection) pruneBuildsLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.BuildID] = struct{}{}
	}
	for id, summary := range p.builds {
		if summary.Status == StatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.builds, id)
		}
	}
}

// GetHistory returns up to limit finished builds, newest first. limit <= 0
// returns the whole history.
func (p *BuildHistoryProjection) GetHistory(limit int) []*BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := len(p.history)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]*BuildSummary, n)
	for i := range n {
		result[i] = p.history[i].clone()
	}
	return result
}

// GetBuild returns a copy of the summary for buildID.
func (p *BuildHistoryProjection) GetBuild(buildID string) (*BuildSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.builds[buildID]
	if !exists {
		return nil, false
	}
	return summary.clone(), true
}

// GetActiveBuild returns the most recently started running build, if any.
func (p *BuildHistoryProjection) GetActiveBuild() *BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var newest *BuildSummary
	for _, summary := range p.builds {
		if summary.Status != StatusRunning {
			continue
		}
		if newest == nil || summary.StartedAt.After(newest.StartedAt) {
			newest = summary
		}
	}
	if newest == nil {
		return nil
	}
	return newest.clone()
}

// FindBuild returns the build whose ID is id or starts with it. An
// ambiguous prefix matches nothing.
func (p *BuildHistoryProjection) FindBuild(id string) (*BuildSummary, bool) {
	if summary, ok := p.GetBuild(id); ok {
		return summary, true
	}
	if id == "" {
		return nil, false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	var match *BuildSummary
	for buildID, summary := range p.builds {
		if !strings.HasPrefix(buildID, id) {
			continue
		}
		if match != nil {
			return nil, false
		}
		match = summary
	}
	if match == nil {
		return nil, false
	}
	return match.clone(), true
}

// GetLastCompletedBuild returns the most recently finished build.
func (p *BuildHistoryProjection) GetLastCompletedBuild() *BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.history) == 0 {
		return nil
	}
	return p.history[0].clone()
}

// LastSyncTime returns when Rebuild last ran.
func (p *BuildHistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
