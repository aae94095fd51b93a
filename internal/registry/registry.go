// Package registry keeps the loaded guides of a workspace and notifies
// watchers when they change.
package registry

import (
	"sort"
	"sync"
	"time"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/guide"
	"github.com/conneroisu/guidebook/internal/validation"
)

// GuideRegistry manages all discovered guides, keyed by file path.
type GuideRegistry struct {
	guides   map[string]*GuideInfo
	mutex    sync.RWMutex
	watchers []chan GuideEvent
}

// GuideInfo holds a loaded guide and what is known about it. Document is nil
// when the file could not be loaded, in which case Err says why.
type GuideInfo struct {
	Path     string
	Document *guide.Document
	Report   *validation.Report
	Err      error
	LastMod  time.Time
	Hash     string
}

// Title returns the guide title, or the path when the guide did not load.
func (g *GuideInfo) Title() string {
	if g.Document != nil && g.Document.Title != "" {
		return g.Document.Title
	}
	return g.Path
}

// OK reports whether the guide loaded and passed validation.
func (g *GuideInfo) OK() bool {
	return g.Err == nil && g.Document != nil && (g.Report == nil || g.Report.OK())
}

// RuleLoad names the issue reported for a guide that failed to load.
const RuleLoad = "load"

// Issues returns the load failure, if any, followed by the validation issues.
func (g *GuideInfo) Issues() []guideerrors.Issue {
	var issues []guideerrors.Issue
	if g.Err != nil {
		issues = append(issues, guideerrors.Issue{
			Rule:     RuleLoad,
			Severity: guideerrors.ErrorSeverityError,
			File:     g.Path,
			Message:  g.Err.Error(),
		})
	}
	if g.Report != nil {
		issues = append(issues, g.Report.Issues...)
	}
	return issues
}

// GuideEvent represents a change in the registry.
type GuideEvent struct {
	Type      EventType
	Guide     *GuideInfo
	Timestamp time.Time
}

// EventType represents the type of registry event.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

func (t EventType) String() string {
	switch t {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// watcherBuffer is the capacity of each watcher channel. Events are dropped
// for a watcher whose buffer is full.
const watcherBuffer = 100

// NewGuideRegistry creates an empty registry.
func NewGuideRegistry() *GuideRegistry {
	return &GuideRegistry{
		guides:   make(map[string]*GuideInfo),
		watchers: make([]chan GuideEvent, 0),
	}
}

// Register adds or replaces the guide stored under info.Path.
func (r *GuideRegistry) Register(info *GuideInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if _, exists := r.guides[info.Path]; exists {
		eventType = EventTypeUpdated
	}
	r.guides[info.Path] = info

	r.notify(GuideEvent{Type: eventType, Guide: info, Timestamp: time.Now()})
}

// Get retrieves a guide by path.
func (r *GuideRegistry) Get(path string) (*GuideInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	info, exists := r.guides[path]
	return info, exists
}

// List returns all registered guides sorted by path.
func (r *GuideRegistry) List() []*GuideInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*GuideInfo, 0, len(r.guides))
	for _, info := range r.guides {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result
}

// Paths returns the registered paths in sorted order.
func (r *GuideRegistry) Paths() []string {
	guides := r.List()
	paths := make([]string, len(guides))
	for i, info := range guides {
		paths[i] = info.Path
	}
	return paths
}

// Remove removes a guide from the registry. Removing an unknown path is a
// no-op and emits no event.
func (r *GuideRegistry) Remove(path string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	info, exists := r.guides[path]
	if !exists {
		return
	}
	delete(r.guides, path)

	r.notify(GuideEvent{Type: EventTypeRemoved, Guide: info, Timestamp: time.Now()})
}

// Watch returns a channel that receives registry events.
func (r *GuideRegistry) Watch() <-chan GuideEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan GuideEvent, watcherBuffer)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *GuideRegistry) UnWatch(ch <-chan GuideEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered guides.
func (r *GuideRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.guides)
}

// notify must be called with the write lock held.
func (r *GuideRegistry) notify(event GuideEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
		}
	}
}
