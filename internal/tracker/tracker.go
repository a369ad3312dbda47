package tracker

import "context"

// Issue is a tracker-agnostic issue payload.
type Issue struct {
	Title    string
	Body     string
	Labels   []string
	Assignee string
}

// Tracker is an issue-tracker backend Scribe can file extracted tasks with.
type Tracker interface {
	Name() string
	CreateIssue(ctx context.Context, issue *Issue) (ref string, err error)
	UpdateIssue(ctx context.Context, ref string, issue *Issue) error
	CloseIssue(ctx context.Context, ref string) error
}

// Registry holds available trackers keyed by name.
type Registry struct {
	trackers map[string]Tracker
}

// NewRegistry creates an empty tracker registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]Tracker)}
}

// Register adds a tracker to the registry, keyed by its Name.
func (r *Registry) Register(t Tracker) {
	r.trackers[t.Name()] = t
}

// Get retrieves a tracker by name.
func (r *Registry) Get(name string) (Tracker, bool) {
	t, ok := r.trackers[name]
	return t, ok
}

// Names returns the registered tracker names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.trackers))
	for name := range r.trackers {
		out = append(out, name)
	}
	return out
}
