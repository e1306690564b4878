package summary

import (
	"sync"

	"xdao.co/c2paview/manifest"
)

// Diff describes how a new projection differs from the previous one.
type Diff struct {
	StateChanged bool
	Added        []Kind
	Removed      []Kind
	Changed      []Kind
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return !d.StateChanged && len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare diffs next against prev. Kinds are reported in next's order for
// Added/Changed and prev's order for Removed.
func Compare(prev, next Projection) Diff {
	d := Diff{StateChanged: prev.State != next.State}
	for _, s := range next.Sections {
		old, ok := prev.Lookup(s.Kind())
		switch {
		case !ok:
			d.Added = append(d.Added, s.Kind())
		case !s.equal(old):
			d.Changed = append(d.Changed, s.Kind())
		}
	}
	for _, s := range prev.Sections {
		if _, ok := next.Lookup(s.Kind()); !ok {
			d.Removed = append(d.Removed, s.Kind())
		}
	}
	return d
}

// Tracker is the state-update boundary for a long-lived view: every Update
// recomputes a fresh projection and replaces the previous one wholesale.
type Tracker struct {
	mu      sync.Mutex
	opts    Options
	current Projection
	seen    bool
}

func NewTracker(opts Options) *Tracker {
	return &Tracker{opts: opts}
}

// Update projects store and returns the projection with its diff against the
// previous one. The first Update reports every section as added.
func (t *Tracker) Update(store *manifest.Store) (Projection, Diff) {
	t.mu.Lock()
	opts := t.opts
	t.mu.Unlock()
	return t.UpdateWith(store, opts)
}

// UpdateWith replaces the tracker's options and then behaves like Update, so
// sections the new options add or suppress show up in the diff.
func (t *Tracker) UpdateWith(store *manifest.Store, opts Options) (Projection, Diff) {
	next := Project(store, opts)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.opts = opts
	d := Compare(t.current, next)
	t.current = next
	t.seen = true
	return next, d
}

// Current returns the latest projection and whether one has been computed.
func (t *Tracker) Current() (Projection, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.seen
}
