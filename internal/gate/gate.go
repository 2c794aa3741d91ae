// Package gate answers whether "priority" or "blocking" processes are
// running on the host. It holds two case-insensitive name sets and is a
// pure query surface: callers decide what to do with the answers.
package gate

import (
	"context"
	"strings"
	"sync"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

// DefaultPriority are interactive applications a backup should yield to.
var DefaultPriority = []string{
	"chrome.exe",
	"firefox.exe",
	"msedge.exe",
	"teams.exe",
	"zoom.exe",
}

// DefaultBlocking are applications that hold documents open for writing.
var DefaultBlocking = []string{
	"winword.exe",
	"excel.exe",
	"powerpnt.exe",
	"outlook.exe",
	"soffice.bin",
}

// ProcessLister enumerates the executable names of running processes.
type ProcessLister interface {
	ProcessNames(ctx context.Context) ([]string, error)
}

type Gate struct {
	mu       sync.RWMutex
	priority set.Strings
	blocking set.Strings
	lister   ProcessLister
}

// New creates a gate seeded with the default sets. A nil lister uses the
// host process table.
func New(lister ProcessLister) *Gate {
	if lister == nil {
		lister = HostLister{}
	}
	g := &Gate{
		priority: set.NewStrings(),
		blocking: set.NewStrings(),
		lister:   lister,
	}
	for _, n := range DefaultPriority {
		g.priority.Add(normalize(n))
	}
	for _, n := range DefaultBlocking {
		g.blocking.Add(normalize(n))
	}
	return g
}

// normalize reduces a process name or path to its lowercased base name.
// Both separators are handled so Windows paths match on any host.
func normalize(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

func (g *Gate) AddPriority(names ...string)    { g.update(g.priority, names, true) }
func (g *Gate) RemovePriority(names ...string) { g.update(g.priority, names, false) }
func (g *Gate) AddBlocking(names ...string)    { g.update(g.blocking, names, true) }
func (g *Gate) RemoveBlocking(names ...string) { g.update(g.blocking, names, false) }

func (g *Gate) update(s set.Strings, names []string, add bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range names {
		n = normalize(n)
		if n == "" {
			continue
		}
		if add {
			s.Add(n)
		} else {
			s.Remove(n)
		}
	}
}

func (g *Gate) IsPriority(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.priority.Contains(normalize(name))
}

func (g *Gate) IsBlocking(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.blocking.Contains(normalize(name))
}

// Priority returns the priority set, sorted.
func (g *Gate) Priority() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.priority.SortedValues()
}

// Blocking returns the blocking set, sorted.
func (g *Gate) Blocking() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.blocking.SortedValues()
}

// AnyBlockingRunning reports whether any process in the blocking set is
// currently running.
func (g *Gate) AnyBlockingRunning(ctx context.Context) (bool, error) {
	running, err := g.running(ctx, func() set.Strings { return g.blocking })
	if err != nil {
		return false, errors.Trace(err)
	}
	return !running.IsEmpty(), nil
}

// RunningPriority returns the priority processes currently running, sorted.
func (g *Gate) RunningPriority(ctx context.Context) ([]string, error) {
	running, err := g.running(ctx, func() set.Strings { return g.priority })
	if err != nil {
		return nil, errors.Trace(err)
	}
	return running.SortedValues(), nil
}

// RunningBlocking returns the blocking processes currently running, sorted.
func (g *Gate) RunningBlocking(ctx context.Context) ([]string, error) {
	running, err := g.running(ctx, func() set.Strings { return g.blocking })
	if err != nil {
		return nil, errors.Trace(err)
	}
	return running.SortedValues(), nil
}

// running snapshots the host process list outside the lock and intersects
// it with the chosen set.
func (g *Gate) running(ctx context.Context, which func() set.Strings) (set.Strings, error) {
	names, err := g.lister.ProcessNames(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "listing processes")
	}
	live := set.NewStrings()
	for _, n := range names {
		live.Add(normalize(n))
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	return which().Intersection(live), nil
}
