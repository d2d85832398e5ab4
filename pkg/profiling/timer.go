// Package profiling adds optional CPU/heap profiles and a nested timing
// summary to the CLI.
package profiling

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	profiler *Profiler
}

func (s *span) Stop() {
	s.profiler.endSpan(s)
}

// Profiler records nested timing spans. The zero value is disabled.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	stack   []*span
	now     func() time.Time
}

var defaultProfiler = &Profiler{}

// Enable turns on the global profiler.
func Enable() {
	defaultProfiler.Enable()
}

// Start begins a span on the global profiler. Call Stop, typically via
// defer, to end it.
func Start(name string) Stopper {
	return defaultProfiler.Start(name)
}

// Summarize writes the global profiler's span tree to w.
func Summarize(w io.Writer) {
	defaultProfiler.Summarize(w)
}

// Enable starts recording. Repeated calls are no-ops.
func (p *Profiler) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enabled {
		return
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.enabled = true
	p.root = &span{name: "total", start: p.now(), profiler: p}
	p.stack = []*span{p.root}
}

// Start opens a child span of the innermost open span.
func (p *Profiler) Start(name string) Stopper {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return noopStopper{}
	}

	parent := p.stack[len(p.stack)-1]
	s := &span{name: name, start: p.now(), profiler: p}
	parent.children = append(parent.children, s)
	p.stack = append(p.stack, s)
	return s
}

func (p *Profiler) endSpan(s *span) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s.duration = p.now().Sub(s.start)
	for i := len(p.stack) - 1; i > 0; i-- {
		if p.stack[i] == s {
			p.stack = p.stack[:i]
			return
		}
	}
}

// Summarize writes the span tree with each span's share of the total.
func (p *Profiler) Summarize(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	total := p.now().Sub(p.root.start)

	fmt.Fprintln(w, "\n--- Timing Profile ---")
	fmt.Fprintf(w, "total %v\n", total.Round(100*time.Microsecond))
	for _, child := range p.root.children {
		printSpan(w, child, 0, total)
	}
	fmt.Fprintln(w, "----------------------")
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(s.duration) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s- %s (%v, %.1f%%)\n", strings.Repeat("  ", depth), s.name, s.duration.Round(100*time.Microsecond), percentage)

	sort.SliceStable(s.children, func(i, j int) bool {
		return s.children[i].start.Before(s.children[j].start)
	})
	for _, child := range s.children {
		printSpan(w, child, depth+1, total)
	}
}

type noopStopper struct{}

func (noopStopper) Stop() {}
