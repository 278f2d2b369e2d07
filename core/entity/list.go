package entity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// List holds the dashboard-side view of one entity collection: the items as the
// server last reported them (server order, stable until refetch), the ids with a
// status toggle in flight, and the sticky pagination mode.
//
// Status toggles are confirm-then-apply: no local field is ever mutated before
// the gateway acknowledges the flip.
type List[E Managed[E]] struct {
	name     string
	title    string
	gw       Gateway[E]
	notifier core.Notifier

	mu            sync.Mutex
	items         []E
	totalElements int
	totalPages    int
	complete      bool // items hold the entire collection
	fullFetch     bool // paginated endpoint failed once; never retried this session
	generation    uint64
	pending       map[string]struct{}
}

func NewList[E Managed[E]](name string, gw Gateway[E], notifier core.Notifier) *List[E] {
	title := name
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return &List[E]{
		name:     name,
		title:    title,
		gw:       gw,
		notifier: notifier,
		pending:  make(map[string]struct{}),
	}
}

// Load fetches a page of the collection, or the whole collection when req is nil.
// When the paginated endpoint fails, Load falls back to FetchAll and serves the
// requested page client-side; the paginated endpoint is never retried for the
// remainder of the session, but every later Load still re-fetches the full
// collection so the list keeps tracking upstream changes.
// A failed load leaves previously loaded items untouched; stale responses
// (superseded by a newer Load) are returned to their caller but never applied.
func (l *List[E]) Load(ctx context.Context, req *PageRequest) (Page[E], error) {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	fallback := l.fullFetch
	l.mu.Unlock()

	if req == nil || fallback {
		all, err := l.gw.FetchAll(ctx)
		if err != nil {
			l.notifyError(fmt.Sprintf("loading %s", l.name), err)
			return Page[E]{}, errors.Wrapf(err, "fetching all %s", l.name)
		}
		l.apply(gen, all, len(all), 1, true)
		return clientPage(all, req), nil
	}

	page, err := l.gw.FetchPage(ctx, *req)
	if err == nil {
		l.apply(gen, page.Content, page.TotalElements, page.TotalPages, false)
		return page, nil
	}

	// pagination unavailable; fall back to the full collection
	all, aerr := l.gw.FetchAll(ctx)
	if aerr != nil {
		l.notifyError(fmt.Sprintf("loading %s", l.name), aerr)
		return Page[E]{}, errors.Wrapf(aerr, "fetching all %s", l.name)
	}

	l.mu.Lock()
	if l.generation == gen {
		l.items = all
		l.totalElements = len(all)
		l.totalPages = 1
		l.complete = true
		l.fullFetch = true
	}
	l.mu.Unlock()
	return clientPage(all, req), nil
}

// apply stores a load result unless a newer Load has superseded it.
func (l *List[E]) apply(gen uint64, items []E, totalElements, totalPages int, complete bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generation != gen {
		return
	}
	l.items = items
	l.totalElements = totalElements
	l.totalPages = totalPages
	l.complete = complete
}

// clientPage slices a full collection snapshot into the requested page.
func clientPage[E Managed[E]](items []E, req *PageRequest) Page[E] {
	if req == nil || req.Size <= 0 {
		return Page[E]{Content: items, TotalElements: len(items), TotalPages: 1}
	}
	total := len(items)
	pages := (total + req.Size - 1) / req.Size
	start := req.Page * req.Size
	if start > total {
		start = total
	}
	end := start + req.Size
	if end > total {
		end = total
	}
	content := make([]E, end-start)
	copy(content, items[start:end])
	return Page[E]{Content: content, TotalElements: total, TotalPages: pages}
}

// Filter returns the loaded items whose searchable fields contain term
// (case-insensitive, OR across fields), preserving their original relative
// order. An empty term returns all items. Filter never mutates the list.
func (l *List[E]) Filter(term string) []E {
	items := l.Items()
	term = core.CleanString(term, true /* lower */)
	if term == "" {
		return items
	}
	matches := make([]E, 0, len(items))
	for _, item := range items {
		for _, fld := range item.SearchFields() {
			if strings.Contains(strings.ToLower(fld), term) {
				matches = append(matches, item)
				break
			}
		}
	}
	return matches
}

// ToggleStatus flips one entity between active and inactive. The target
// operation is chosen from the entity's current status read at call time.
// A second call for an id already in flight is a no-op; toggles on different
// ids proceed independently. On failure nothing is mutated locally and the
// error (with the attempted action) is surfaced via the Notifier; resyncing
// with a full Load afterwards is left to the caller.
func (l *List[E]) ToggleStatus(ctx context.Context, id string) (E, error) {
	var zero E

	l.mu.Lock()
	if _, inFlight := l.pending[id]; inFlight {
		item, _ := l.find(id)
		l.mu.Unlock()
		return item, nil
	}
	item, idx := l.find(id)
	if idx < 0 {
		l.mu.Unlock()
		return zero, errors.Wrapf(ErrNotFound, "toggling %s %q", l.name, id)
	}
	l.pending[id] = struct{}{}
	current := item.EntityStatus()
	l.mu.Unlock()

	var (
		action  string
		updated *E
		err     error
	)
	if current.Active() {
		action = "deactivate"
		updated, err = l.gw.SetInactive(ctx, id)
	} else {
		action = "activate"
		updated, err = l.gw.SetActive(ctx, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, id)

	if err != nil {
		l.notifier.Notify(core.Notification{
			Title:   l.title,
			Message: fmt.Sprintf("failed to %s %s %q: %s", action, l.name, id, errMessage(err)),
			Kind:    core.NotifyError,
		})
		return zero, errors.Wrapf(err, "%s %s %q", action, l.name, id)
	}

	if _, idx = l.find(id); idx >= 0 { // order-preserving in-place update
		if updated != nil {
			l.items[idx] = *updated
		} else {
			l.items[idx] = l.items[idx].WithStatus(current.Toggled())
		}
		item = l.items[idx]
	} else if updated != nil {
		item = *updated
	}
	l.notifier.Notify(core.Notification{
		Title:   l.title,
		Message: fmt.Sprintf("%s %q %sd", l.name, id, action),
		Kind:    core.NotifySuccess,
	})
	return item, nil
}

// Pending reports whether a toggle is in flight for id; the UI disables the
// toggle affordance for that row while true.
func (l *List[E]) Pending(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[id]
	return ok
}

// Items returns a copy of the loaded items in server order.
func (l *List[E]) Items() []E {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

func (l *List[E]) Totals() (totalElements, totalPages int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalElements, l.totalPages
}

func (l *List[E]) snapshot() []E {
	items := make([]E, len(l.items))
	copy(items, l.items)
	return items
}

// find must be called with l.mu held.
func (l *List[E]) find(id string) (E, int) {
	for i, item := range l.items {
		if item.EntityID() == id {
			return item, i
		}
	}
	var zero E
	return zero, -1
}

func (l *List[E]) notifyError(action string, err error) {
	l.notifier.Notify(core.Notification{
		Title:   l.title,
		Message: fmt.Sprintf("%s failed: %s", action, errMessage(err)),
		Kind:    core.NotifyError,
	})
}

// errMessage keeps the most specific message available for the user.
func errMessage(err error) string {
	if gerr, ok := errors.Cause(err).(*core.GatewayError); ok {
		return gerr.Message
	}
	if err == nil {
		return "operation failed"
	}
	return err.Error()
}
