package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tbourn/go-backoffice/internal/listview"
	"github.com/tbourn/go-backoffice/internal/resources"
)

// AdminService is the registry of list pages served under /admin.
type AdminService struct {
	byName map[string]Resource
	names  []string
}

// NewAdminService registers rs. Later duplicates replace earlier ones.
func NewAdminService(rs ...Resource) *AdminService {
	a := &AdminService{byName: make(map[string]Resource, len(rs))}
	for _, r := range rs {
		if _, dup := a.byName[r.Name()]; !dup {
			a.names = append(a.names, r.Name())
		}
		a.byName[r.Name()] = r
	}
	slices.Sort(a.names)
	return a
}

// BuildResources instantiates the five backoffice pages over deps.
// cancelReasonMin is the minimum subscription cancel reason length.
func BuildResources(deps Deps, cancelReasonMin int, opts ...listview.Option) []Resource {
	return []Resource{
		bind(resources.ActivityLogs(), deps, opts),
		bind(resources.PharmacyQuestions(), deps, opts),
		bind(resources.Reviews(), deps, opts),
		bind(resources.Subscriptions(cancelReasonMin), deps, opts),
		bind(resources.VATRates(), deps, opts),
	}
}

func bind[T any](def *resources.Definition[T], deps Deps, opts []listview.Option) Resource {
	return NewListService(def, listview.NewEngine(def.Spec, opts...), deps)
}

// Resource returns the page registered as name.
func (a *AdminService) Resource(name string) (Resource, error) {
	r, ok := a.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return r, nil
}

// Names lists the registered pages in alphabetical order.
func (a *AdminService) Names() []string { return slices.Clone(a.names) }

// Run sweeps idle sessions every interval until ctx is done.
func (a *AdminService) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, r := range a.byName {
				r.Sweep(now)
			}
		}
	}
}

// Close stops every session of every page.
func (a *AdminService) Close() {
	for _, r := range a.byName {
		r.Close()
	}
}
