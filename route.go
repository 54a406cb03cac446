package canary

import (
	"fmt"
	"sync"
	"weak"
)

// routeKind tags which of the three ownership variants a Route is:
// owned (holds its own storage), static (an immutable reference to a
// process-lifetime Route, used by the global default), or weak (a
// non-owning reference resolved on use, which can fail if the target has
// been dropped).
type routeKind int

const (
	routeOwned routeKind = iota
	routeStatic
	routeWeak
)

// entry is what a Route maps a path segment to: either a sub-Route or a
// Service handler, never both.
type entry struct {
	route   *Route
	service *Service
}

// Route is a mapping from path-segment string to either a child Route or
// a Service handler. Lookups are single-segment; multi-segment resolution
// is driven by the introduction protocol (introduce.go), not stored here.
// The underlying map is a sync.Map, safe for concurrent read, insert, and
// remove, with insert exclusivity guaranteed by LoadOrStore.
type Route struct {
	kind  routeKind
	store *sync.Map          // set for routeOwned/routeStatic
	weak  weak.Pointer[sync.Map] // set for routeWeak
}

// NewRoute creates an owned Route with its own storage.
func NewRoute() *Route {
	return &Route{kind: routeOwned, store: &sync.Map{}}
}

// newStaticRoute creates a Route intended to live for the process, such
// as the global default route.
func newStaticRoute() *Route {
	return &Route{kind: routeStatic, store: &sync.Map{}}
}

// NewWeakRoute creates a non-owning reference to target. Operations on
// the returned Route fail with ErrOther if target has since been garbage
// collected.
func NewWeakRoute(target *Route) *Route {
	return &Route{kind: routeWeak, weak: weak.Make(target.store)}
}

// globalRoute is the lazily-initialized, process-lifetime default route
// that top-level services register against.
var globalRoute = newStaticRoute()

// GlobalRoute returns the process-wide default Route.
func GlobalRoute() *Route { return globalRoute }

// resolveStore returns the concrete map backing this Route, failing for a
// weak Route whose target has been collected.
func (r *Route) resolveStore() (*sync.Map, error) {
	if r.kind != routeWeak {
		return r.store, nil
	}
	m := r.weak.Value()
	if m == nil {
		return nil, fmt.Errorf("%w: weak route target has been dropped", ErrOther)
	}
	return m, nil
}

// insert adds key -> e if key is not already present.
func (r *Route) insert(key string, e entry) error {
	m, err := r.resolveStore()
	if err != nil {
		return err
	}
	if _, loaded := m.LoadOrStore(key, e); loaded {
		return fmt.Errorf("%w: key %q already exists", ErrInUse, key)
	}
	return nil
}

// lookup returns the entry stored at key, if any.
func (r *Route) lookup(key string) (entry, bool, error) {
	m, err := r.resolveStore()
	if err != nil {
		return entry{}, false, err
	}
	v, ok := m.Load(key)
	if !ok {
		return entry{}, false, nil
	}
	return v.(entry), true, nil
}

// removeAtKey removes and returns the entry stored at key.
func (r *Route) removeAtKey(key string) (entry, error) {
	m, err := r.resolveStore()
	if err != nil {
		return entry{}, err
	}
	v, loaded := m.LoadAndDelete(key)
	if !loaded {
		return entry{}, fmt.Errorf("%w: %q doesn't exist", ErrNotFound, key)
	}
	return v.(entry), nil
}

// AddServiceAt installs svc at the given path segment.
func (r *Route) AddServiceAt(key string, svc *Service) error {
	return r.insert(key, entry{service: svc})
}

// AddService installs svc at its own declared endpoint name.
func (r *Route) AddService(svc *Service) error {
	return r.AddServiceAt(svc.Endpoint, svc)
}

// RemoveService removes svc from its declared endpoint name.
func (r *Route) RemoveService(svc *Service) error {
	return r.RemoveAt(svc.Endpoint)
}

// RemoveAt removes whatever is stored (service or sub-route) at key.
func (r *Route) RemoveAt(key string) error {
	_, err := r.removeAtKey(key)
	return err
}

// AddRouteAt installs sub as a child route at the given path segment.
//
// Sub-routes must not form cycles; this is not detected here. Callers
// that dynamically attach routes are responsible for not creating a
// cycle (spec.md §9, "Hierarchical ownership cycles").
func (r *Route) AddRouteAt(key string, sub *Route) error {
	return r.insert(key, entry{route: sub})
}

// RegisterFunc populates a fresh Route, typically by installing services
// and further sub-routes on it.
type RegisterFunc func(route *Route) error

// Registrar pairs a RegisterFunc with the endpoint name it should be
// installed at when no explicit key is given, mirroring the Rust
// Register/RegisterEndpoint traits this is grounded on.
type Registrar struct {
	Endpoint string
	Register RegisterFunc
}

// RemoveRegistered builds a fresh Route via reg.Register, same as
// RegisterRoute, but immediately tears it back down instead of installing
// it: every service and sub-route reg.Register would have added is
// removed from the fresh Route as soon as it's built. This is useful for
// validating that a Registrar's Register func is self-consistent (it
// doesn't panic or error building its tree) without leaving any trace
// behind, mirroring the original implementation's remove_register.
func (r *Route) RemoveRegistered(reg Registrar) error {
	sub := NewRoute()
	if err := reg.Register(sub); err != nil {
		return err
	}
	m, err := sub.resolveStore()
	if err != nil {
		return err
	}
	m.Range(func(key, _ any) bool {
		m.Delete(key)
		return true
	})
	return nil
}

// RegisterRouteAt builds a fresh Route via fn and installs it at key.
func (r *Route) RegisterRouteAt(key string, fn RegisterFunc) error {
	sub := NewRoute()
	if err := fn(sub); err != nil {
		return err
	}
	return r.AddRouteAt(key, sub)
}

// RegisterRoute builds a fresh Route via reg.Register and installs it at
// reg.Endpoint.
func (r *Route) RegisterRoute(reg Registrar) error {
	return r.RegisterRouteAt(reg.Endpoint, reg.Register)
}

// Register invokes reg.Register directly against r, without creating a
// sub-route.
func (r *Route) Register(reg Registrar) error {
	return reg.Register(r)
}

// Service is an opaque callable that, given a Channel and a Context,
// takes ownership of the channel and spawns its own work. It is
// constructed once per registration by binding user metadata into the
// handler closure; subsequent invocations share that metadata.
type Service struct {
	Endpoint string
	dispatch func(ch *Channel, ctx *Context)
}

// NewService packages fn, together with metadata captured once at
// registration, into a Service bound to endpoint. Every dispatch spawns a
// fresh goroutine running fn with the captured metadata: dispatch is
// always fire-and-forget, so the framework itself guarantees the
// "coroutine MUST be asynchronous" requirement rather than enforcing it
// as a precondition on fn.
func NewService[M any](endpoint string, meta M, fn func(meta M, ch *Channel, ctx *Context)) *Service {
	return &Service{
		Endpoint: endpoint,
		dispatch: func(ch *Channel, ctx *Context) {
			go fn(meta, ch, ctx)
		},
	}
}

// Context is passed to every Service invocation. It exposes the root
// Route under which the handler was dispatched — the route at which
// introduction began, not any sub-route walked through to find the
// handler — so the handler can look up peer services without relying on
// package-level globals.
type Context struct {
	root *Route
}

// Root returns the route the dispatching introduction started from.
func (c *Context) Root() *Route { return c.root }
