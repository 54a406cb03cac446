package canary

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopService(endpoint string) *Service {
	return NewService(endpoint, struct{}{}, func(struct{}, *Channel, *Context) {})
}

func TestRouteAddServiceAtLookup(t *testing.T) {
	r := NewRoute()
	svc := noopService("greet")
	require.NoError(t, r.AddServiceAt("greet", svc))

	e, ok, err := r.lookup("greet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, svc, e.service)
}

func TestRouteAddServiceAtDuplicateKeyFails(t *testing.T) {
	r := NewRoute()
	require.NoError(t, r.AddServiceAt("greet", noopService("greet")))

	err := r.AddServiceAt("greet", noopService("greet"))
	assert.ErrorIs(t, err, ErrInUse)
}

func TestRouteConcurrentInsertExactlyOneWins(t *testing.T) {
	r := NewRoute()
	const n = 64

	var wg sync.WaitGroup
	successes := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			successes[i] = r.AddServiceAt("contended", noopService("contended")) == nil
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range successes {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestRouteRemoveAt(t *testing.T) {
	r := NewRoute()
	require.NoError(t, r.AddServiceAt("greet", noopService("greet")))
	require.NoError(t, r.RemoveAt("greet"))

	_, ok, err := r.lookup("greet")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, r.RemoveAt("greet"), ErrNotFound)
}

func TestRouteAddRouteAtNesting(t *testing.T) {
	root := NewRoute()
	sub := NewRoute()
	require.NoError(t, sub.AddServiceAt("ping", noopService("ping")))
	require.NoError(t, root.AddRouteAt("sub", sub))

	e, ok, err := root.lookup("sub")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, sub, e.route)
}

func TestRegisterRouteAtBuildsFreshSubRoute(t *testing.T) {
	root := NewRoute()
	require.NoError(t, root.RegisterRouteAt("sub", func(r *Route) error {
		return r.AddServiceAt("ping", noopService("ping"))
	}))

	status, _, err := resolvePath(root, "sub/ping")
	require.NoError(t, err)
	assert.Equal(t, StatusFound, status)
}

func TestRemoveRegisteredLeavesNoTrace(t *testing.T) {
	root := NewRoute()
	reg := Registrar{
		Endpoint: "temp",
		Register: func(r *Route) error {
			return r.AddServiceAt("ping", noopService("ping"))
		},
	}

	require.NoError(t, root.RemoveRegistered(reg))

	// RemoveRegistered must not install anything on root itself.
	_, ok, err := root.lookup("temp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWeakRouteFailsAfterTargetCollected(t *testing.T) {
	target := NewRoute()
	weakRoute := NewWeakRoute(target)

	e, ok, err := weakRoute.lookup("anything")
	require.NoError(t, err)
	assert.False(t, ok)
	_ = e

	target = nil
	runtime.GC()
	runtime.GC()

	_, _, err = weakRoute.lookup("anything")
	assert.ErrorIs(t, err, ErrOther)
}

func TestNewServiceDispatchIsAsynchronous(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	svc := NewService("async", 7, func(meta int, ch *Channel, ctx *Context) {
		// Blocks until dispatch has returned; a synchronous dispatch
		// would never return and the test would hang.
		<-release
		assert.Equal(t, 7, meta)
		close(done)
	})

	svc.dispatch(nil, nil)
	close(release)
	<-done
}
