package canary

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeChannels() (*Channel, *Channel) {
	a, b := net.Pipe()
	return NewStreamChannel(a), NewStreamChannel(b)
}

func TestIntroduceDispatchesMatchingService(t *testing.T) {
	root := NewRoute()
	reached := make(chan string, 1)
	require.NoError(t, root.AddServiceAt("greet", NewService("greet", struct{}{}, func(_ struct{}, ch *Channel, _ *Context) {
		msg, err := Receive[string](ch, FormatBincode)
		if err == nil {
			reached <- msg
		}
	})))

	client, server := pipeChannels()
	done := make(chan error, 1)
	go func() { done <- IntroduceBlocking(server, root) }()

	require.NoError(t, Send(client, FormatBincode, "greet"))
	status, err := ReadStatus(client)
	require.NoError(t, err)
	assert.Equal(t, StatusFound, status)
	require.NoError(t, <-done)

	require.NoError(t, Send(client, FormatBincode, "hello"))
	assert.Equal(t, "hello", <-reached)
}

func TestIntroduceNotFound(t *testing.T) {
	root := NewRoute()
	client, server := pipeChannels()

	done := make(chan error, 1)
	go func() { done <- IntroduceBlocking(server, root) }()

	require.NoError(t, Send(client, FormatBincode, "missing"))
	status, err := ReadStatus(client)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status)
	assert.ErrorIs(t, <-done, ErrNotFound)
}

func TestIntroduceEmptyPath(t *testing.T) {
	root := NewRoute()
	client, server := pipeChannels()

	done := make(chan error, 1)
	go func() { done <- IntroduceBlocking(server, root) }()

	require.NoError(t, Send(client, FormatBincode, ""))
	status, err := ReadStatus(client)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status)
	assert.ErrorIs(t, <-done, ErrInvalidData)
}

func TestIntroduceResolvesNestedSubRoute(t *testing.T) {
	root := NewRoute()
	reached := make(chan struct{}, 1)
	require.NoError(t, root.RegisterRouteAt("admin", func(r *Route) error {
		return r.AddServiceAt("status", NewService("status", struct{}{}, func(_ struct{}, ch *Channel, _ *Context) {
			close(reached)
		}))
	}))

	client, server := pipeChannels()
	done := make(chan error, 1)
	go func() { done <- IntroduceBlocking(server, root) }()

	require.NoError(t, Send(client, FormatBincode, "admin/status"))
	status, err := ReadStatus(client)
	require.NoError(t, err)
	assert.Equal(t, StatusFound, status)
	require.NoError(t, <-done)
	<-reached
}

func TestIntroduceLeadingSlashIsInvalidData(t *testing.T) {
	root := NewRoute()
	require.NoError(t, root.AddServiceAt("echo", noopService("echo")))
	client, server := pipeChannels()

	done := make(chan error, 1)
	go func() { done <- IntroduceBlocking(server, root) }()

	require.NoError(t, Send(client, FormatBincode, "/echo"))
	status, err := ReadStatus(client)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status)
	assert.ErrorIs(t, <-done, ErrInvalidData)
}

func TestIntroduceTrailingSlashIsInvalidData(t *testing.T) {
	root := NewRoute()
	require.NoError(t, root.AddServiceAt("echo", noopService("echo")))
	client, server := pipeChannels()

	done := make(chan error, 1)
	go func() { done <- IntroduceBlocking(server, root) }()

	require.NoError(t, Send(client, FormatBincode, "echo/"))
	status, err := ReadStatus(client)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status)
	assert.ErrorIs(t, <-done, ErrInvalidData)
}

func TestIntroducePathResolvingToRouteNotService(t *testing.T) {
	root := NewRoute()
	require.NoError(t, root.RegisterRouteAt("admin", func(r *Route) error {
		return r.AddServiceAt("status", noopService("status"))
	}))

	status, _, err := resolvePath(root, "admin")
	assert.Equal(t, StatusNotFound, status)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContextRootIsIntroductionStartingRoute(t *testing.T) {
	root := NewRoute()
	var gotRoot *Route
	done := make(chan struct{})
	require.NoError(t, root.AddServiceAt("whoami", NewService("whoami", struct{}{}, func(_ struct{}, _ *Channel, ctx *Context) {
		gotRoot = ctx.Root()
		close(done)
	})))

	client, server := pipeChannels()
	go func() { _ = IntroduceBlocking(server, root) }()

	require.NoError(t, Send(client, FormatBincode, "whoami"))
	_, err := ReadStatus(client)
	require.NoError(t, err)
	<-done
	assert.Same(t, root, gotRoot)
}
