package canary

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the single-byte reply to an introduction request.
type Status byte

const (
	// StatusFound indicates the requested path resolved to a service,
	// which has now been dispatched the channel.
	StatusFound Status = 1
	// StatusNotFound indicates the requested path did not resolve.
	StatusNotFound Status = 2
)

// IntroduceBlocking reads one path off ch inline, resolves it against
// root, and either dispatches the matching Service or replies NotFound.
// It returns the server-side error (not_found/invalid_data/other) for a
// failed resolution, or nil once the handler has been dispatched.
func IntroduceBlocking(ch *Channel, root *Route) error {
	return introduce(ch, root)
}

// IntroduceSpawning reads the path in a newly spawned goroutine and
// returns immediately to the acceptor. Since no caller is left to observe
// an error, resolution failures are logged at the tracing layer instead
// of returned (spec.md §7: handler/dispatch errors cannot propagate back
// through the acceptor once the channel is owned elsewhere).
func IntroduceSpawning(ch *Channel, root *Route) {
	go func() {
		if err := introduce(ch, root); err != nil {
			logger().WithError(err).WithField("channel", ch.ID()).Warn("introduction failed")
		}
	}()
}

// introduce is the single shared resolution algorithm behind both
// IntroduceBlocking and IntroduceSpawning, per spec.md §9 Open Question
// (a): the "switch" and "introduce" routines are unified here rather than
// duplicated.
func introduce(ch *Channel, root *Route) error {
	path, err := Receive[string](ch, FormatBincode)
	if err != nil {
		return err
	}
	if path == "" {
		_ = ch.SendRaw([]byte{byte(StatusNotFound)})
		return fmt.Errorf("%w: service path is empty", ErrInvalidData)
	}

	status, svc, resolveErr := resolvePath(root, path)
	if status != StatusFound {
		if ch.metrics != nil {
			ch.metrics.IncrementNotFound()
		}
		if err := ch.SendRaw([]byte{byte(status)}); err != nil {
			return err
		}
		return resolveErr
	}
	if ch.metrics != nil {
		ch.metrics.IncrementIntroductions()
	}
	if err := ch.SendRaw([]byte{byte(status)}); err != nil {
		return err
	}

	ctx := &Context{root: root}
	svc.dispatch(ch.Bare(), ctx)
	return nil
}

// resolvePath walks root one path segment at a time. It returns
// StatusFound with the matching Service, or StatusNotFound with the error
// to surface to the server-side caller: invalid_data for a path with an
// empty segment, not_found for an unresolved path, or other for a weak
// route whose target is gone.
func resolvePath(root *Route, path string) (Status, *Service, error) {
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if seg == "" {
			// Leading/trailing/doubled slashes produce an empty segment,
			// which is malformed input, not an unregistered path.
			return StatusNotFound, nil, fmt.Errorf("%w: %q has an empty path segment", ErrInvalidData, path)
		}
	}
	cur := root
	for i, seg := range segments {
		e, ok, err := cur.lookup(seg)
		if err != nil {
			return StatusNotFound, nil, err
		}
		if !ok {
			return StatusNotFound, nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		if e.route != nil {
			cur = e.route
			if i == len(segments)-1 {
				// Segments exhausted mid-walk: the final resolved node is
				// a sub-route, not a handler.
				return StatusNotFound, nil, fmt.Errorf("%w: %q resolves to a route, not a service", ErrNotFound, path)
			}
			continue
		}
		return StatusFound, e.service, nil
	}
	return StatusNotFound, nil, fmt.Errorf("%w: %q", ErrNotFound, path)
}

// ReadStatus reads one record off ch and decodes it as a Status, failing
// with ErrInvalidData if the byte is neither Found nor NotFound. This is
// the client-side counterpart to introduce's reply.
func ReadStatus(ch *Channel) (Status, error) {
	payload, err := ch.ReceiveRaw()
	if err != nil {
		return 0, err
	}
	if len(payload) != 1 {
		return 0, fmt.Errorf("%w: status record has %d bytes, want 1", ErrInvalidData, len(payload))
	}
	switch s := Status(payload[0]); s {
	case StatusFound, StatusNotFound:
		return s, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized status byte %d", ErrInvalidData, payload[0])
	}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
