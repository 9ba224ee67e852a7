// Package dispatch hides platform transports behind a capability interface.
// Implementations classify every failure as transient (worth retrying) or
// permanent (invalid destination, bad credentials), because the two are
// handled very differently upstream.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/journeykit/delivery/internal/model"
)

type Dispatcher interface {
	SendText(ctx context.Context, destination, text string) error
	SendMedia(ctx context.Context, destination string, media model.MediaType, mediaURL, caption string) error
}

// Error is a classified transport failure.
type Error struct {
	Permanent bool
	Err       error
}

func (e *Error) Error() string {
	if e.Permanent {
		return "permanent send failure: " + e.Err.Error()
	}
	return "transient send failure: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func transientf(format string, args ...any) error {
	return &Error{Err: fmt.Errorf(format, args...)}
}

func permanentf(format string, args ...any) error {
	return &Error{Permanent: true, Err: fmt.Errorf(format, args...)}
}

// IsPermanent reports whether err is a classified permanent failure.
// Unclassified errors (network layer, context) count as transient.
func IsPermanent(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Permanent
}

// Selector resolves the dispatcher for a recipient's platform.
type Selector struct {
	byPlatform map[model.Platform]Dispatcher
}

func NewSelector(byPlatform map[model.Platform]Dispatcher) *Selector {
	return &Selector{byPlatform: byPlatform}
}

// Select returns the dispatcher for p. An unconfigured platform is a
// permanent failure: retrying cannot fix it.
func (s *Selector) Select(p model.Platform) (Dispatcher, error) {
	d, ok := s.byPlatform[p]
	if !ok {
		return nil, permanentf("no dispatcher configured for platform %q", p)
	}
	return d, nil
}
