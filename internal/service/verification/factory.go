package verification

import (
	"context"
	"strings"
)

type actionFunc func(context.Context, Event) error

type actionFactory struct {
	byEvent map[string]actionFunc
}

func newActionFactory(onVerified, onCancelled actionFunc) *actionFactory {
	return &actionFactory{
		byEvent: map[string]actionFunc{
			"delivery_verified":      onVerified,
			"verification_cancelled": onCancelled,
			"verification_canceled":  onCancelled,
		},
	}
}

func (f *actionFactory) get(event string) (actionFunc, bool) {
	event = strings.ToLower(strings.TrimSpace(event))
	fn, ok := f.byEvent[event]
	return fn, ok
}
