package authclient

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Navigator moves the user to another page of the portal.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

type NavigatorFunc func(ctx context.Context, target string)

func (f NavigatorFunc) Navigate(ctx context.Context, target string) {
	f(ctx, target)
}

// RecordingNavigator remembers every target it was asked to visit.
type RecordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *RecordingNavigator) Navigate(_ context.Context, target string) {
	n.mu.Lock()
	n.targets = append(n.targets, target)
	n.mu.Unlock()
	slog.Info("navigate", "component", "navigator", "target", target)
}

func (n *RecordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

func (n *RecordingNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.targets) == 0 {
		return ""
	}
	return n.targets[len(n.targets)-1]
}

// ScheduleRedirect navigates to target after delay. Nothing happens if ctx
// ends or stop is called first; stop reports whether it prevented the
// redirect.
func ScheduleRedirect(ctx context.Context, nav Navigator, target string, delay time.Duration) (stop func() bool) {
	timer := time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		nav.Navigate(ctx, target)
	})
	stopWatch := context.AfterFunc(ctx, func() {
		timer.Stop()
	})

	return func() bool {
		stopWatch()
		return timer.Stop()
	}
}
