package mcp

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// ListChangedSignal is a ToolListWatcher and ResourceListWatcher that turns list change notifications
// into a coalescing signal channel. Notifications arriving while a signal is pending are merged into it,
// since one re-fetch covers all of them.
//
// The signal lets the re-fetch run on the consumer's goroutine instead of inside the notification
// callback, where the Client may still be busy with the request that carried the notification.
type ListChangedSignal struct {
	tools     chan struct{}
	resources chan struct{}
}

// NewListChangedSignal creates a ListChangedSignal.
func NewListChangedSignal() *ListChangedSignal {
	return &ListChangedSignal{
		tools:     make(chan struct{}, 1),
		resources: make(chan struct{}, 1),
	}
}

// OnToolListChanged implements ToolListWatcher.
func (s *ListChangedSignal) OnToolListChanged() {
	select {
	case s.tools <- struct{}{}:
	default:
	}
}

// OnResourceListChanged implements ResourceListWatcher.
func (s *ListChangedSignal) OnResourceListChanged() {
	select {
	case s.resources <- struct{}{}:
	default:
	}
}

// Tools returns the channel signalled after "notifications/tools/list_changed".
func (s *ListChangedSignal) Tools() <-chan struct{} {
	return s.tools
}

// Resources returns the channel signalled after "notifications/resources/list_changed".
func (s *ListChangedSignal) Resources() <-chan struct{} {
	return s.resources
}

// WatchToolList is the push delivery strategy: every time changes is signalled, typically by a
// ListChangedSignal registered on c while c.Listen runs, the full tool listing is fetched again and
// passed to onChange. It returns when ctx is done.
func WatchToolList(ctx context.Context, c *Client, changes <-chan struct{}, onChange func([]Tool)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		}

		tools, err := c.ListAllTools(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to re-fetch tools after list change", "err", err)
			continue
		}
		onChange(tools)
	}
}

// PollToolList is the polling delivery strategy for servers or deployments that do not push list change
// notifications. It lists the tools once as a baseline, then again every interval, and calls onChange
// whenever the set of tool names differs from the previous listing. Failed listings are logged and
// retried on the next tick. It returns the error of the baseline listing, or nil once ctx is done.
func PollToolList(ctx context.Context, c *Client, interval time.Duration, onChange func([]Tool)) error {
	tools, err := c.ListAllTools(ctx)
	if err != nil {
		return err
	}
	last := toolNames(tools)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		tools, err := c.ListAllTools(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("failed to poll tools", slog.String("err", err.Error()))
			continue
		}

		names := toolNames(tools)
		if slices.Equal(names, last) {
			continue
		}
		last = names
		onChange(tools)
	}
}

// toolNames returns the sorted tool names, so listings compare as sets.
func toolNames(tools []Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}
