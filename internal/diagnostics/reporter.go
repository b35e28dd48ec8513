package diagnostics

import (
	"context"
	"sync"
	"time"

	"github.com/megageek/esphome-espnow-pubsub/internal/espnow"
	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/influxdb"
	"github.com/megageek/esphome-espnow-pubsub/internal/pubsub"
)

// Logger is the logging surface the reporter needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Reporter forwards node diagnostics to the configured sinks.
//
// Counters and RSSI go to InfluxDB; status lines and link state
// transitions go to the journal, deduplicated so a stable status does not
// flood it. Both sinks are optional and failures are logged, never
// propagated to the message path.
type Reporter struct {
	node    *pubsub.Node
	link    *espnow.Link
	metrics *influxdb.Client
	journal *Journal
	logger  Logger

	mu         sync.Mutex
	lastStatus string
	lastState  string
}

// NewReporter creates a reporter. metrics, journal and logger may each be
// nil; the corresponding output is skipped.
func NewReporter(node *pubsub.Node, link *espnow.Link, metrics *influxdb.Client, journal *Journal, logger Logger) *Reporter {
	return &Reporter{
		node:    node,
		link:    link,
		metrics: metrics,
		journal: journal,
		logger:  logger,
	}
}

// Flush writes the current counters and status to the sinks. Wired as the
// node's post-batch hook and called by the periodic loop.
func (r *Reporter) Flush(ctx context.Context) {
	if r.metrics != nil {
		r.metrics.WriteNodeCounters(
			r.node.Name(),
			r.node.SentCount(),
			r.node.ReceivedCount(),
			r.node.OverflowCount(),
			r.node.QueueDepth(),
		)
		r.metrics.WriteRSSI(r.node.Name(), r.node.LastRSSI())
	}
	r.recordStatus(ctx, r.node.LastStatus())
}

// RecordLinkState persists a link state transition. Wired as the link's
// state change hook.
func (r *Reporter) RecordLinkState(state espnow.LinkState, status string) {
	r.mu.Lock()
	changed := state.String() != r.lastState
	r.lastState = state.String()
	r.mu.Unlock()
	if !changed {
		return
	}

	if r.metrics != nil {
		r.metrics.WriteLinkState(
			r.node.Name(),
			state.String(),
			r.link.ObservedChannel(),
			r.link.ChannelCompatible(),
		)
	}
	if r.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.journal.Record(ctx, r.node.Name(), EntryLinkState, state.String()); err != nil && r.logger != nil {
			r.logger.Warn("failed to journal link state", "error", err)
		}
	}
	if status != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r.recordStatus(ctx, status)
	}
}

// recordStatus journals a status line when it differs from the previous
// one.
func (r *Reporter) recordStatus(ctx context.Context, status string) {
	if status == "" || r.journal == nil {
		return
	}
	r.mu.Lock()
	changed := status != r.lastStatus
	r.lastStatus = status
	r.mu.Unlock()
	if !changed {
		return
	}

	if err := r.journal.Record(ctx, r.node.Name(), EntryStatus, status); err != nil && r.logger != nil {
		r.logger.Warn("failed to journal status", "error", err)
	}
}

// Run periodically flushes diagnostics and prunes the journal until ctx
// is cancelled.
//
// Parameters:
//   - ctx: Cancellation context
//   - interval: Flush period
//   - retention: Journal retention; zero disables pruning
func (r *Reporter) Run(ctx context.Context, interval time.Duration, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Flush(ctx)
			if retention > 0 && r.journal != nil {
				if n, err := r.journal.Prune(ctx, retention); err != nil {
					if r.logger != nil {
						r.logger.Warn("journal prune failed", "error", err)
					}
				} else if n > 0 && r.logger != nil {
					r.logger.Debug("pruned journal entries", "count", n)
				}
			}
		}
	}
}
