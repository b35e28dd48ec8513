package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/config"
)

// Deps holds the collaborators actions are wired against. Bridge may be
// nil when the uplink is disabled; Publisher may be nil only if no
// publish actions or periodic publishers are configured.
type Deps struct {
	Publisher Publisher
	Bridge    BridgePublisher
	Logger    Logger
}

// rule is one compiled pattern with its action chain.
type rule struct {
	pattern string
	actions []Action
}

// periodic is one compiled periodic publisher.
type periodic struct {
	interval time.Duration
	topic    string
	payload  string
}

// Engine holds the compiled rules and periodic publishers.
//
// Build it once at startup with NewEngine, register its handlers with
// Bind, then launch the publishers with StartPublishers.
type Engine struct {
	rules     []rule
	periodics []periodic
	publisher Publisher
	logger    Logger

	wg sync.WaitGroup
}

// NewEngine compiles rule and publisher configuration into an engine.
//
// Parameters:
//   - rules: Rule configuration from config.yaml
//   - publishers: Periodic publisher configuration from config.yaml
//   - deps: Wired collaborators
//
// Returns:
//   - *Engine: Compiled engine
//   - error: If an action references an unavailable collaborator or has
//     an unknown type
func NewEngine(rules []config.RuleConfig, publishers []config.PublisherConfig, deps Deps) (*Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	e := &Engine{
		publisher: deps.Publisher,
		logger:    logger,
	}

	for i, rc := range rules {
		if len(rc.Actions) == 0 {
			return nil, fmt.Errorf("rules[%d] %q: %w", i, rc.Pattern, ErrNoActions)
		}
		compiled := rule{pattern: rc.Pattern}
		for j, ac := range rc.Actions {
			action, err := e.compileAction(ac, deps)
			if err != nil {
				return nil, fmt.Errorf("rules[%d].actions[%d]: %w", i, j, err)
			}
			compiled.actions = append(compiled.actions, action)
		}
		e.rules = append(e.rules, compiled)
	}

	for i, pc := range publishers {
		if deps.Publisher == nil {
			return nil, fmt.Errorf("publishers[%d] %q: %w", i, pc.Topic, ErrPublisherUnavailable)
		}
		e.periodics = append(e.periodics, periodic{
			interval: pc.Interval,
			topic:    pc.Topic,
			payload:  pc.Payload,
		})
	}

	return e, nil
}

func (e *Engine) compileAction(ac config.ActionConfig, deps Deps) (Action, error) {
	switch ac.Type {
	case "log":
		return &logAction{logger: e.logger}, nil
	case "publish":
		if deps.Publisher == nil {
			return nil, ErrPublisherUnavailable
		}
		return &publishAction{
			publisher: deps.Publisher,
			topic:     ac.Topic,
			payload:   ac.Payload,
		}, nil
	case "bridge":
		if deps.Bridge == nil {
			return nil, ErrBridgeUnavailable
		}
		return &bridgeAction{
			bridge: deps.Bridge,
			topic:  ac.Topic,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, ac.Type)
	}
}

// Bind registers one handler per rule through the given subscribe
// function, in configuration order. The handler runs every action in its
// rule's chain; an action error is logged and the chain continues.
func (e *Engine) Bind(subscribe func(pattern string, handler func(topic string, payload []byte))) {
	for i := range e.rules {
		r := &e.rules[i]
		subscribe(r.pattern, func(topic string, payload []byte) {
			msg := Message{Topic: topic, Payload: payload}
			for _, action := range r.actions {
				if err := action.Execute(msg); err != nil {
					e.logger.Warn("rule action failed",
						"pattern", r.pattern,
						"action", action.Describe(),
						"topic", topic,
						"error", err,
					)
				}
			}
		})
	}
}

// RuleCount returns the number of compiled rules.
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// Patterns returns the compiled rule patterns in configuration order.
func (e *Engine) Patterns() []string {
	patterns := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		patterns = append(patterns, r.pattern)
	}
	return patterns
}

// StartPublishers launches one goroutine per periodic publisher. They
// stop when ctx is cancelled; Wait blocks until all have stopped.
func (e *Engine) StartPublishers(ctx context.Context) {
	for _, p := range e.periodics {
		p := p
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			ticker := time.NewTicker(p.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					payload := Expand(p.payload, Message{})
					e.publisher.Publish(p.topic, []byte(payload))
				}
			}
		}()
	}
}

// Wait blocks until all periodic publishers have stopped.
func (e *Engine) Wait() {
	e.wg.Wait()
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}
