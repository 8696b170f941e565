// Package providermgr implements the provider manager (C3): it owns
// provider instances keyed by scope, creates them lazily from agent
// configurations, fans events out to subscribers in priority order, and
// folds the context patches they return.
//
// The priority-sorted, panic-tolerant dispatch loop is grounded on the
// teacher's internal/hooks/registry.go Registry.Trigger: collect matching
// handlers, stable-sort by priority, invoke each, recover/log failures
// without halting the remaining handlers.
package providermgr

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/agentsyard/swarmrt/internal/events"
	"github.com/agentsyard/swarmrt/internal/providers"
)

// Manager owns provider instances and dispatches events to them.
type Manager struct {
	logger *slog.Logger

	mu sync.RWMutex

	factories map[string]providers.Factory

	global map[string]providers.Provider            // configKey -> instance
	scoped map[string]map[string]providers.Provider // agentName -> configKey -> instance

	configsByAgent map[string][]providers.Config
}

// NewManager creates an empty provider manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:         logger,
		factories:      make(map[string]providers.Factory),
		global:         make(map[string]providers.Provider),
		scoped:         make(map[string]map[string]providers.Provider),
		configsByAgent: make(map[string][]providers.Config),
	}
}

// RegisterFactory makes a provider Kind constructible. Factories are
// looked up by Config.Kind when an agent's configuration needs a new
// instance; a Kind with no registered factory is a ConfigError.
func (m *Manager) RegisterFactory(kind string, f providers.Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[kind] = f
}

// EnsureAgent walks an agent's provider configurations, creating any
// instance that doesn't exist yet (global: keyed by configuration alone;
// scoped: keyed by (agent, configuration); jit: never pre-created). Newly
// created instances are fired a RunStart event synchronously before this
// call returns, satisfying "the manager walks its configurations and
// creates any missing instances before firing RunStart for the new ones"
// (§4.3).
func (m *Manager) EnsureAgent(ev *events.Event, agentName string, configs []providers.Config) error {
	m.mu.Lock()
	m.configsByAgent[agentName] = configs
	var fresh []providers.Provider
	for _, cfg := range configs {
		switch cfg.Scope {
		case providers.ScopeGlobal:
			key := cfg.Key()
			if _, ok := m.global[key]; ok {
				continue
			}
			inst, err := m.build(cfg)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("providermgr: config error materialising global provider %q: %w", cfg.Kind, err)
			}
			m.global[key] = inst
			fresh = append(fresh, inst)
		case providers.ScopeScoped:
			key := cfg.Key()
			byAgent, ok := m.scoped[agentName]
			if !ok {
				byAgent = make(map[string]providers.Provider)
				m.scoped[agentName] = byAgent
			}
			if _, ok := byAgent[key]; ok {
				continue
			}
			inst, err := m.build(cfg)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("providermgr: config error materialising scoped provider %q for agent %q: %w", cfg.Kind, agentName, err)
			}
			byAgent[key] = inst
			fresh = append(fresh, inst)
		case providers.ScopeJIT:
			// never pre-created; built fresh per dispatched event.
		default:
			m.mu.Unlock()
			return fmt.Errorf("providermgr: config error: unknown scope %q for provider %q", cfg.Scope, cfg.Kind)
		}
	}
	m.mu.Unlock()

	for _, inst := range fresh {
		m.fireRunStart(ev, inst)
	}
	return nil
}

func (m *Manager) build(cfg providers.Config) (providers.Provider, error) {
	factory, ok := m.factories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("no factory registered for provider kind %q", cfg.Kind)
	}
	return factory(cfg)
}

func (m *Manager) fireRunStart(ev *events.Event, inst providers.Provider) {
	if !subscribes(inst, events.KindRunStart) {
		return
	}
	startEv := &events.Event{
		Kind:      events.KindRunStart,
		RunID:     ev.RunID,
		Context:   ev.Context,
		Timestamp: ev.Timestamp,
	}
	m.invokeOne(startEv, inst)
}

func subscribes(p providers.Provider, kind events.Kind) bool {
	for _, k := range p.SubscribedEvents() {
		if k == kind {
			return true
		}
	}
	return false
}

// instance pairs a live Provider with the priority its Config declares,
// for stable sorting before dispatch.
type instance struct {
	provider providers.Provider
	priority int
}

// collect gathers every provider instance whose scope touches agentName
// for the given event kind: all globals, all scoped entries for this
// agent, and a fresh jit instance per jit config — each filtered down to
// those subscribed to kind.
func (m *Manager) collect(agentName string, kind events.Kind) ([]instance, []providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []instance
	var jitFresh []providers.Provider

	for _, p := range m.global {
		if subscribes(p, kind) {
			out = append(out, instance{provider: p, priority: p.Config().Priority})
		}
	}
	for _, p := range m.scoped[agentName] {
		if subscribes(p, kind) {
			out = append(out, instance{provider: p, priority: p.Config().Priority})
		}
	}
	for _, cfg := range m.configsByAgent[agentName] {
		if cfg.Scope != providers.ScopeJIT {
			continue
		}
		inst, err := m.build(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("providermgr: config error materialising jit provider %q: %w", cfg.Kind, err)
		}
		if subscribes(inst, kind) {
			out = append(out, instance{provider: inst, priority: inst.Config().Priority})
			jitFresh = append(jitFresh, inst)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].priority < out[j].priority })
	return out, jitFresh, nil
}

// Dispatch fires ev to every subscribed provider instance touching
// ev.Context.CurrentAgent(), in ascending priority order, folding their
// returned patches left-to-right (later overrides earlier for the same
// field). Handler errors are logged and skipped; dispatch always
// continues to the next handler (§4.3 failure semantics) and never
// returns a handler's error to the caller.
func (m *Manager) Dispatch(ev *events.Event) (*events.ContextPatch, error) {
	agentName := ""
	if ev.Context != nil {
		agentName = ev.Context.CurrentAgent()
	}
	instances, jitFresh, err := m.collect(agentName, ev.Kind)
	if err != nil {
		return nil, err
	}

	merged := &events.ContextPatch{}
	for _, inst := range instances {
		patch := m.invokeOne(ev, inst.provider)
		merged.Merge(patch)
	}

	// jit providers never persist and never receive RunStart/RunEnd
	// bookkeeping; they exist only for the duration of this dispatch.
	_ = jitFresh

	return merged, nil
}

// invokeOne calls one provider's Handle, recovering a panic into a log
// line (mirroring the teacher's hooks.Registry.callHandler) and logging a
// returned error without propagating either.
func (m *Manager) invokeOne(ev *events.Event, p providers.Provider) (patch *events.ContextPatch) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("provider handler panicked",
				"provider_kind", p.Config().Kind,
				"event", ev.Kind,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			patch = nil
		}
	}()

	result, err := p.Handle(ev)
	if err != nil {
		m.logger.Warn("provider handler returned an error; skipping, dispatch continues",
			"provider_kind", p.Config().Kind,
			"event", ev.Kind,
			"error", err,
		)
		return nil
	}
	return result
}

// FireRunEnd dispatches RunEnd to every global and every scoped instance
// that still exists, regardless of which agent they were scoped to —
// matching "RunEnd ... once, after loop exits" firing to all instances
// that were ever materialised this run.
func (m *Manager) FireRunEnd(ev *events.Event) {
	m.mu.RLock()
	var all []providers.Provider
	for _, p := range m.global {
		all = append(all, p)
	}
	for _, byAgent := range m.scoped {
		for _, p := range byAgent {
			all = append(all, p)
		}
	}
	m.mu.RUnlock()

	endEv := &events.Event{Kind: events.KindRunEnd, RunID: ev.RunID, Context: ev.Context, Timestamp: ev.Timestamp}
	for _, p := range all {
		if subscribes(p, events.KindRunEnd) {
			m.invokeOne(endEv, p)
		}
	}
}
