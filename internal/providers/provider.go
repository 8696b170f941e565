// Package providers defines the Provider abstraction (C2): a stateful
// extension with a typed configuration and a scope, notified at lifecycle
// events and able to mutate the running context via a returned patch.
package providers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/agentsyard/swarmrt/internal/events"
)

// Scope is the lifetime rule governing a provider instance.
type Scope string

const (
	// ScopeGlobal: one instance per process, keyed by configuration
	// equality, shared across every agent that references it.
	ScopeGlobal Scope = "global"
	// ScopeScoped: one instance per (agent name, configuration) pair.
	ScopeScoped Scope = "scoped"
	// ScopeJIT: a fresh instance built, invoked, and discarded per event.
	ScopeJIT Scope = "jit"
)

// Config is a tagged record identifying a provider class, its scope, an
// optional dispatch priority (lower runs earlier), and subtype-specific
// fields. One Config value produces at most one live instance per scope
// key.
type Config struct {
	// Kind names the provider class (e.g. "budget", "debug", "memory").
	// The manager looks up the Factory registered under this name to
	// construct the concrete Provider.
	Kind string `json:"kind"`

	Scope    Scope `json:"scope"`
	Priority int   `json:"priority"`

	// Fields holds subtype-specific configuration. Using a plain map here
	// (rather than a Go sum type per concrete provider) is what lets
	// Key compute structural equality generically: two Config
	// values with equal Kind/Fields collapse to the same key regardless
	// of Go type, matching the spec's "structural equality over
	// configuration fields" resolution of the scope-equality open
	// question (see DESIGN.md).
	Fields map[string]any `json:"fields,omitempty"`
}

// Key computes a structural equality key for this configuration: same
// Kind and same Fields content map to the same key, independent of object
// identity. Scope is part of the key, so two configs that differ only in
// Scope map to distinct keys; for ScopeScoped the manager additionally
// keys instances by agent name.
func (c Config) Key() string {
	// Fields ordering from map iteration is nondeterministic across Go
	// runs, so marshal through a canonical form: encode into a
	// sorted-key map via json.Marshal, which encodes map keys in sorted
	// order per encoding/json's documented behaviour.
	payload := struct {
		Kind   string         `json:"kind"`
		Scope  Scope          `json:"scope"`
		Fields map[string]any `json:"fields,omitempty"`
	}{Kind: c.Kind, Scope: c.Scope, Fields: c.Fields}
	raw, err := json.Marshal(payload)
	if err != nil {
		// Fall back to a key that is at least stable for this value's
		// lifetime, rather than panicking inside manager bookkeeping (fmt
		// prints map keys in sorted order).
		return fmt.Sprintf("%s:%s:%v", c.Kind, c.Scope, c.Fields)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Provider is a pluggable extension: declares which event kinds it
// subscribes to and handles them, optionally returning a context patch.
type Provider interface {
	Config() Config
	// SubscribedEvents lists the event kinds this provider wants
	// dispatched to it. The manager only invokes Handle for these kinds.
	SubscribedEvents() []events.Kind
	// Handle processes one event. A returned error is logged by the
	// manager and does not stop dispatch to subsequent providers (§4.3
	// failure semantics); the error itself never propagates to the
	// orchestrator.
	Handle(ev *events.Event) (*events.ContextPatch, error)
}

// Factory constructs a Provider instance from a Config. Registered per
// Kind so the manager can materialise providers lazily from agent
// configurations without a big type switch living in the manager itself.
type Factory func(cfg Config) (Provider, error)
