package providers

import (
	"context"

	"github.com/agentsyard/swarmrt/internal/events"
)

// Recaller is the external, vector-memory collaborator the Memory provider
// depends on. Its implementation (embeddings, vector search) is explicitly
// out of scope for this runtime (spec §1: "the embedding/vector-memory
// service" is an external collaborator); only the provider-side contract
// lives here, grounded on the original source's `memory/api.py` recall
// path and supplemented because spec §4.3's event table names "Memory
// providers inject recalled facts" at Instruct without defining the
// provider.
type Recaller interface {
	Recall(ctx context.Context, query string, limit int) ([]string, error)
}

// Memory is a scoped provider that, on Instruct, recalls facts relevant to
// the conversation so far and injects them into context variables under
// "recalled_facts" for the instruction producer to consume.
type Memory struct {
	cfg      Config
	recaller Recaller
	limit    int
}

// NewMemoryProvider builds a Memory provider bound to a Recaller. Unlike
// the other Factory-style constructors, this one is not registered as a
// bare Factory because it needs an external dependency injected;
// callers wire it directly into an agent's ProviderConfigs via a closure
// factory, e.g. providermgr.Manager.RegisterFactory("memory", func(cfg)
// (Provider, error) { return providers.NewMemoryProvider(cfg, recaller) }).
func NewMemoryProvider(cfg Config, recaller Recaller) (Provider, error) {
	limit := 5
	if raw, ok := cfg.Fields["limit"].(float64); ok && raw > 0 {
		limit = int(raw)
	}
	return &Memory{cfg: cfg, recaller: recaller, limit: limit}, nil
}

func (m *Memory) Config() Config { return m.cfg }

func (m *Memory) SubscribedEvents() []events.Kind {
	return []events.Kind{events.KindInstruct}
}

func (m *Memory) Handle(ev *events.Event) (*events.ContextPatch, error) {
	if m.recaller == nil || ev.Context == nil {
		return nil, nil
	}
	query, _ := ev.Context.Get("last_user_message")
	queryStr, _ := query.(string)
	if queryStr == "" {
		return nil, nil
	}
	facts, err := m.recaller.Recall(context.Background(), queryStr, m.limit)
	if err != nil || len(facts) == 0 {
		return nil, err
	}
	return &events.ContextPatch{ContextVariables: map[string]any{"recalled_facts": facts}}, nil
}
