package crew

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/ShMcK/crewai-go/agent"
	"github.com/ShMcK/crewai-go/model"
	anthropicmodel "github.com/ShMcK/crewai-go/model/anthropic"
	openaimodel "github.com/ShMcK/crewai-go/model/openai"
)

// ModelProvider is the configuration form of a manager binding: a provider
// name plus optional model id and API key, instantiated into a model client
// at crew construction.
type ModelProvider struct {
	Provider string // "anthropic" or "openai"
	Model    string // provider-specific model id; provider default if empty
	APIKey   string // falls back to the provider's environment variable if empty
}

// manager is the decision-maker of the hierarchical process, resolved once at
// construction into exactly one of its two forms. The agent form is preferred
// wherever both could answer: its persona and tools shape the response.
type manager struct {
	agent *agent.Agent
	llm   model.Model
}

// resolveManager turns the caller-supplied manager value into a manager.
// Accepted shapes: *agent.Agent (used as-is, its own bound model supplies
// decisions), a ready model.Model, or a ModelProvider configuration. Any
// other shape is a construction-time error.
func resolveManager(v any) (*manager, error) {
	switch m := v.(type) {
	case nil:
		return nil, errors.New("hierarchical process requires a manager")
	case *agent.Agent:
		if m == nil {
			return nil, errors.New("hierarchical process requires a manager")
		}
		return &manager{agent: m}, nil
	case model.Model:
		return &manager{llm: m}, nil
	case ModelProvider:
		llm, err := m.build()
		if err != nil {
			return nil, err
		}
		return &manager{llm: llm}, nil
	default:
		return nil, fmt.Errorf("unsupported manager type %T", v)
	}
}

// build instantiates a model client from the provider configuration.
func (p ModelProvider) build() (model.Model, error) {
	switch strings.ToLower(p.Provider) {
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if p.Model != "" {
				o.Model = anthropicsdk.Model(p.Model)
			}
			o.APIKey = p.APIKey
		}), nil
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if p.Model != "" {
				o.Model = p.Model
			}
			o.APIKey = p.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("unknown manager provider %q", p.Provider)
	}
}

// respond obtains the manager's raw text answer for one prompt, via the agent
// form when present, else a direct model chat call.
func (m *manager) respond(ctx context.Context, prompt string) (string, error) {
	if m.agent != nil {
		return m.agent.ExecuteTask(ctx, prompt, "")
	}

	resp, err := m.llm.Generate(ctx, model.Request{
		Messages: []model.Message{model.UserMessage(prompt)},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
