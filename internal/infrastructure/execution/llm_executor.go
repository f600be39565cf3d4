package execution

import (
	"fmt"
	"strings"

	domexec "github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/llm"
)

// LLMNode is the node body for a chat-completion node: it resolves a
// provider from the model name, sends the bound prompt/message list, and
// exposes the response back onto its own attributes for downstream
// connections to read. When the response comes back with tool calls, the
// node blocks its owning instance rather than completing: those calls need
// an external tool runner (or a human approval) to resolve them, and the
// scheduler is not responsible for resuming a blocked node on its own.
type LLMNode struct {
	Model       string                 `node:"model"`
	SystemPrompt string                `node:"system_prompt"`
	Prompt      string                 `node:"prompt"`
	Temperature float64                `node:"temperature"`
	MaxTokens   int                    `node:"max_tokens"`
	Tools       []interface{}          `node:"tools"`

	Content   string                   `node:"content"`
	ToolCalls []map[string]interface{} `node:"tool_calls"`
	Usage     map[string]interface{}   `node:"usage"`

	// Resolved carries the tool outputs submitted for a previously blocked
	// tool call round; once set, Execute skips straight past the blocking
	// check the way HumanNode skips past pending once Resolved is set.
	Resolved []map[string]interface{} `node:"resolved"`

	clients  map[string]llm.Client
	instance *domexec.NodeInstance
}

// NewLLMNode wires an LLM node body against whichever provider clients are
// configured for this runner.
func NewLLMNode(clients map[string]llm.Client) *LLMNode {
	return &LLMNode{clients: clients}
}

// Bind wires the node's owning NodeInstance so Execute can flip the
// blocking bit once its owning NodeInstance exists.
func (n *LLMNode) Bind(instance *domexec.NodeInstance) { n.instance = instance }

func (n *LLMNode) ClassName() string { return "LLM" }

// NewInstance satisfies execution.Factory: a fresh LLM node carries no
// conversation state worth preserving across a loop re-run, but keeps the
// client set and instance binding.
func (n *LLMNode) NewInstance() domexec.NodeBody {
	return &LLMNode{clients: n.clients, instance: n.instance}
}

func (n *LLMNode) Execute(rc *domexec.RunContext) error {
	if n.Resolved != nil {
		return nil
	}
	if n.Model == "" {
		return fmt.Errorf("llm node: model is required")
	}
	provider := providerFromModel(n.Model)
	client, ok := n.clients[provider]
	if !ok {
		return fmt.Errorf("llm node: no client configured for provider %q", provider)
	}

	messages := make([]llm.Message, 0, 2)
	if n.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: n.SystemPrompt})
	}
	if n.Prompt == "" {
		return fmt.Errorf("llm node: prompt is required")
	}
	messages = append(messages, llm.Message{Role: "user", Content: n.Prompt})

	temperature := float32(n.Temperature)
	maxTokens := n.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	resp, err := client.Complete(rc.Context, llm.CompletionRequest{
		Model:       n.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return err
	}

	n.Content = resp.Content
	n.Usage = map[string]interface{}{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	}
	n.ToolCalls = make([]map[string]interface{}, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		n.ToolCalls[i] = map[string]interface{}{
			"id":        tc.ID,
			"name":      tc.Name,
			"arguments": tc.Arguments,
		}
	}

	if len(n.ToolCalls) > 0 {
		if n.instance == nil {
			return fmt.Errorf("llm node: received tool calls but is not bound to a node instance")
		}
		n.instance.MakeBlocking()
	}
	return nil
}

func providerFromModel(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt-"), strings.HasPrefix(model, "o1-"), strings.HasPrefix(model, "chatgpt"):
		return "openai"
	case strings.HasPrefix(model, "claude-"):
		return "anthropic"
	default:
		return "openai"
	}
}
