// Package rag 实现检索增强问答链：检索洞察句子、拼装提示词、调用大模型。
package rag

import (
	"fmt"
	"strings"

	"hotel-insights-go/internal/config"
	"hotel-insights-go/internal/model"
	"hotel-insights-go/internal/vectorindex"
	"hotel-insights-go/pkg/llm"
)

// InsufficientContextReply 是问题与预订分析无关时模型应给出的固定回复。
const InsufficientContextReply = "Sorry, Context is insufficient. Please try asking a different analytics question. I'm here to help."

const (
	defaultRules = "You're a Hotel Booking Assistant. Answer the question using the conversation history and the reference context below. " +
		"If the question is not related to the context, respond with \"" + InsufficientContextReply + "\""
	defaultRefStart     = "<<REF>>"
	defaultRefEnd       = "<<END>>"
	defaultNoResultText = "(no matching insights)"

	condenseInstruction = "Given the conversation above, rewrite the last user question as a standalone search query about hotel booking analytics. " +
		"Return only the query."
)

// Prompt 控制系统提示的内容与上下文包裹符。
type Prompt struct {
	Rules        string
	RefStart     string
	RefEnd       string
	NoResultText string
}

// PromptFromConfig 用配置覆盖默认提示，空字段保留默认值。
func PromptFromConfig(cfg config.LLMPromptConfig) Prompt {
	p := Prompt{
		Rules:        defaultRules,
		RefStart:     defaultRefStart,
		RefEnd:       defaultRefEnd,
		NoResultText: defaultNoResultText,
	}
	if cfg.Rules != "" {
		p.Rules = cfg.Rules
	}
	if cfg.RefStart != "" {
		p.RefStart = cfg.RefStart
	}
	if cfg.RefEnd != "" {
		p.RefEnd = cfg.RefEnd
	}
	if cfg.NoResultText != "" {
		p.NoResultText = cfg.NoResultText
	}
	return p
}

// DefaultPrompt 返回内置的提示。
func DefaultPrompt() Prompt {
	return PromptFromConfig(config.LLMPromptConfig{})
}

// contextText 把命中的洞察句子编号拼接。
func contextText(hits []vectorindex.Hit) string {
	var b strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, h.Text)
	}
	return b.String()
}

// SystemMessage 返回规则与包裹后的参考上下文。
func (p Prompt) SystemMessage(hits []vectorindex.Hit) string {
	var sys strings.Builder
	if p.Rules != "" {
		sys.WriteString(p.Rules)
		sys.WriteString("\n\n")
	}
	sys.WriteString(p.RefStart)
	sys.WriteString("\n")
	if len(hits) > 0 {
		sys.WriteString(contextText(hits))
	} else {
		sys.WriteString(p.NoResultText)
		sys.WriteString("\n")
	}
	sys.WriteString(p.RefEnd)
	return sys.String()
}

// Compose 依次放入 system 消息、历史消息和本轮问题。
func (p Prompt) Compose(hits []vectorindex.Hit, history []model.ChatMessage, question string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: model.RoleSystem, Content: p.SystemMessage(hits)})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: model.RoleUser, Content: question})
	return msgs
}

func condenseMessages(history []model.ChatMessage, question string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs,
		llm.Message{Role: model.RoleUser, Content: question},
		llm.Message{Role: model.RoleUser, Content: condenseInstruction},
	)
	return msgs
}
