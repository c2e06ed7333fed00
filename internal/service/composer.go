package service

import (
	"context"
	"fmt"
	"sara-smart-go/internal/lead"
	"sara-smart-go/internal/model"
	"sara-smart-go/internal/prompt"
	"sara-smart-go/pkg/llm"
	"sara-smart-go/pkg/log"
	"strconv"
	"strings"
	"time"
)

// ModelTemplates 标记由模板生成的回复。
const ModelTemplates = "templates"

// ComposeInput 是生成一轮回复所需的输入。
type ComposeInput struct {
	Message  string
	History  []model.ChatMessage
	Profile  model.LeadProfile
	Intent   model.IntentResult
	Priority *PriorityMatch
	Agent    *AgentMatch
}

// Composition 是生成结果。
type Composition struct {
	Reply     prompt.Reply
	ModelUsed string
	Cost      float64
	FromLLM   bool
}

// Composer 生成 Sara 的回复：优先走 LLM，不可用时使用模板。
type Composer interface {
	Compose(ctx context.Context, in ComposeInput) Composition
}

type composer struct {
	completer llm.Completer
	kb        KnowledgeService
	now       func() time.Time
}

// NewComposer 创建回复生成器，completer 为 nil 时只使用模板。
func NewComposer(completer llm.Completer, kb KnowledgeService) Composer {
	return &composer{completer: completer, kb: kb, now: time.Now}
}

func (c *composer) Compose(ctx context.Context, in ComposeInput) Composition {
	if c.completer != nil {
		out, err := c.composeWithLLM(ctx, in)
		if err == nil {
			return out
		}
		log.Warnf("LLM 回复生成失败，改用模板: %v", err)
	}
	return c.composeWithTemplates(in)
}

func (c *composer) composeWithLLM(ctx context.Context, in ComposeInput) (Composition, error) {
	intent := in.Intent
	maxPriority := ""
	if in.Priority != nil {
		maxPriority = in.Priority.Description
		if in.Priority.Example != "" {
			maxPriority += fmt.Sprintf(" (exemplo: %q)", in.Priority.Example)
		}
	}
	convCtx := prompt.BuildContext(prompt.ContextInput{
		Profile:     in.Profile,
		History:     in.History,
		Intent:      &intent,
		MaxPriority: maxPriority,
	})

	messages := prompt.BuildMessages(prompt.Input{
		Message:      in.Message,
		History:      in.History,
		Profile:      in.Profile,
		Context:      convCtx,
		Persona:      c.kb.Persona(),
		Knowledge:    c.knowledge(in.Agent),
		NextQuestion: lead.SuggestNextQuestion(convCtx.Stage.Name, in.Profile, convCtx.UserMessages, c.kb),
	})

	res, err := c.completer.Complete(ctx, messages, llm.CallOptions{})
	if err != nil {
		return Composition{}, err
	}
	reply := prompt.ParseReply(res.Content)
	if strings.TrimSpace(string(reply.Response)) == "" {
		return Composition{}, fmt.Errorf("empty reply from %s", res.Provider)
	}
	return Composition{Reply: reply, ModelUsed: res.Provider, Cost: res.Cost, FromLLM: true}, nil
}

// knowledge 拼接公司知识与当前专家代理的说明。
func (c *composer) knowledge(agent *AgentMatch) string {
	text := c.kb.CompanyKnowledge()
	if agent == nil {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n## ESPECIALISTA ATIVO\n")
	fmt.Fprintf(&b, "- Agente: %s\n", agent.Agent)
	if agent.Persona.Role != "" {
		fmt.Fprintf(&b, "- Papel: %s\n", agent.Persona.Role)
	}
	fmt.Fprintf(&b, "- Metodologia: %s\n", strings.ToUpper(agent.Methodology))
	if agent.When != "" {
		fmt.Fprintf(&b, "- Quando usar: %s\n", agent.When)
	}
	return b.String()
}

func (c *composer) composeWithTemplates(in ComposeInput) Composition {
	text := prompt.TemplateReply(prompt.TemplateInput{
		Intent:         in.Intent.Intent,
		Message:        in.Message,
		Name:           in.Profile.Name,
		Greeting:       c.kb.Greeting(c.now()),
		ObjectionReply: c.kb.ObjectionReply(in.Message),
	})
	return Composition{
		Reply: prompt.Reply{
			Response:    prompt.Text(text),
			LeadScore:   prompt.Text(strconv.Itoa(in.Profile.Score)),
			Methodology: prompt.Text(in.Intent.Methodology),
		},
		ModelUsed: ModelTemplates,
	}
}
