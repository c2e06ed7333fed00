package prompt

import (
	"fmt"
	"sara-smart-go/internal/model"
	"sara-smart-go/pkg/llm"
)

// Input 是拼装一轮对话提示词所需的输入。
type Input struct {
	Message   string
	History   []model.ChatMessage
	Profile   model.LeadProfile
	Context   ConversationContext
	Persona   Persona
	Knowledge string
	// NextQuestion 是建议 Sara 接下来提出的问题，可为空。
	NextQuestion string
}

// BuildMessages 依次生成：系统提示词 + 客户信息 + 上下文，若干示范问答，以及本轮消息。
func BuildMessages(in Input) []llm.Message {
	system := SystemPrompt(in.Persona, in.Knowledge) + "\n" +
		ClientSection(in.Profile, in.History) + in.Context.Format()
	if in.NextQuestion != "" {
		system += fmt.Sprintf("\n**Próxima Pergunta Sugerida:** %s\n", in.NextQuestion)
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	for _, ex := range RelevantExamples(in.Message, len(in.History)) {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: ex.User},
			llm.Message{Role: llm.RoleAssistant, Content: ex.AssistantJSON()},
		)
	}
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("MENSAGEM DO CLIENTE:\n%s\n\nSua resposta (JSON):", in.Message),
	})
	return msgs
}
