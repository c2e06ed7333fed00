package lead

import "sara-smart-go/internal/model"

// ResolveStage 由分数和已交换的消息数推出会话阶段，负数按 0 处理。
func ResolveStage(score, messageCount int) model.Stage {
	switch {
	case score >= 3:
		return model.StageClosing
	case score >= 2:
		return model.StageQualification
	case messageCount <= 0:
		return model.StageInitial
	case messageCount <= 5:
		return model.StageDiscovery
	}
	return model.StageNurturing
}

// StageInfo 描述一个阶段及其在该阶段的首要任务。
type StageInfo struct {
	Name        model.Stage `json:"name"`
	Description string      `json:"description"`
	Priority    string      `json:"priority"`
}

var stageInfos = map[model.Stage]StageInfo{
	model.StageClosing:       {model.StageClosing, "Fechamento de venda", "Pedir dados para proposta e agendar"},
	model.StageQualification: {model.StageQualification, "Qualificação ativa", "Completar critérios BANT"},
	model.StageInitial:       {model.StageInitial, "Primeiro contato", "Cumprimentar e descobrir necessidade"},
	model.StageDiscovery:     {model.StageDiscovery, "Descoberta de necessidades", "Aplicar SPIN para entender problema"},
	model.StageNurturing:     {model.StageNurturing, "Nutrição de lead", "Demonstrar valor e construir relacionamento"},
}

// Describe 返回阶段说明。
func Describe(stage model.Stage) StageInfo {
	if info, ok := stageInfos[stage]; ok {
		return info
	}
	return stageInfos[model.StageInitial]
}

// NextAction 接受 LLM 建议的合法动作，否则按分数给出默认动作。
func NextAction(score int, suggested string) model.NextAction {
	if a := model.NextAction(suggested); a.Valid() {
		return a
	}
	switch {
	case score >= 3:
		return model.ActionClose
	case score >= 2:
		return model.ActionQualify
	}
	return model.ActionDiscoverNeed
}

// SPINQuestions 是 SPIN 各阶段的提问。
type SPINQuestions struct {
	Situation   string `json:"situacao" mapstructure:"situacao"`
	Problem     string `json:"problema" mapstructure:"problema"`
	Implication string `json:"implicacao" mapstructure:"implicacao"`
	NeedPayoff  string `json:"necessidade_solucao" mapstructure:"necessidade_solucao"`
}

// BANTQuestions 是 BANT 各维度的提问。
type BANTQuestions struct {
	Budget    string `json:"budget" mapstructure:"budget"`
	Authority string `json:"authority" mapstructure:"authority"`
	Need      string `json:"need" mapstructure:"need"`
	Timeline  string `json:"timeline" mapstructure:"timeline"`
}

// QuestionBank 提供话术问题，由知识库实现。
type QuestionBank interface {
	SPINQuestions() SPINQuestions
	BANTQuestions() BANTQuestions
}

// SuggestNextQuestion 按阶段与资料缺口挑选下一个问题，没有合适问题时返回空串。
func SuggestNextQuestion(stage model.Stage, p model.LeadProfile, userMessages int, bank QuestionBank) string {
	switch stage {
	case model.StageClosing:
		if p.Email == "" {
			return "Qual seu email para eu enviar a proposta?"
		}
		if p.Phone == "" {
			return "Qual seu WhatsApp para agendarmos uma call rápida?"
		}
		return "Posso agendar uma call de 15min para detalharmos tudo?"
	case model.StageQualification:
		if bank == nil {
			return ""
		}
		bant := bank.BANTQuestions()
		switch {
		case p.Budget == "":
			return bant.Budget
		case p.Timeline == "":
			return bant.Timeline
		case p.ProjectType == "" && p.ServiceType == "":
			return bant.Need
		}
		return ""
	case model.StageDiscovery:
		if bank == nil {
			return ""
		}
		spin := bank.SPINQuestions()
		switch userMessages {
		case 1:
			return spin.Situation
		case 2:
			return spin.Problem
		case 3:
			return spin.Implication
		}
		return spin.NeedPayoff
	}
	return ""
}
