package model

// Stage 是会话所处的销售阶段。
type Stage string

const (
	StageInitial       Stage = "initial"
	StageDiscovery     Stage = "discovery"
	StageQualification Stage = "qualification"
	StageClosing       Stage = "closing"
	StageNurturing     Stage = "nurturing"
)

// NextAction 是 Sara 下一步应当采取的动作。
type NextAction string

const (
	ActionDiscoverNeed    NextAction = "descobrir_necessidade"
	ActionQualify         NextAction = "qualificar"
	ActionPresentSolution NextAction = "apresentar_solucao"
	ActionNurture         NextAction = "nutrir"
	ActionClose           NextAction = "fechar"
	ActionSchedule        NextAction = "agendar"
)

// Valid 判断动作是否属于允许的集合。
func (a NextAction) Valid() bool {
	switch a {
	case ActionDiscoverNeed, ActionQualify, ActionPresentSolution, ActionNurture, ActionClose, ActionSchedule:
		return true
	}
	return false
}
