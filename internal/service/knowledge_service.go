package service

import (
	"errors"
	"os"
	"path/filepath"
	"sara-smart-go/internal/lead"
	"sara-smart-go/internal/model"
	"sara-smart-go/internal/prompt"
	"sara-smart-go/pkg/log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// CompanyKnowledge 是 maestro.json 中的公司知识。
type CompanyKnowledge struct {
	Services      []string `mapstructure:"servicos_oferecidos" json:"servicos_oferecidos"`
	NotOffered    []string `mapstructure:"nao_oferecemos" json:"nao_oferecemos"`
	Differentials []string `mapstructure:"diferenciais" json:"diferenciais"`
}

// PriorityRule 是最高优先级规则。
type PriorityRule struct {
	Triggers    []string `mapstructure:"gatilhos"`
	Action      string   `mapstructure:"acao"`
	Description string   `mapstructure:"descricao"`
	Example     string   `mapstructure:"exemplo_resposta"`
}

// PriorityMatch 是命中的最高优先级规则。
type PriorityMatch struct {
	Priority    string `json:"priority"`
	Action      string `json:"action"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

// SpecialistAgent 是 maestro.json 中的专家代理配置。
type SpecialistAgent struct {
	Triggers    []string `mapstructure:"gatilhos"`
	Methodology string   `mapstructure:"metodologia"`
	WhenToUse   string   `mapstructure:"quando_usar"`
}

// SalesPersona 是 persona_*.json 的内容。
type SalesPersona struct {
	Role        string              `mapstructure:"role" json:"role"`
	Methodology string              `mapstructure:"methodology" json:"methodology"`
	SPIN        *lead.SPINQuestions `mapstructure:"perguntas_spin" json:"perguntas_spin,omitempty"`
	BANT        *lead.BANTQuestions `mapstructure:"perguntas_bant" json:"perguntas_bant,omitempty"`
}

// AgentMatch 是根据消息选中的专家代理。
type AgentMatch struct {
	Agent       string       `json:"agent"`
	Methodology string       `json:"methodology"`
	When        string       `json:"when"`
	Persona     SalesPersona `json:"persona"`
}

// Objection 是某类异议的处理方式。
type Objection struct {
	Technique string `mapstructure:"tecnica" json:"tecnica"`
	Reply     string `mapstructure:"resposta_modelo" json:"resposta_modelo"`
}

// KnowledgeStats 描述知识库加载情况。
type KnowledgeStats struct {
	MaestroLoaded     bool `json:"maestroLoaded"`
	PersonalityLoaded bool `json:"personalityLoaded"`
	PersonasLoaded    int  `json:"personasLoaded"`
	ServicesCount     int  `json:"servicesCount"`
	HasSmartResponses bool `json:"hasSmartResponses"`
}

// KnowledgeService 提供公司知识、话术与人设。
type KnowledgeService interface {
	lead.QuestionBank
	CompanyKnowledge() string
	OffersService(name string) bool
	NotOffering(name string) bool
	Persona() prompt.Persona
	Greeting(now time.Time) string
	CheckMaxPriority(message string) (PriorityMatch, bool)
	SelectSpecialist(message string) (AgentMatch, bool)
	ObjectionHandling() map[string]Objection
	ObjectionReply(message string) string
	Stats() KnowledgeStats
	Reload() error
}

type namedAgent struct {
	key string
	SpecialistAgent
}

type knowledgeData struct {
	maestroLoaded     bool
	personalityLoaded bool
	company           *CompanyKnowledge
	priority          *PriorityRule
	agents            []namedAgent
	persona           prompt.Persona
	greetings         map[string][]string
	objections        map[string]Objection
	personas          map[string]SalesPersona
}

type knowledgeService struct {
	dir string

	mu   sync.RWMutex
	data knowledgeData
	// pick 从候选问候语中选一条，测试中可替换
	pick func(n int) int
}

var personaFiles = []string{"rackham", "konrath", "vaynerchuk"}

// NewKnowledgeService 从 dir 加载知识库 JSON，缺失的文件使用内置默认值。
func NewKnowledgeService(dir string) KnowledgeService {
	s := &knowledgeService{dir: dir, pick: func(n int) int { return int(time.Now().UnixNano() % int64(n)) }}
	if err := s.Reload(); err != nil {
		log.Warnf("知识库加载不完整，使用默认值: %v", err)
	}
	return s
}

// Reload 重新读取所有 JSON 文件。单个文件失败不会影响其他文件。
func (s *knowledgeService) Reload() error {
	var errs []error
	data := knowledgeData{
		persona:    prompt.DefaultPersona(),
		objections: defaultObjections(),
		personas:   defaultPersonas(),
	}

	if v, err := readJSON(filepath.Join(s.dir, "maestro.json")); err != nil {
		errs = append(errs, err)
	} else {
		data.maestroLoaded = true
		if v.IsSet("conhecimento_empresa") {
			var ck CompanyKnowledge
			if err := v.UnmarshalKey("conhecimento_empresa", &ck); err == nil {
				data.company = &ck
			}
		}
		if v.IsSet("regras_de_prioridade.prioridade_maxima") {
			var rule PriorityRule
			if err := v.UnmarshalKey("regras_de_prioridade.prioridade_maxima", &rule); err == nil {
				data.priority = &rule
			}
		}
		var agents map[string]SpecialistAgent
		if err := v.UnmarshalKey("agentes_especialistas", &agents); err == nil && len(agents) > 0 {
			data.agents = sortedAgents(agents)
		}
	}
	if len(data.agents) == 0 {
		data.agents = defaultAgents()
	}

	if v, err := readJSON(filepath.Join(s.dir, "sara_personality.json")); err != nil {
		errs = append(errs, err)
	} else {
		data.personalityLoaded = true
		var persona prompt.Persona
		if err := v.UnmarshalKey("personalidade", &persona); err == nil {
			// 语气参数在 tom_de_voz 下，语言习惯在 linguagem 下
			_ = v.UnmarshalKey("personalidade.tom_de_voz", &persona)
			_ = v.UnmarshalKey("personalidade.linguagem", &persona)
			data.persona = persona
		}
		if v.IsSet("respostas_inteligentes") {
			greetings := map[string][]string{}
			if err := v.UnmarshalKey("respostas_inteligentes.saudacoes", &greetings); err == nil {
				data.greetings = greetings
			}
			if data.greetings == nil {
				data.greetings = map[string][]string{}
			}
		}
		var objections map[string]Objection
		if err := v.UnmarshalKey("estrategias_conversa.tratamento_objecoes", &objections); err == nil && len(objections) > 0 {
			data.objections = objections
		}
	}

	for _, name := range personaFiles {
		v, err := readJSON(filepath.Join(s.dir, "persona_"+name+".json"))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		var p SalesPersona
		if err := v.Unmarshal(&p); err == nil {
			data.personas[name] = p
		}
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	log.Infow("知识库已加载", "dir", s.dir, "maestro", data.maestroLoaded, "personality", data.personalityLoaded)
	return errors.Join(errs...)
}

func readJSON(path string) (*viper.Viper, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

func sortedAgents(m map[string]SpecialistAgent) []namedAgent {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]namedAgent, 0, len(keys))
	for _, k := range keys {
		out = append(out, namedAgent{key: k, SpecialistAgent: m[k]})
	}
	return out
}

func (s *knowledgeService) snapshot() knowledgeData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *knowledgeService) CompanyKnowledge() string {
	ck := s.snapshot().company
	if ck == nil {
		return defaultCompanyKnowledge
	}
	var b strings.Builder
	b.WriteString("## SERVIÇOS RONALD DIGITAL\n")
	writeBullets(&b, ck.Services)
	b.WriteString("\n## NÃO OFERECEMOS\n")
	writeBullets(&b, ck.NotOffered)
	b.WriteString("\n## DIFERENCIAIS\n")
	writeBullets(&b, ck.Differentials)
	return strings.TrimSpace(b.String())
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

func (s *knowledgeService) company() CompanyKnowledge {
	if ck := s.snapshot().company; ck != nil {
		return *ck
	}
	return defaultCompany()
}

func (s *knowledgeService) OffersService(name string) bool {
	return containsFold(s.company().Services, name)
}

func (s *knowledgeService) NotOffering(name string) bool {
	return containsFold(s.company().NotOffered, name)
}

func containsFold(items []string, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false
	}
	for _, item := range items {
		if strings.Contains(strings.ToLower(item), needle) {
			return true
		}
	}
	return false
}

func (s *knowledgeService) Persona() prompt.Persona {
	return s.snapshot().persona
}

// Greeting 按时段选择问候语：12 点前 manha，18 点前 tarde，其余 noite。
func (s *knowledgeService) Greeting(now time.Time) string {
	greetings := s.snapshot().greetings
	var period string
	switch h := now.Hour(); {
	case h < 12:
		period = "manha"
	case h < 18:
		period = "tarde"
	default:
		period = "noite"
	}
	if options := greetings[period]; len(options) > 0 {
		return options[s.pick(len(options))]
	}
	return "Oi! Que bom te ver por aqui! 😊"
}

func (s *knowledgeService) CheckMaxPriority(message string) (PriorityMatch, bool) {
	rule := s.snapshot().priority
	if rule == nil {
		return PriorityMatch{}, false
	}
	lower := strings.ToLower(message)
	for _, trigger := range rule.Triggers {
		if trigger != "" && strings.Contains(lower, strings.ToLower(trigger)) {
			return PriorityMatch{Priority: "max", Action: rule.Action, Description: rule.Description, Example: rule.Example}, true
		}
	}
	return PriorityMatch{}, false
}

func (s *knowledgeService) SelectSpecialist(message string) (AgentMatch, bool) {
	data := s.snapshot()
	lower := strings.ToLower(message)
	for _, agent := range data.agents {
		for _, trigger := range agent.Triggers {
			if trigger != "" && strings.Contains(lower, strings.ToLower(trigger)) {
				return AgentMatch{
					Agent:       agent.key,
					Methodology: agent.Methodology,
					When:        agent.WhenToUse,
					Persona:     data.personas[agent.key],
				}, true
			}
		}
	}
	return AgentMatch{}, false
}

func (s *knowledgeService) SPINQuestions() lead.SPINQuestions {
	if p, ok := s.snapshot().personas["rackham"]; ok && p.SPIN != nil {
		return *p.SPIN
	}
	return lead.SPINQuestions{
		Situation:   "Para que eu possa te ajudar, me conte um pouco sobre sua situação.",
		Problem:     "Quais são as dificuldades que você enfrenta?",
		Implication: "Qual o impacto desses desafios no seu negócio?",
		NeedPayoff:  "Se pudesse resolver isso, o que isso significaria para você?",
	}
}

func (s *knowledgeService) BANTQuestions() lead.BANTQuestions {
	if p, ok := s.snapshot().personas["konrath"]; ok && p.BANT != nil {
		return *p.BANT
	}
	return lead.BANTQuestions{
		Budget:    "Qual é o seu orçamento aproximado para este projeto?",
		Authority: "Você é a pessoa responsável pela decisão?",
		Need:      "Qual serviço você precisa exatamente?",
		Timeline:  "Qual a sua urgência para ter isso pronto?",
	}
}

func (s *knowledgeService) ObjectionHandling() map[string]Objection {
	src := s.snapshot().objections
	out := make(map[string]Objection, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// ObjectionReply 为价格类异议返回 preco_alto，其余返回 preciso_pensar 的标准回复。
func (s *knowledgeService) ObjectionReply(message string) string {
	objections := s.snapshot().objections
	lower := strings.ToLower(message)
	key := "preciso_pensar"
	for _, w := range []string{"caro", "preço", "preco", "valor", "orçamento", "barato"} {
		if strings.Contains(lower, w) {
			key = "preco_alto"
			break
		}
	}
	return objections[key].Reply
}

func (s *knowledgeService) Stats() KnowledgeStats {
	data := s.snapshot()
	services := 0
	if data.company != nil {
		services = len(data.company.Services)
	}
	return KnowledgeStats{
		MaestroLoaded:     data.maestroLoaded,
		PersonalityLoaded: data.personalityLoaded,
		PersonasLoaded:    len(data.personas),
		ServicesCount:     services,
		HasSmartResponses: data.greetings != nil,
	}
}

const defaultCompanyKnowledge = `## SERVIÇOS RONALD DIGITAL
- Landing Pages: R$ 500-1.000 (captação de leads)
- Portfólios: R$ 400-800 (credibilidade profissional)
- Sites/Blogs: R$ 800-2.000 (autoridade e SEO)
- E-commerce: R$ 1.200-3.000 (vendas online)

## DIFERENCIAIS
- IA integrada para otimização
- Suporte especializado
- Parcelamento em 3x sem juros`

func defaultCompany() CompanyKnowledge {
	return CompanyKnowledge{
		Services: []string{
			"Landing Pages (R$ 500-1.000)",
			"Portfólios (R$ 400-800)",
			"Sites/Blogs (R$ 800-2.000)",
			"E-commerce (R$ 1.200-3.000)",
		},
		NotOffered:    []string{"Hardware", "Computadores", "Consultoria em outras áreas"},
		Differentials: []string{"IA integrada", "Suporte especializado", "Parcelamento 3x"},
	}
}

func defaultObjections() map[string]Objection {
	return map[string]Objection{
		"preco_alto": {
			Technique: "ROI + Parcelamento + Garantia",
			Reply:     "Entendo! Mas pensa: se trouxer 2 clientes novos, já pagou. Posso parcelar em 3x e dou garantia total!",
		},
		"preciso_pensar": {
			Technique: "Urgência + Garantia",
			Reply:     "Claro! Mas tenho só 3 vagas este mês. Que tal garantir com consultoria gratuita?",
		},
	}
}

func defaultPersonas() map[string]SalesPersona {
	return map[string]SalesPersona{
		"rackham":    {Role: "Consultor SPIN", Methodology: "SPIN Selling"},
		"konrath":    {Role: "Qualificador BANT", Methodology: "BANT"},
		"vaynerchuk": {Role: "Especialista Value-First", Methodology: "Value-First"},
	}
}

func defaultAgents() []namedAgent {
	return []namedAgent{
		{key: "rackham", SpecialistAgent: SpecialistAgent{
			Methodology: string(model.MethodologySPIN),
			WhenToUse:   "Cliente não sabe exatamente o que precisa",
			Triggers: []string{"não sei o que preciso", "estou com um problema", "quais opções", "preciso de ajuda",
				"não tenho certeza", "qual a melhor", "me ajude a escolher"},
		}},
		{key: "konrath", SpecialistAgent: SpecialistAgent{
			Methodology: string(model.MethodologyBANT),
			WhenToUse:   "Cliente pede preço, prazo ou especificações",
			Triggers: []string{"quanto custa", "preço", "orçamento", "prazo", "quanto tempo", "especificações",
				"funcionalidades", "valor", "investimento"},
		}},
		{key: "vaynerchuk", SpecialistAgent: SpecialistAgent{
			Methodology: string(model.MethodologyValueFirst),
			WhenToUse:   "Cliente está explorando e quer conteúdo",
			Triggers: []string{"quero saber mais", "me envie", "gostei", "interessante", "obrigado", "material",
				"conteúdo", "case", "exemplo"},
		}},
	}
}
