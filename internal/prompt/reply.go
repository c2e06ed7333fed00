package prompt

import (
	"bytes"
	"encoding/json"
	"sara-smart-go/internal/model"
	"sara-smart-go/pkg/llm"
	"strconv"
	"strings"
)

// Text 宽松地接收模型给出的字符串、数字或 null。
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "null", "none", "undefined", "n/a":
			s = ""
		}
		*t = Text(s)
		return nil
	}
	*t = Text(data)
	return nil
}

// Extracted 是模型从消息中抽取的资料。
type Extracted struct {
	Name        Text `json:"nome,omitempty"`
	Email       Text `json:"email,omitempty"`
	Phone       Text `json:"telefone,omitempty"`
	ProjectType Text `json:"tipo_projeto,omitempty"`
	Budget      Text `json:"orcamento,omitempty"`
	Timeline    Text `json:"prazo,omitempty"`
	Business    Text `json:"negocio,omitempty"`
}

// Profile 转换为可合并的资料，无法识别的项目类型被忽略。
func (e Extracted) Profile() model.LeadProfile {
	return model.LeadProfile{
		Name:        string(e.Name),
		Email:       string(e.Email),
		Phone:       string(e.Phone),
		ProjectType: model.ParseProjectType(string(e.ProjectType)),
		Budget:      string(e.Budget),
		Timeline:    string(e.Timeline),
		Business:    string(e.Business),
	}
}

// Reply 是 Sara 约定的 JSON 回复结构。
type Reply struct {
	Response    Text      `json:"resposta"`
	Extracted   Extracted `json:"dados_extraidos"`
	LeadScore   Text      `json:"lead_score"`
	NextAction  Text      `json:"proxima_acao"`
	Methodology Text      `json:"metodologia_aplicada"`
}

// Score 返回模型自评的分数，仅作参考。
func (r Reply) Score() int {
	n, err := strconv.Atoi(string(r.LeadScore))
	if err != nil {
		return 0
	}
	return n
}

// ParseReply 解析模型回复。字段逐个解析，类型不对的字段留空；
// 找不到 JSON 或缺少 resposta 时，原文作为回复，抽取结果为空。
func ParseReply(raw string) Reply {
	var r Reply
	fields, err := llm.DecodeJSONFields(raw)
	if err == nil {
		decodeField(fields, "resposta", &r.Response)
		decodeField(fields, "dados_extraidos", &r.Extracted)
		decodeField(fields, "lead_score", &r.LeadScore)
		decodeField(fields, "proxima_acao", &r.NextAction)
		decodeField(fields, "metodologia_aplicada", &r.Methodology)
	}
	if r.Response == "" {
		return Reply{
			Response:    Text(llm.StripFences(raw)),
			Methodology: Text(model.MethodologyFallback),
		}
	}
	return r
}

func decodeField(fields map[string]json.RawMessage, key string, v any) {
	if data, ok := fields[key]; ok {
		_ = json.Unmarshal(data, v)
	}
}

// AppliedMethodology 返回合法的方法论，否则使用 fallback 值。
func (r Reply) AppliedMethodology(fallback model.Methodology) model.Methodology {
	if m := model.Methodology(strings.ToLower(string(r.Methodology))); m.Valid() {
		return m
	}
	return fallback
}
