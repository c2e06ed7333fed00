package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoJSON 表示文本中找不到可解析的 JSON 对象。
var ErrNoJSON = errors.New("llm: no json object in response")

var (
	fenceRe  = regexp.MustCompile("```(?:json)?\\s*")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// StripFences 去掉模型常加的 ```json 代码块标记。
func StripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// DecodeJSONObject 从模型回复中解析 JSON 对象到 v。
// 依次尝试：去掉代码块后直接解析，再截取第一个 { 到最后一个 } 之间的内容解析。
func DecodeJSONObject(text string, v any) error {
	cleaned := StripFences(text)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}
	match := objectRe.FindString(cleaned)
	if match == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(match), v); err != nil {
		return errors.Join(ErrNoJSON, err)
	}
	return nil
}

// DecodeJSONFields 与 DecodeJSONObject 相同的查找方式，但只拆出顶层字段，
// 由调用方逐个解析，某个字段类型不对不影响其他字段。
func DecodeJSONFields(text string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := DecodeJSONObject(text, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, ErrNoJSON
	}
	return fields, nil
}

// Number 接收 JSON 数字或数字字符串，例如 85、85.5、"85"。
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("llm: not a number: %s", data)
	}
	*n = Number(f)
	return nil
}
