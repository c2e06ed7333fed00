// Package intent 负责识别访客消息的意图：先走关键词规则，置信度不足时再请 LLM 复核。
package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category 是一组关键词词表。
type Category int

const (
	CategoryGreeting Category = iota
	CategoryFarewell
	CategoryThanks
	CategoryBudgetRequest
	CategoryObjection
	CategoryTechnical
	CategoryBusinessQuestion
	CategoryInterest
)

// matchMode 决定词表的匹配方式。
type matchMode int

const (
	// modeContains 子串包含，不分词也不做模糊匹配。
	modeContains matchMode = iota
	// modeWord 短语可以出现在任意位置，但两侧必须是词边界（"oi" 不命中 "depois"）。
	modeWord
)

type lexicon struct {
	mode    matchMode
	phrases []string
}

// 词表只读，任何地方都不应修改。
var lexicons = map[Category]lexicon{
	CategoryGreeting: {modeWord, []string{
		"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "e aí", "eai", "hey", "hello",
	}},
	CategoryFarewell: {modeContains, []string{
		"tchau", "até logo", "até mais", "obrigado, é só", "valeu, tchau", "flw",
	}},
	CategoryThanks: {modeContains, []string{
		"obrigado", "obrigada", "valeu", "agradeço",
	}},
	CategoryBudgetRequest: {modeContains, []string{
		"quanto cust", "qual o preço", "qual o valor", "quanto é", "quanto sai",
		"quanto fic", "preço", "valor", "orçamento", "prazo", "quanto tempo",
	}},
	CategoryObjection: {modeContains, []string{
		"caro", "cara", "muito dinheiro", "não tenho", "preciso pensar",
		"vou pensar", "vou ver", "vi mais barato", "encontrei por",
	}},
	CategoryTechnical: {modeContains, []string{
		"como funciona", "integra", "compatível", "responsiv", "mobile",
		"whatsapp", "instagram", "facebook", "seo", "google", "ssl", "segur",
	}},
	CategoryBusinessQuestion: {modeContains, []string{
		"vocês faz", "vocês vend", "vocês trabalh", "vocês tem",
		"você faz", "tem como fazer", "fazem",
	}},
	CategoryInterest: {modeContains, []string{
		"quero", "preciso", "gostaria", "queria", "tenho interesse",
		"me interessa", "procuro",
	}},
}

// Normalize 转小写并去掉首尾空白，所有匹配都基于它的结果。
func Normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

// Matches 判断已归一化的文本是否命中某个词表。
// 感谢类额外要求消息中不含问号。
func Matches(category Category, normalized string) bool {
	lx, ok := lexicons[category]
	if !ok {
		return false
	}
	if category == CategoryThanks && strings.Contains(normalized, "?") {
		return false
	}
	for _, p := range lx.phrases {
		switch lx.mode {
		case modeWord:
			if containsWord(normalized, p) {
				return true
			}
		default:
			if strings.Contains(normalized, p) {
				return true
			}
		}
	}
	return false
}

// containsWord 查找 phrase 的每一处出现，两侧均非字母数字即算命中。
func containsWord(text, phrase string) bool {
	for start := 0; start <= len(text)-len(phrase); {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(phrase)
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (i == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ContainsAny 是给其他包用的子串匹配工具。
func ContainsAny(normalized string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}
