package service

import (
	"regexp"
	"sara-smart-go/internal/model"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError 表示请求参数不合法，处理器将其映射为 400。
type ValidationError struct {
	Field   string `json:"field"`
	Title   string `json:"error"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateChatRequest 校验必填字段和邮箱格式。
func ValidateChatRequest(req model.ChatRequest) error {
	for _, f := range []struct{ name, value string }{
		{"nome", req.Name},
		{"email", req.Email},
		{"mensagem", req.Message},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{
				Field:   f.name,
				Title:   "Dados obrigatórios ausentes",
				Message: "Nome, email e mensagem são obrigatórios",
			}
		}
	}
	if !emailRe.MatchString(strings.TrimSpace(req.Email)) {
		return &ValidationError{Field: "email", Title: "Email inválido", Message: "Forneça um email válido"}
	}
	return nil
}
