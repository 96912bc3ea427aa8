package validation

import (
	"errors"
)

// ChatRequestValidator validates chat-related requests
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// ValidateMessage validates a chat message
func (v *ChatRequestValidator) ValidateMessage(message string) error {
	if message == "" {
		return errors.New("message cannot be empty")
	}
	return nil
}

// ValidateTemplate validates a prompt template payload
func (v *ChatRequestValidator) ValidateTemplate(name, prompt string) error {
	if name == "" {
		return errors.New("template name cannot be empty")
	}
	if prompt == "" {
		return errors.New("template prompt cannot be empty")
	}
	return nil
}
