package service

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed templates/outreach_message.txt
var defaultMessageTemplate string

const (
	namePlaceholder   = "{name}"
	genericSalutation = "Empresário"
)

// DefaultMessageTemplate returns the built-in outreach message.
func DefaultMessageTemplate() string {
	return strings.TrimRight(defaultMessageTemplate, "\n")
}

// LoadMessageTemplate reads the outreach message from path, or returns the
// built-in message when path is empty.
func LoadMessageTemplate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultMessageTemplate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read message template: %w", err)
	}
	tmpl := strings.TrimRight(string(data), "\n")
	if strings.TrimSpace(tmpl) == "" {
		return "", fmt.Errorf("message template %s is empty", path)
	}
	return tmpl, nil
}

// Personalize fills the {name} placeholder with the first word of the business name.
func Personalize(tmpl, businessName string) string {
	salutation := genericSalutation
	if fields := strings.Fields(businessName); len(fields) > 0 {
		salutation = fields[0]
	}
	return strings.ReplaceAll(tmpl, namePlaceholder, salutation)
}
