package core

import "strings"

// ValidateDocument checks a document for storable shape: owning tenant,
// a known source type, and non-empty raw content.
func ValidateDocument(d *Document) error {
	if strings.TrimSpace(d.RawContent) == "" {
		return ErrEmptyContent
	}
	if !d.SourceType.Valid() {
		return ErrInvalidSourceType
	}
	return nil
}

// ValidateMessage checks a message before persistence.
func ValidateMessage(m *Message) error {
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return ErrInvalidRole
	}
	return nil
}
