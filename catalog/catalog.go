// Package catalog provides the template lookup capability the session
// command handler uses to decide whether completing a page also completes
// the session.
package catalog

import (
	"context"
	"errors"
)

// ErrTemplateNotFound is returned when no template exists for the requested
// (templateID, tenantID) pair.
var ErrTemplateNotFound = errors.New("template not found")

// Question is one question of an assessment template.
type Question struct {
	QuestionID string `json:"questionId" db:"question_id"`
	Page       int    `json:"page" db:"page"`
	Text       string `json:"text" db:"text"`
}

// Template describes one assessment template: its page count and questions.
type Template struct {
	TemplateID string
	TenantID   string
	Name       string
	PageCount  int
	Questions  []Question
}

// TemplateCatalog resolves templates per tenant.
type TemplateCatalog interface {
	Template(ctx context.Context, templateID string, tenantID string) (Template, error)
}
