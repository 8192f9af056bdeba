package catalog

import (
	"context"
	"sync"
)

type templateKey struct {
	templateID string
	tenantID   string
}

// MemoryCatalog is an in-memory TemplateCatalog for tests and local
// development.
type MemoryCatalog struct {
	mu        sync.RWMutex
	templates map[templateKey]Template
}

// NewMemoryCatalog creates a catalog pre-loaded with the given templates.
func NewMemoryCatalog(templates ...Template) *MemoryCatalog {
	c := &MemoryCatalog{
		templates: make(map[templateKey]Template),
	}

	for _, template := range templates {
		c.Add(template)
	}

	return c
}

// Add registers or replaces a template.
func (c *MemoryCatalog) Add(template Template) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.templates[templateKey{templateID: template.TemplateID, tenantID: template.TenantID}] = template
}

// Template resolves one template for a tenant.
func (c *MemoryCatalog) Template(_ context.Context, templateID string, tenantID string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	template, exists := c.templates[templateKey{templateID: templateID, tenantID: tenantID}]
	if !exists {
		return Template{}, ErrTemplateNotFound
	}

	return template, nil
}

var _ TemplateCatalog = (*MemoryCatalog)(nil)
