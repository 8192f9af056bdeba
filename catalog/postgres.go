package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	// Postgres dialect for goqu.
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

const defaultTemplatesTableName = "assessment_templates"

// PostgresCatalog is a TemplateCatalog backed by a Postgres table with the
// question list stored as jsonb.
type PostgresCatalog struct {
	db        *sqlx.DB
	tableName string
}

// NewPostgresCatalog creates a catalog over the given database handle.
func NewPostgresCatalog(db *sqlx.DB) *PostgresCatalog {
	return &PostgresCatalog{
		db:        db,
		tableName: defaultTemplatesTableName,
	}
}

// Template resolves one template for a tenant.
func (c *PostgresCatalog) Template(ctx context.Context, templateID string, tenantID string) (Template, error) {
	query, args, err := goqu.Dialect("postgres").
		From(c.tableName).
		Select("template_id", "tenant_id", "name", "page_count", "questions").
		Where(goqu.Ex{"template_id": templateID, "tenant_id": tenantID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Template{}, fmt.Errorf("building template query: %w", err)
	}

	var row struct {
		TemplateID string `db:"template_id"`
		TenantID   string `db:"tenant_id"`
		Name       string `db:"name"`
		PageCount  int    `db:"page_count"`
		Questions  []byte `db:"questions"`
	}

	if err := c.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}

		return Template{}, fmt.Errorf("querying template %s: %w", templateID, err)
	}

	var questions []Question
	if len(row.Questions) > 0 {
		if err := jsoniter.ConfigFastest.Unmarshal(row.Questions, &questions); err != nil {
			return Template{}, fmt.Errorf("unmarshaling questions for template %s: %w", templateID, err)
		}
	}

	return Template{
		TemplateID: row.TemplateID,
		TenantID:   row.TenantID,
		Name:       row.Name,
		PageCount:  row.PageCount,
		Questions:  questions,
	}, nil
}

var _ TemplateCatalog = (*PostgresCatalog)(nil)
