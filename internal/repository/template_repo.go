package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"presale/internal/model"
)

// ErrTemplateNotFound means no template exists for the (type, lang) pair.
// Template resolution is deterministic, so this is a terminal row failure,
// not a retryable one.
var ErrTemplateNotFound = errors.New("email template not found")

type TemplateRepository interface {
	Get(ctx context.Context, templateType, lang string) (*model.EmailTemplate, error)
}

type templateRepo struct {
	db *sql.DB
}

func NewTemplateRepo(db *sql.DB) TemplateRepository {
	return &templateRepo{db: db}
}

func (r *templateRepo) Get(ctx context.Context, templateType, lang string) (*model.EmailTemplate, error) {
	var t model.EmailTemplate
	query := `SELECT template_type, lang, subject, body_text, body_html
              FROM email_templates
              WHERE template_type = $1 AND lang = $2`
	row := r.db.QueryRowContext(ctx, query, templateType, lang)
	if err := row.Scan(&t.TemplateType, &t.Lang, &t.Subject, &t.BodyText, &t.BodyHTML); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrTemplateNotFound, templateType, lang)
		}
		return nil, err
	}
	return &t, nil
}
