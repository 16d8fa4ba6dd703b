package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chimeralens/api/internal/models"
)

const templateTagsSubquery = `
	COALESCE((
		SELECT array_agg(t.name ORDER BY t.name)
		FROM template_tags tt
		JOIN tags t ON t.id = tt.tag_id
		WHERE tt.template_id = ht.id
	), '{}')`

type TemplateRepository struct {
	pool *pgxpool.Pool
}

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

func (r *TemplateRepository) Create(ctx context.Context, template models.HairstyleTemplate) (models.HairstyleTemplate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.HairstyleTemplate{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `
		INSERT INTO hairstyle_templates (name, image_url, model_key, parameters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`,
		template.Name,
		template.ImageURL,
		template.ModelKey,
		template.Parameters,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt); err != nil {
		return models.HairstyleTemplate{}, err
	}

	template.Tags = dedupeTags(template.Tags)
	if err := replaceTags(ctx, tx, "template_tags", "template_id", template.ID, template.Tags); err != nil {
		return models.HairstyleTemplate{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.HairstyleTemplate{}, fmt.Errorf("commit: %w", err)
	}
	return template, nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (models.HairstyleTemplate, error) {
	query := `
		SELECT ht.id, ht.name, ht.image_url, ht.model_key, ht.parameters, ` + templateTagsSubquery + `,
		       ht.deleted_at, ht.created_at, ht.updated_at
		FROM hairstyle_templates ht
		WHERE ht.id = $1 AND ht.deleted_at IS NULL
	`
	row := r.pool.QueryRow(ctx, query, id)
	var template models.HairstyleTemplate
	if err := row.Scan(
		&template.ID,
		&template.Name,
		&template.ImageURL,
		&template.ModelKey,
		&template.Parameters,
		&template.Tags,
		&template.DeletedAt,
		&template.CreatedAt,
		&template.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.HairstyleTemplate{}, fmt.Errorf("template: %w", ErrNotFound)
		}
		return models.HairstyleTemplate{}, err
	}
	return template, nil
}

// List returns templates newest first. A non-empty tag filter keeps only
// templates carrying at least one of the named tags.
func (r *TemplateRepository) List(ctx context.Context, tags []string, limit, offset int) ([]models.HairstyleTemplate, error) {
	query := `
		SELECT ht.id, ht.name, ht.image_url, ht.model_key, ht.parameters, ` + templateTagsSubquery + `,
		       ht.deleted_at, ht.created_at, ht.updated_at
		FROM hairstyle_templates ht
		WHERE ht.deleted_at IS NULL
	`
	args := []any{limit, offset}
	if len(tags) > 0 {
		query += `
		AND EXISTS (
			SELECT 1 FROM template_tags tt
			JOIN tags t ON t.id = tt.tag_id
			WHERE tt.template_id = ht.id AND t.name = ANY($3)
		)`
		args = append(args, tags)
	}
	query += `
		ORDER BY ht.created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.HairstyleTemplate
	for rows.Next() {
		var template models.HairstyleTemplate
		if err := rows.Scan(
			&template.ID,
			&template.Name,
			&template.ImageURL,
			&template.ModelKey,
			&template.Parameters,
			&template.Tags,
			&template.DeletedAt,
			&template.CreatedAt,
			&template.UpdatedAt,
		); err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	return templates, rows.Err()
}

func (r *TemplateRepository) SoftDelete(ctx context.Context, id int64) error {
	const query = `
		UPDATE hairstyle_templates SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("template: %w", ErrNotFound)
	}
	return nil
}
