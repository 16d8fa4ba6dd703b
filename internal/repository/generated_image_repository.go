package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"chimeralens/api/internal/models"
)

type GeneratedImageRepository struct {
	pool *pgxpool.Pool
}

func NewGeneratedImageRepository(pool *pgxpool.Pool) *GeneratedImageRepository {
	return &GeneratedImageRepository{pool: pool}
}

// Create inserts the immutable result row for one pipeline run.
func (r *GeneratedImageRepository) Create(ctx context.Context, image models.GeneratedImage) (models.GeneratedImage, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO generated_images (consultation_id, image_url, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`,
		image.ConsultationID,
		image.ImageURL,
	).Scan(&image.ID, &image.CreatedAt)
	if err != nil {
		return models.GeneratedImage{}, err
	}
	return image, nil
}

func (r *GeneratedImageRepository) ListByConsultation(ctx context.Context, consultationID int64) ([]models.GeneratedImage, error) {
	const query = `
		SELECT id, consultation_id, image_url, created_at
		FROM generated_images
		WHERE consultation_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []models.GeneratedImage
	for rows.Next() {
		var image models.GeneratedImage
		if err := rows.Scan(&image.ID, &image.ConsultationID, &image.ImageURL, &image.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}
