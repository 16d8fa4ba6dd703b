package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chimeralens/api/internal/models"
)

const consultationTagsSubquery = `
	COALESCE((
		SELECT array_agg(t.name ORDER BY t.name)
		FROM consultation_tags ct
		JOIN tags t ON t.id = ct.tag_id
		WHERE ct.consultation_id = c.id
	), '{}')`

type ConsultationRepository struct {
	pool *pgxpool.Pool
}

func NewConsultationRepository(pool *pgxpool.Pool) *ConsultationRepository {
	return &ConsultationRepository{pool: pool}
}

func (r *ConsultationRepository) Create(ctx context.Context, consultation models.Consultation) (models.Consultation, error) {
	if consultation.Status == "" {
		consultation.Status = models.ConsultationStatusSaved
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO consultations (client_id, stylist_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`,
		consultation.ClientID,
		consultation.StylistID,
		consultation.Status,
	).Scan(&consultation.ID, &consultation.CreatedAt, &consultation.UpdatedAt)
	if err != nil {
		return models.Consultation{}, err
	}
	return consultation, nil
}

// CreateQuick creates a walk-in client and a TEMPORARY consultation for it
// in one transaction.
func (r *ConsultationRepository) CreateQuick(ctx context.Context, salonID, stylistID int64, clientName string) (models.Consultation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Consultation{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var clientID int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO clients (salon_id, name, created_at, updated_at) VALUES ($1, $2, NOW(), NOW()) RETURNING id`,
		salonID, clientName,
	).Scan(&clientID); err != nil {
		return models.Consultation{}, fmt.Errorf("insert walk-in client: %w", err)
	}

	consultation := models.Consultation{
		ClientID:  clientID,
		StylistID: stylistID,
		Status:    models.ConsultationStatusTemporary,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO consultations (client_id, stylist_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`,
		consultation.ClientID,
		consultation.StylistID,
		consultation.Status,
	).Scan(&consultation.ID, &consultation.CreatedAt, &consultation.UpdatedAt); err != nil {
		return models.Consultation{}, fmt.Errorf("insert consultation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Consultation{}, fmt.Errorf("commit: %w", err)
	}
	return consultation, nil
}

// GetForSalon resolves a consultation through its client's salon. Missing,
// soft-deleted and cross-salon rows all come back as ErrNotFound.
func (r *ConsultationRepository) GetForSalon(ctx context.Context, id, salonID int64) (models.Consultation, error) {
	query := `
		SELECT c.id, c.client_id, c.stylist_id, c.status, ` + consultationTagsSubquery + `,
		       c.deleted_at, c.created_at, c.updated_at
		FROM consultations c
		JOIN clients cl ON cl.id = c.client_id
		WHERE c.id = $1 AND cl.salon_id = $2 AND c.deleted_at IS NULL
	`
	row := r.pool.QueryRow(ctx, query, id, salonID)
	var consultation models.Consultation
	if err := row.Scan(
		&consultation.ID,
		&consultation.ClientID,
		&consultation.StylistID,
		&consultation.Status,
		&consultation.Tags,
		&consultation.DeletedAt,
		&consultation.CreatedAt,
		&consultation.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Consultation{}, fmt.Errorf("consultation: %w", ErrNotFound)
		}
		return models.Consultation{}, err
	}
	return consultation, nil
}

func (r *ConsultationRepository) ListBySalon(ctx context.Context, salonID int64, limit, offset int) ([]models.Consultation, error) {
	query := `
		SELECT c.id, c.client_id, c.stylist_id, c.status, ` + consultationTagsSubquery + `,
		       c.deleted_at, c.created_at, c.updated_at
		FROM consultations c
		JOIN clients cl ON cl.id = c.client_id
		WHERE cl.salon_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, salonID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var consultations []models.Consultation
	for rows.Next() {
		var consultation models.Consultation
		if err := rows.Scan(
			&consultation.ID,
			&consultation.ClientID,
			&consultation.StylistID,
			&consultation.Status,
			&consultation.Tags,
			&consultation.DeletedAt,
			&consultation.CreatedAt,
			&consultation.UpdatedAt,
		); err != nil {
			return nil, err
		}
		consultations = append(consultations, consultation)
	}
	return consultations, rows.Err()
}

func (r *ConsultationRepository) UpdateStatus(ctx context.Context, id, salonID int64, status models.ConsultationStatus) error {
	const query = `
		UPDATE consultations c
		SET status = $3, updated_at = NOW()
		FROM clients cl
		WHERE c.id = $1 AND cl.id = c.client_id AND cl.salon_id = $2 AND c.deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, salonID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("consultation: %w", ErrNotFound)
	}
	return nil
}

// UpdateTags replaces a consultation's tag set, scoped to the owning salon.
func (r *ConsultationRepository) UpdateTags(ctx context.Context, id, salonID int64, tags []string) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var owned int64
	if err := tx.QueryRow(ctx, `
		SELECT c.id FROM consultations c
		JOIN clients cl ON cl.id = c.client_id
		WHERE c.id = $1 AND cl.salon_id = $2 AND c.deleted_at IS NULL
	`, id, salonID).Scan(&owned); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("consultation: %w", ErrNotFound)
		}
		return nil, err
	}

	tags = dedupeTags(tags)
	if err := replaceTags(ctx, tx, "consultation_tags", "consultation_id", id, tags); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE consultations SET updated_at = NOW() WHERE id = $1`, id,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return tags, nil
}

// SoftDelete never removes rows physically.
func (r *ConsultationRepository) SoftDelete(ctx context.Context, id, salonID int64) error {
	const query = `
		UPDATE consultations c
		SET deleted_at = NOW(), updated_at = NOW()
		FROM clients cl
		WHERE c.id = $1 AND cl.id = c.client_id AND cl.salon_id = $2 AND c.deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, salonID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("consultation: %w", ErrNotFound)
	}
	return nil
}

// PurgeStaleTemporary soft-deletes TEMPORARY consultations older than the
// cutoff. Used by the cleanup job.
func (r *ConsultationRepository) PurgeStaleTemporary(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		UPDATE consultations
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE status = 'TEMPORARY' AND deleted_at IS NULL AND created_at < $1
	`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
