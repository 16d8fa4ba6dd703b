package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chimeralens/api/internal/models"
)

type ClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

func (r *ClientRepository) Create(ctx context.Context, client models.Client) (models.Client, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (salon_id, name, phone, email, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`,
		client.SalonID,
		client.Name,
		client.Phone,
		client.Email,
		client.Notes,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return models.Client{}, err
	}
	return client, nil
}

func (r *ClientRepository) GetForSalon(ctx context.Context, id, salonID int64) (models.Client, error) {
	const query = `
		SELECT id, salon_id, name, phone, email, notes, deleted_at, created_at, updated_at
		FROM clients
		WHERE id = $1 AND salon_id = $2 AND deleted_at IS NULL
	`
	row := r.pool.QueryRow(ctx, query, id, salonID)
	var client models.Client
	if err := row.Scan(
		&client.ID,
		&client.SalonID,
		&client.Name,
		&client.Phone,
		&client.Email,
		&client.Notes,
		&client.DeletedAt,
		&client.CreatedAt,
		&client.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Client{}, fmt.Errorf("client: %w", ErrNotFound)
		}
		return models.Client{}, err
	}
	return client, nil
}

func (r *ClientRepository) ListBySalon(ctx context.Context, salonID int64, limit, offset int) ([]models.Client, error) {
	const query = `
		SELECT id, salon_id, name, phone, email, notes, deleted_at, created_at, updated_at
		FROM clients
		WHERE salon_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, salonID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var client models.Client
		if err := rows.Scan(
			&client.ID,
			&client.SalonID,
			&client.Name,
			&client.Phone,
			&client.Email,
			&client.Notes,
			&client.DeletedAt,
			&client.CreatedAt,
			&client.UpdatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) Update(ctx context.Context, client models.Client) error {
	const query = `
		UPDATE clients
		SET name = $3, phone = $4, email = $5, notes = $6, updated_at = NOW()
		WHERE id = $1 AND salon_id = $2 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query,
		client.ID,
		client.SalonID,
		client.Name,
		client.Phone,
		client.Email,
		client.Notes,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("client: %w", ErrNotFound)
	}
	return nil
}

func (r *ClientRepository) SoftDelete(ctx context.Context, id, salonID int64) error {
	const query = `
		UPDATE clients SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND salon_id = $2 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, salonID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("client: %w", ErrNotFound)
	}
	return nil
}
