package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chimeralens/api/internal/models"
)

type StylistRepository struct {
	pool *pgxpool.Pool
}

func NewStylistRepository(pool *pgxpool.Pool) *StylistRepository {
	return &StylistRepository{pool: pool}
}

// CreateSalonWithOwner creates a salon and its owner account in one
// transaction and returns the owner with ids filled in.
func (r *StylistRepository) CreateSalonWithOwner(ctx context.Context, salonName string, stylist models.Stylist) (models.Stylist, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Stylist{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var salonID int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO salons (name, created_at) VALUES ($1, NOW()) RETURNING id`,
		salonName,
	).Scan(&salonID); err != nil {
		return models.Stylist{}, fmt.Errorf("insert salon: %w", err)
	}

	stylist.SalonID = salonID
	stylist.Role = models.RoleSalon

	if err := tx.QueryRow(ctx, `
		INSERT INTO stylists (salon_id, email, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`,
		stylist.SalonID,
		stylist.Email,
		stylist.PasswordHash,
		stylist.Name,
		stylist.Role,
	).Scan(&stylist.ID, &stylist.CreatedAt, &stylist.UpdatedAt); err != nil {
		return models.Stylist{}, fmt.Errorf("insert stylist: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Stylist{}, fmt.Errorf("commit: %w", err)
	}
	return stylist, nil
}

// Create adds a staff stylist to an existing salon.
func (r *StylistRepository) Create(ctx context.Context, stylist models.Stylist) (models.Stylist, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO stylists (salon_id, email, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`,
		stylist.SalonID,
		stylist.Email,
		stylist.PasswordHash,
		stylist.Name,
		stylist.Role,
	).Scan(&stylist.ID, &stylist.CreatedAt, &stylist.UpdatedAt)
	if err != nil {
		return models.Stylist{}, err
	}
	return stylist, nil
}

func (r *StylistRepository) FindByEmail(ctx context.Context, email string) (models.Stylist, error) {
	const query = `
		SELECT id, salon_id, email, password_hash, name, role, created_at, updated_at
		FROM stylists WHERE email = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *StylistRepository) GetByID(ctx context.Context, id int64) (models.Stylist, error) {
	const query = `
		SELECT id, salon_id, email, password_hash, name, role, created_at, updated_at
		FROM stylists WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *StylistRepository) scanOne(row pgx.Row) (models.Stylist, error) {
	var stylist models.Stylist
	if err := row.Scan(
		&stylist.ID,
		&stylist.SalonID,
		&stylist.Email,
		&stylist.PasswordHash,
		&stylist.Name,
		&stylist.Role,
		&stylist.CreatedAt,
		&stylist.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Stylist{}, fmt.Errorf("stylist: %w", ErrNotFound)
		}
		return models.Stylist{}, err
	}
	return stylist, nil
}
