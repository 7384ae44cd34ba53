package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace_go/internal/domain"
)

type ServiceRepo struct {
	db *sql.DB
}

func NewServiceRepo(db *sql.DB) *ServiceRepo {
	return &ServiceRepo{db: db}
}

var _ domain.ServiceRepository = (*ServiceRepo)(nil)

func (r *ServiceRepo) Create(ctx context.Context, s *domain.Service) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO services (user_id, title, description, category, price, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`, s.UserID, s.Title, s.Description, s.Category, s.Price).Scan(&s.ID, &s.CreatedAt)
}

func (r *ServiceRepo) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	s := &domain.Service{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, category, price, created_at
		FROM services WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.Category, &s.Price, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return s, nil
}

func (r *ServiceRepo) List(ctx context.Context) ([]*domain.Service, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, category, price, created_at
		FROM services ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return scanServices(rows)
}

func (r *ServiceRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Service, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, category, price, created_at
		FROM services WHERE user_id = $1 ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list services by owner: %w", err)
	}
	return scanServices(rows)
}

func scanServices(rows *sql.Rows) ([]*domain.Service, error) {
	defer rows.Close()
	var res []*domain.Service
	for rows.Next() {
		s := &domain.Service{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.Category, &s.Price, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
