package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/models"
)

// ErrTechnicianNotFound is returned when a technician id matches no row.
var ErrTechnicianNotFound = errors.New("technician not found")

// TechnicianService looks up the field technicians officers can assign.
type TechnicianService struct {
	db     DB
	logger *zap.SugaredLogger
}

// NewTechnicianService creates a new technician service
func NewTechnicianService(db DB, logger *zap.SugaredLogger) *TechnicianService {
	return &TechnicianService{db: db, logger: logger}
}

// List returns active technicians, optionally filtered by specialization.
func (s *TechnicianService) List(ctx context.Context, specialization models.Category) ([]models.Technician, error) {
	query := `SELECT id, name, specialization, phone, active FROM technicians WHERE active`
	var args []any
	if specialization != "" {
		args = append(args, specialization)
		query += " AND specialization = $1"
	}
	query += " ORDER BY name"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var techs []models.Technician
	for rows.Next() {
		var t models.Technician
		if err := rows.Scan(&t.ID, &t.Name, &t.Specialization, &t.Phone, &t.Active); err != nil {
			continue
		}
		techs = append(techs, t)
	}
	return techs, rows.Err()
}

// Get returns a single technician by id.
func (s *TechnicianService) Get(ctx context.Context, id string) (*models.Technician, error) {
	query := `SELECT id, name, specialization, phone, active FROM technicians WHERE id = $1`

	var t models.Technician
	err := s.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Specialization, &t.Phone, &t.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTechnicianNotFound
		}
		return nil, fmt.Errorf("get technician: %w", err)
	}
	return &t, nil
}
