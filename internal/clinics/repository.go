package clinics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads clinics from storage.
type Repository interface {
	FindBySpecialty(ctx context.Context, specialty string, limit int) ([]Clinic, error)
	GetByID(ctx context.Context, id string) (*Clinic, error)
	OwnerContact(ctx context.Context, clinicID string) (*OwnerContact, error)
}

// OwnerContact is who hears about new bookings for a clinic.
type OwnerContact struct {
	UserID   string
	FullName string
	Email    string
}

type clinicDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads clinics through pgx.
type PostgresRepository struct {
	db clinicDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("clinics: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting pgxmock in tests.
func NewPostgresRepositoryWithDB(db clinicDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const findBySpecialtySQL = `
		SELECT c.id::text, c.name, COALESCE(c.address, ''), c.latitude, c.longitude
		FROM clinics c
		JOIN clinic_specialties cs ON cs.clinic_id = c.id
		JOIN specialties s ON s.id = cs.specialty_id
		WHERE s.name = $1
		ORDER BY c.id
		LIMIT $2
	`

// FindBySpecialty returns up to limit clinics offering the exact specialty name.
func (r *PostgresRepository) FindBySpecialty(ctx context.Context, specialty string, limit int) ([]Clinic, error) {
	rows, err := r.db.Query(ctx, findBySpecialtySQL, specialty, limit)
	if err != nil {
		return nil, fmt.Errorf("clinics: query by specialty: %w", err)
	}
	defer rows.Close()

	var out []Clinic
	for rows.Next() {
		var (
			c  Clinic
			id string
		)
		if err := rows.Scan(&id, &c.Name, &c.Address, &c.Latitude, &c.Longitude); err != nil {
			return nil, fmt.Errorf("clinics: scan clinic: %w", err)
		}
		c.ID = ID(id)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinics: iterate clinics: %w", err)
	}
	return out, nil
}

// GetByID loads one clinic. Ids that are not numeric cannot exist and
// report ErrClinicNotFound without touching the database.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Clinic, error) {
	numericID, ok := parseClinicID(id)
	if !ok {
		return nil, ErrClinicNotFound
	}

	query := `
		SELECT id::text, name, COALESCE(address, ''), latitude, longitude, COALESCE(owner_id::text, '')
		FROM clinics
		WHERE id = $1
	`
	var (
		c   Clinic
		cid string
	)
	if err := r.db.QueryRow(ctx, query, numericID).Scan(
		&cid, &c.Name, &c.Address, &c.Latitude, &c.Longitude, &c.OwnerID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("clinics: select clinic: %w", err)
	}
	c.ID = ID(cid)
	return &c, nil
}

// OwnerContact returns the owner of a clinic, or ErrClinicNotFound when the
// clinic has no owner with an email address.
func (r *PostgresRepository) OwnerContact(ctx context.Context, clinicID string) (*OwnerContact, error) {
	numericID, ok := parseClinicID(clinicID)
	if !ok {
		return nil, ErrClinicNotFound
	}

	query := `
		SELECT u.id::text, COALESCE(u.full_name, ''), u.email
		FROM clinics c
		JOIN users u ON u.id = c.owner_id
		WHERE c.id = $1 AND u.email IS NOT NULL AND u.email <> ''
	`
	var oc OwnerContact
	if err := r.db.QueryRow(ctx, query, numericID).Scan(&oc.UserID, &oc.FullName, &oc.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("clinics: select owner: %w", err)
	}
	return &oc, nil
}

func parseClinicID(id string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
