package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const profileCols = `user_id, program_of_study, birth_date, phone, address,
	emergency_contact, emergency_phone, origin_location, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.UserID, &p.ProgramOfStudy, &p.BirthDate, &p.Phone, &p.Address,
		&p.EmergencyContact, &p.EmergencyPhone, &p.OriginLocation, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Profile) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patient_profiles (user_id, program_of_study, birth_date, phone,
			address, emergency_contact, emergency_phone, origin_location)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		p.UserID, p.ProgramOfStudy, p.BirthDate, p.Phone,
		p.Address, p.EmergencyContact, p.EmergencyPhone, p.OriginLocation,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileCols+` FROM patient_profiles WHERE user_id = $1`, userID))
}

func (r *repoPG) Update(ctx context.Context, p *Profile) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient_profiles SET program_of_study=$2, birth_date=$3, phone=$4,
			address=$5, emergency_contact=$6, emergency_phone=$7, origin_location=$8,
			updated_at=NOW()
		WHERE user_id = $1`,
		p.UserID, p.ProgramOfStudy, p.BirthDate, p.Phone,
		p.Address, p.EmergencyContact, p.EmergencyPhone, p.OriginLocation)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_profiles pp
		 JOIN users u ON u.id = pp.user_id WHERE u.active`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT pp.user_id, pp.program_of_study, pp.birth_date, pp.phone, pp.address,
			pp.emergency_contact, pp.emergency_phone, pp.origin_location,
			pp.created_at, pp.updated_at
		FROM patient_profiles pp
		JOIN users u ON u.id = pp.user_id
		WHERE u.active
		ORDER BY pp.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
