package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const userCols = `id, role, name, gender, age, email, phone, location, specialty,
	gp_id, lab_id, specialties, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Role, &u.Name, &u.Gender, &u.Age, &u.Email, &u.Phone, &u.Location,
		&u.Specialty, &u.GPID, &u.LabID, &u.Specialties, &u.CreatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Specialties == nil {
		u.Specialties = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, role, name, gender, age, email, phone, location, specialty,
			gp_id, lab_id, specialties)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at`,
		u.ID, u.Role, u.Name, u.Gender, u.Age, u.Email, u.Phone, u.Location, u.Specialty,
		u.GPID, u.LabID, u.Specialties).Scan(&u.CreatedAt)
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) ListDoctors(ctx context.Context, exclude uuid.UUID) ([]*User, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+userCols+` FROM users
		WHERE role = 'doctor' AND id <> $1
		ORDER BY name`, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

// =========== Lab Repository ===========

type labRepoPG struct{ pool *pgxpool.Pool }

func NewLabRepoPG(pool *pgxpool.Pool) LabRepository { return &labRepoPG{pool: pool} }

func (r *labRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *labRepoPG) Create(ctx context.Context, l *Lab) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Specialties == nil {
		l.Specialties = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO labs (id, name, location, specialties) VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		l.ID, l.Name, l.Location, l.Specialties).Scan(&l.CreatedAt)
}

func (r *labRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Lab, error) {
	var l Lab
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, location, specialties, created_at FROM labs WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Location, &l.Specialties, &l.CreatedAt)
	return &l, err
}

func (r *labRepoPG) List(ctx context.Context) ([]*Lab, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, location, specialties, created_at FROM labs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Lab
	for rows.Next() {
		var l Lab
		if err := rows.Scan(&l.ID, &l.Name, &l.Location, &l.Specialties, &l.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &l)
	}
	return items, rows.Err()
}

// =========== TestType Repository ===========

type testTypeRepoPG struct{ pool *pgxpool.Pool }

func NewTestTypeRepoPG(pool *pgxpool.Pool) TestTypeRepository { return &testTypeRepoPG{pool: pool} }

func (r *testTypeRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *testTypeRepoPG) Create(ctx context.Context, tt *TestType) error {
	if tt.ID == uuid.Nil {
		tt.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO test_types (id, name) VALUES ($1,$2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at`,
		tt.ID, tt.Name).Scan(&tt.ID, &tt.CreatedAt)
}

func (r *testTypeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestType, error) {
	var tt TestType
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name, created_at FROM test_types WHERE id = $1`, id).
		Scan(&tt.ID, &tt.Name, &tt.CreatedAt)
	return &tt, err
}

func (r *testTypeRepoPG) List(ctx context.Context) ([]*TestType, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, created_at FROM test_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TestType
	for rows.Next() {
		var tt TestType
		if err := rows.Scan(&tt.ID, &tt.Name, &tt.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &tt)
	}
	return items, rows.Err()
}
