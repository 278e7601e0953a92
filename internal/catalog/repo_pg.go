package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/errs"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const defCols = `id, code, name, sample_type, price, turnaround_minutes, fasting_required, parameters, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, def *TestDefinition) error {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_test_definition (id, code, name, sample_type, price, turnaround_minutes, fasting_required, parameters, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		def.ID, def.Code, def.Name, def.SampleType, def.Price, def.TurnaroundMinutes, def.FastingRequired, def.Parameters, def.Active,
	)
	return err
}

func (r *repoPG) Update(ctx context.Context, def *TestDefinition) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_test_definition
		SET name = $2, sample_type = $3, price = $4, turnaround_minutes = $5, fasting_required = $6, parameters = $7, active = $8, updated_at = now()
		WHERE id = $1`,
		def.ID, def.Name, def.SampleType, def.Price, def.TurnaroundMinutes, def.FastingRequired, def.Parameters, def.Active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("test definition not found")
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*TestDefinition, error) {
	return r.scanOne(r.conn(ctx).QueryRow(ctx,
		`SELECT `+defCols+` FROM lab_test_definition WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*TestDefinition, error) {
	return r.scanOne(r.conn(ctx).QueryRow(ctx,
		`SELECT `+defCols+` FROM lab_test_definition WHERE code = $1`, code))
}

func (r *repoPG) ListActive(ctx context.Context) ([]*TestDefinition, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+defCols+` FROM lab_test_definition WHERE active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*TestDefinition
	for rows.Next() {
		var d TestDefinition
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.SampleType, &d.Price,
			&d.TurnaroundMinutes, &d.FastingRequired, &d.Parameters, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		defs = append(defs, &d)
	}
	return defs, rows.Err()
}

func (r *repoPG) scanOne(row pgx.Row) (*TestDefinition, error) {
	var d TestDefinition
	err := row.Scan(&d.ID, &d.Code, &d.Name, &d.SampleType, &d.Price,
		&d.TurnaroundMinutes, &d.FastingRequired, &d.Parameters, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("test definition not found")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
