package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicq/clinicq/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const clinicCols = `id, name, address, city, phone, email, opening_time, closing_time,
	default_consult_minutes, created_at, updated_at`

func (r *repoPG) scanClinic(row pgx.Row) (*Clinic, error) {
	var cl Clinic
	err := row.Scan(&cl.ID, &cl.Name, &cl.Address, &cl.City, &cl.Phone, &cl.Email,
		&cl.OpeningTime, &cl.ClosingTime, &cl.DefaultConsultMinutes, &cl.CreatedAt, &cl.UpdatedAt)
	return &cl, err
}

func (r *repoPG) Create(ctx context.Context, cl *Clinic) error {
	cl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic (id, name, address, city, phone, email, opening_time, closing_time, default_consult_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		cl.ID, cl.Name, cl.Address, cl.City, cl.Phone, cl.Email,
		cl.OpeningTime, cl.ClosingTime, cl.DefaultConsultMinutes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return r.scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM clinic WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, cl *Clinic) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinic SET name=$2, address=$3, city=$4, phone=$5, email=$6,
			opening_time=$7, closing_time=$8, default_consult_minutes=$9, updated_at=NOW()
		WHERE id = $1`,
		cl.ID, cl.Name, cl.Address, cl.City, cl.Phone, cl.Email,
		cl.OpeningTime, cl.ClosingTime, cl.DefaultConsultMinutes)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinic WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	return r.Search(ctx, nil, limit, offset)
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Clinic, int, error) {
	query := `SELECT ` + clinicCols + ` FROM clinic WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM clinic WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["city"]; ok {
		query += fmt.Sprintf(` AND city = $%d`, idx)
		countQuery += fmt.Sprintf(` AND city = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Clinic
	for rows.Next() {
		cl, err := r.scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cl)
	}
	return items, total, nil
}
