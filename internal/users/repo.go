package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// Ensure creates the profile for id on first sight and returns it.
	Ensure(ctx context.Context, id string, role auth.Role) (*Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Update(ctx context.Context, id string, p ProfilePatch) (*Profile, error)
}

type PgRepo struct{ DB *pgxpool.Pool }

const profileColumns = `id, name, email, phone, image, role, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Image, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgRepo) Ensure(ctx context.Context, id string, role auth.Role) (*Profile, error) {
	_, err := r.DB.Exec(ctx, `INSERT INTO users(id, role) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, id, string(role))
	if err != nil {
		return nil, orders.Classify(fmt.Errorf("insert user: %w", err))
	}
	return r.Get(ctx, id)
}

func (r *PgRepo) Get(ctx context.Context, id string) (*Profile, error) {
	p, err := scanProfile(r.DB.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.Errorf(orders.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return p, nil
}

func (r *PgRepo) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+profileColumns+` FROM users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PgRepo) Update(ctx context.Context, id string, p ProfilePatch) (*Profile, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Image != nil {
		add("image", *p.Image)
	}
	args = append(args, id)
	sql := `UPDATE users SET ` + strings.Join(sets, ", ") + `, updated_at = NOW()
		WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + profileColumns

	out, err := scanProfile(r.DB.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.Errorf(orders.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, orders.Classify(fmt.Errorf("update user: %w", err))
	}
	return out, nil
}
