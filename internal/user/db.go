package user

import (
	"context"
	"database/sql"
	"errors"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return d.findOne(ctx, "id = ?", id, id)
}

func (d *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.findOne(ctx, "username = ?", username, username)
}

func (d *DB) findOne(ctx context.Context, where string, arg interface{}, label string) (*models.User, error) {
	var u models.User
	err := d.Bun.NewSelect().
		Model(&u).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.UserNotFound(label)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ExistsByUsernameOrEmail reports whether either value is already taken.
func (d *DB) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("username = ?", username).
		WhereOr("email = ?", email).
		Exists(ctx)
}

func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	_, err := d.Bun.NewInsert().Model(u).Exec(ctx)
	return err
}
