package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mzbr/illustbox/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.SqlDB}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, image, password_hash, token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '', ?, ?)`,
		user.Email, user.Name, user.Image, user.PasswordHash, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	user.ID = id
	user.Token = ""
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, image, password_hash, token, created_at, updated_at
		 FROM users WHERE `+where, arg,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Image, &user.PasswordHash,
		&user.Token, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if err := r.loadLists(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// loadLists fills the user's embedded reference lists in stored order.
func (r *UserRepository) loadLists(ctx context.Context, user *domain.User) error {
	var err error
	user.IllustList, err = r.refList(ctx,
		"SELECT illust_id FROM user_illusts WHERE user_id = ? ORDER BY position", user.ID)
	if err != nil {
		return fmt.Errorf("load illust list: %w", err)
	}

	user.Favorites, err = r.refList(ctx,
		"SELECT illust_id FROM user_favorites WHERE user_id = ? ORDER BY position", user.ID)
	if err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT illust_id, count FROM user_items WHERE user_id = ? ORDER BY position", user.ID)
	if err != nil {
		return fmt.Errorf("load item list: %w", err)
	}
	defer rows.Close()

	user.ItemList = nil
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.IllustID, &item.Count); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		user.ItemList = append(user.ItemList, item)
	}
	return rows.Err()
}

func (r *UserRepository) refList(ctx context.Context, query string, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) UpdateToken(ctx context.Context, id int64, token string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET token = ?, updated_at = ? WHERE id = ?",
		token, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) AddIllust(ctx context.Context, userID, illustID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_illusts (user_id, illust_id, position)
		 VALUES (?, ?, (SELECT COUNT(*) FROM user_illusts WHERE user_id = ?))`,
		userID, illustID, userID,
	)
	if err != nil {
		return fmt.Errorf("add illust ref: %w", err)
	}
	return nil
}

func (r *UserRepository) AddItem(ctx context.Context, userID int64, item domain.Item) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_items (user_id, illust_id, count, position)
		 VALUES (?, ?, ?, (SELECT COUNT(*) FROM user_items WHERE user_id = ?))`,
		userID, item.IllustID, item.Count, userID,
	)
	if err != nil {
		return fmt.Errorf("add item ref: %w", err)
	}
	return nil
}

func (r *UserRepository) AddFavorite(ctx context.Context, userID, illustID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_favorites (user_id, illust_id, position)
		 VALUES (?, ?, (SELECT COUNT(*) FROM user_favorites WHERE user_id = ?))`,
		userID, illustID, userID,
	)
	if err != nil {
		return fmt.Errorf("add favorite ref: %w", err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
