package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mzbr/illustbox/internal/domain"
)

// IllustRepository implements domain.IllustRepository using SQLite.
type IllustRepository struct {
	db *sql.DB
}

func NewIllustRepository(db *DB) *IllustRepository {
	return &IllustRepository{db: db.SqlDB}
}

func (r *IllustRepository) Create(ctx context.Context, illust *domain.Illust) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO illusts (name, stage_id) VALUES (?, ?)",
		illust.Name, illust.StageID,
	)
	if err != nil {
		return fmt.Errorf("insert illust: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	illust.ID = id
	return nil
}

func (r *IllustRepository) GetByID(ctx context.Context, id int64) (*domain.Illust, error) {
	illust := &domain.Illust{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, stage_id FROM illusts WHERE id = ?", id,
	).Scan(&illust.ID, &illust.Name, &illust.StageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query illust by id: %w", err)
	}
	return illust, nil
}

// StageRepository implements domain.StageRepository using SQLite.
type StageRepository struct {
	db *sql.DB
}

func NewStageRepository(db *DB) *StageRepository {
	return &StageRepository{db: db.SqlDB}
}

func (r *StageRepository) Create(ctx context.Context, stage *domain.Stage) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO stages (name, item_name) VALUES (?, ?)",
		stage.Name, stage.ItemName,
	)
	if err != nil {
		return fmt.Errorf("insert stage: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	stage.ID = id
	return nil
}

func (r *StageRepository) GetByID(ctx context.Context, id int64) (*domain.Stage, error) {
	stage := &domain.Stage{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, item_name FROM stages WHERE id = ?", id,
	).Scan(&stage.ID, &stage.Name, &stage.ItemName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query stage by id: %w", err)
	}
	return stage, nil
}
