package domain

import "context"

// Stage holds the catalog metadata an illustration points at.
type Stage struct {
	ID       int64
	Name     string
	ItemName string
}

// Illust is an illustration in the shared catalog. Illusts and stages are
// reference data: pre-populated and read-only from the request path.
type Illust struct {
	ID      int64
	Name    string
	StageID int64
}

type IllustRepository interface {
	Create(ctx context.Context, illust *Illust) error
	GetByID(ctx context.Context, id int64) (*Illust, error)
}

type StageRepository interface {
	Create(ctx context.Context, stage *Stage) error
	GetByID(ctx context.Context, id int64) (*Stage, error)
}
