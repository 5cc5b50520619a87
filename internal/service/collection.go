package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mzbr/illustbox/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ResolvedIllust is an illustration reference resolved to its name.
type ResolvedIllust struct {
	ID   int64
	Name string
}

// ResolvedStage is the stage projection used by item resolution: only the
// stage's item name is selected.
type ResolvedStage struct {
	ID       int64
	ItemName string
}

// ResolvedItemIllust is an item's illustration resolved through to its stage.
type ResolvedItemIllust struct {
	ID    int64
	Name  string
	Stage *ResolvedStage
}

// ResolvedItem is one entry of a user's item list after reference resolution.
// Illust is nil when the stored reference no longer matches a catalog row.
type ResolvedItem struct {
	Count  int
	Illust *ResolvedItemIllust
}

// Collection is the full user document with both relation lists resolved.
type Collection struct {
	User       *domain.User
	IllustList []*ResolvedIllust
	ItemList   []ResolvedItem
}

// CollectionService assembles a user's nested collection data by resolving
// stored references through the illustration and stage catalogs. A dangling
// reference nulls that entry's relation; it never fails the request.
type CollectionService struct {
	users   domain.UserRepository
	illusts domain.IllustRepository
	stages  domain.StageRepository
}

// NewCollectionService creates a new CollectionService.
func NewCollectionService(users domain.UserRepository, illusts domain.IllustRepository, stages domain.StageRepository) *CollectionService {
	return &CollectionService{users: users, illusts: illusts, stages: stages}
}

// Info returns the raw user record with no relations resolved.
func (s *CollectionService) Info(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// IllustList resolves the user's direct illustration references to their
// names. A missing catalog row yields a nil entry at that position.
func (s *CollectionService) IllustList(ctx context.Context, userID int64) ([]*ResolvedIllust, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveIllusts(ctx, user.IllustList)
}

// ItemList resolves the user's items through illustration to stage, keeping
// only the stage's item name.
func (s *CollectionService) ItemList(ctx context.Context, userID int64) ([]ResolvedItem, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveItems(ctx, user.ItemList)
}

// Collection returns the full user document with both relation lists
// resolved. The two lists have no mutual dependency, so they resolve
// concurrently.
func (s *CollectionService) Collection(ctx context.Context, userID int64) (*Collection, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	col := &Collection{User: user}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		col.IllustList, err = s.resolveIllusts(gctx, user.IllustList)
		return err
	})
	g.Go(func() error {
		var err error
		col.ItemList, err = s.resolveItems(gctx, user.ItemList)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return col, nil
}

func (s *CollectionService) resolveIllusts(ctx context.Context, refs []int64) ([]*ResolvedIllust, error) {
	resolved := make([]*ResolvedIllust, len(refs))
	for i, ref := range refs {
		illust, err := s.illusts.GetByID(ctx, ref)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve illust %d: %w", ref, err)
		}
		resolved[i] = &ResolvedIllust{ID: illust.ID, Name: illust.Name}
	}
	return resolved, nil
}

// resolveItems walks each item's reference chain sequentially: the stage
// lookup depends on the illustration row.
func (s *CollectionService) resolveItems(ctx context.Context, items []domain.Item) ([]ResolvedItem, error) {
	resolved := make([]ResolvedItem, len(items))
	for i, item := range items {
		resolved[i] = ResolvedItem{Count: item.Count}

		illust, err := s.illusts.GetByID(ctx, item.IllustID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve item illust %d: %w", item.IllustID, err)
		}

		entry := &ResolvedItemIllust{ID: illust.ID, Name: illust.Name}
		stage, err := s.stages.GetByID(ctx, illust.StageID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("resolve stage %d: %w", illust.StageID, err)
			}
		} else {
			entry.Stage = &ResolvedStage{ID: stage.ID, ItemName: stage.ItemName}
		}
		resolved[i].Illust = entry
	}
	return resolved, nil
}
