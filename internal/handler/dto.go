package handler

import (
	"time"

	"github.com/mzbr/illustbox/internal/domain"
	"github.com/mzbr/illustbox/internal/service"
)

// UserDTO is the JSON representation of a user record. The password hash and
// stored token never leave the server.
type UserDTO struct {
	ID         int64     `json:"_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Image      string    `json:"image"`
	IllustList []int64   `json:"illustList"`
	ItemList   []ItemDTO `json:"itemList"`
	Favorites  []int64   `json:"favorites"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
}

// ItemDTO is an unresolved item reference as stored on the user.
type ItemDTO struct {
	IllustID int64 `json:"illustId"`
	Count    int   `json:"count"`
}

func toUserDTO(u *domain.User) UserDTO {
	items := make([]ItemDTO, len(u.ItemList))
	for i, item := range u.ItemList {
		items[i] = ItemDTO{IllustID: item.IllustID, Count: item.Count}
	}
	return UserDTO{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Image:      u.Image,
		IllustList: emptyIfNil(u.IllustList),
		ItemList:   items,
		Favorites:  emptyIfNil(u.Favorites),
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  u.UpdatedAt.Format(time.RFC3339),
	}
}

// IllustRefDTO is a resolved direct illustration reference.
type IllustRefDTO struct {
	ID   int64  `json:"_id"`
	Name string `json:"name"`
}

// StageRefDTO is the item-name projection of a stage.
type StageRefDTO struct {
	ID       int64  `json:"_id"`
	ItemName string `json:"itemName"`
}

// ItemIllustDTO is an item's illustration resolved through to its stage.
// Stage is null when the stage reference dangles.
type ItemIllustDTO struct {
	ID    int64        `json:"_id"`
	Name  string       `json:"name"`
	Stage *StageRefDTO `json:"stage"`
}

// ResolvedItemDTO is one resolved item-list entry. Illust is null when the
// illustration reference dangles.
type ResolvedItemDTO struct {
	Count  int            `json:"count"`
	Illust *ItemIllustDTO `json:"illust"`
}

// CollectionDTO is the full user document with both relation lists resolved.
type CollectionDTO struct {
	User       UserDTO           `json:"user"`
	IllustList []*IllustRefDTO   `json:"illustList"`
	ItemList   []ResolvedItemDTO `json:"itemList"`
}

func toIllustRefDTOs(refs []*service.ResolvedIllust) []*IllustRefDTO {
	dtos := make([]*IllustRefDTO, len(refs))
	for i, ref := range refs {
		if ref == nil {
			continue
		}
		dtos[i] = &IllustRefDTO{ID: ref.ID, Name: ref.Name}
	}
	return dtos
}

func toResolvedItemDTOs(items []service.ResolvedItem) []ResolvedItemDTO {
	dtos := make([]ResolvedItemDTO, len(items))
	for i, item := range items {
		dto := ResolvedItemDTO{Count: item.Count}
		if item.Illust != nil {
			dto.Illust = &ItemIllustDTO{ID: item.Illust.ID, Name: item.Illust.Name}
			if item.Illust.Stage != nil {
				dto.Illust.Stage = &StageRefDTO{
					ID:       item.Illust.Stage.ID,
					ItemName: item.Illust.Stage.ItemName,
				}
			}
		}
		dtos[i] = dto
	}
	return dtos
}

func toCollectionDTO(col *service.Collection) CollectionDTO {
	return CollectionDTO{
		User:       toUserDTO(col.User),
		IllustList: toIllustRefDTOs(col.IllustList),
		ItemList:   toResolvedItemDTOs(col.ItemList),
	}
}

func emptyIfNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
