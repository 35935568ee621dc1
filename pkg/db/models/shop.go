package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is read-only here. A seller owns exactly one shop.
type Shop struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_shops_owner_id"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Shop) TableName() string { return "shops" }
