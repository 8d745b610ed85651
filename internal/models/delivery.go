package models

import (
	"time"

	"gorm.io/datatypes"
)

// Delivery is one queued invocation of a destination action. Payload holds a
// single mapped payload, or a JSON array of them when Batch is set.
type Delivery struct {
	ID          uint           `gorm:"primaryKey;autoIncrement"`
	MessageID   string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	Destination string         `gorm:"type:varchar(255);not null;index:idx_deliveries_queue,priority:1"`
	Action      string         `gorm:"type:varchar(255);not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	Batch       bool           `gorm:"not null;default:false"`
	Status      string         `gorm:"type:varchar(50);not null;default:'queued';index:idx_deliveries_queue,priority:2"`
	Attempts    int            `gorm:"default:0;not null"`
	MaxRetries  int            `gorm:"default:3;not null"`
	Result      datatypes.JSON `gorm:"type:jsonb"`
	Error       string         `gorm:"type:text"`
	AvailableAt time.Time      `gorm:"not null;index:idx_deliveries_queue,priority:3"`
	LockedBy    *uint
	LockedAt    *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}
