package model

import (
	"time"

	"github.com/google/uuid"
)

type Media struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      string    `gorm:"type:varchar(16);not null"`
	Alt       string    `gorm:"type:varchar(255)"`
	FileName  string    `gorm:"type:varchar(255);not null"`
	MimeType  string    `gorm:"type:varchar(64)"`
	Size      int64
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Media) TableName() string {
	return "media"
}
