package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Piece is a stored generation result: the request that produced it, the
// event data and the rendered LilyPond source.
type Piece struct {
	ID        string         `gorm:"primarykey;type:uuid" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title       string `json:"title"`
	Key         string `gorm:"not null" json:"key"`
	Mode        string `gorm:"not null;index" json:"mode"`
	MeterBeats  int    `gorm:"not null" json:"meter_beats"`
	MeterUnit   int    `gorm:"not null" json:"meter_unit"`
	NumMeasures int    `gorm:"not null" json:"num_measures"`
	Structure   string `gorm:"not null" json:"structure"`
	Seed        int64  `gorm:"not null" json:"seed"`

	RequestJSON   string `gorm:"type:jsonb" json:"-"`
	EventsJSON    string `gorm:"type:jsonb" json:"-"`
	DecisionsJSON string `gorm:"type:jsonb" json:"-"`
	LilySource    string `gorm:"type:text" json:"-"`
}

// BeforeCreate assigns a UUID primary key
func (p *Piece) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
