package model

import (
	"time"
)

// Contract represents a media placement agreement with a shopping mall
type Contract struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Tenant       string     `gorm:"size:64;index" json:"tenant"`
	ShoppingName string     `gorm:"size:255" json:"shopping_name"`
	ClientName   string     `gorm:"size:255" json:"client_name"`
	MediaType    string     `gorm:"size:64" json:"media_type"`
	Value        float64    `json:"value"`
	Status       string     `gorm:"size:16" json:"status"` // pending, active, expired
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	CurrentStep  *string    `gorm:"size:64" json:"current_step,omitempty"`
	DocumentURL  string     `json:"document_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Contract lifecycle status constants
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusExpired = "expired"
)
