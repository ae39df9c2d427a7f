// Package domain defines the persistence models for items, notes and
// heartbeats. These types are mapped with GORM and stay portable across the
// SQLite and Postgres drivers.
package domain

import "time"

// Item is a named catalogue entry.
type Item struct {
	ID        string    `json:"id"        gorm:"type:varchar(36);primaryKey"`
	Name      string    `json:"name"      gorm:"type:varchar(200);not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index:idx_items_created"`
}

// TableName returns the database table name for Item.
func (Item) TableName() string { return "items" }

// Note is a free-form text entry.
type Note struct {
	ID        string    `json:"id"        gorm:"type:varchar(36);primaryKey"`
	Content   string    `json:"content"   gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index:idx_notes_created"`
}

// TableName returns the database table name for Note.
func (Note) TableName() string { return "notes" }

// Heartbeat is written periodically by the background job to prove the
// process and its database connection are alive.
type Heartbeat struct {
	ID        string    `json:"id"        gorm:"type:varchar(36);primaryKey"`
	Message   string    `json:"message"   gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index"`
}

// TableName returns the database table name for Heartbeat.
func (Heartbeat) TableName() string { return "heartbeats" }
