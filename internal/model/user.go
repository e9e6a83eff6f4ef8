package model

import "time"

// User stores Telegram user metadata. Local CLI usage maps onto the same row
// through the configured Telegram ID.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Tasks      []Task `gorm:"foreignKey:UserID"`
}
