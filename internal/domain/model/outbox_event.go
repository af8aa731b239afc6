package model

import "time"

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing" // どれかのdispatcherが取得済み
	OutboxStatusDone       OutboxStatus = "done"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// 配信待ちのドメインイベント。業務データと同じTxで書く
type OutboxEvent struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Topic       string       `gorm:"type:varchar(64);not null;index" json:"topic"`
	Payload     string       `gorm:"type:text;not null" json:"payload"`
	Status      OutboxStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Attempts    int          `gorm:"not null;default:0" json:"attempts"`
	LastError   string       `gorm:"type:text" json:"last_error"`
	ClaimedAt   *time.Time   `json:"claimed_at"`
	CreatedAt   time.Time    `gorm:"not null;index" json:"created_at"`
	ProcessedAt *time.Time   `json:"processed_at"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }
