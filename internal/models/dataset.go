package models

import "time"

// Dataset is storage bookkeeping for one uploaded file. The bytes themselves
// live in object storage; we only keep the key/URL and a row count.
type Dataset struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:64;index;not null"`
	Endpoint  string `gorm:"size:128;not null"`
	FileKey   string `gorm:"size:512;not null"`
	FileURL   string `gorm:"size:1024;not null"`
	RowCount  int    `gorm:"default:0"`
	CreatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}

// LinkedDataset binds one dataset to a page of the product. One link per
// (user, page type); relinking replaces the previous one.
type LinkedDataset struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:64;not null;uniqueIndex:idx_linked_datasets_user_page"`
	DatasetID uint   `gorm:"not null"`
	PageType  string `gorm:"size:64;not null;uniqueIndex:idx_linked_datasets_user_page"`
	LinkedAt  time.Time

	User    User    `gorm:"constraint:OnDelete:CASCADE"`
	Dataset Dataset `gorm:"constraint:OnDelete:CASCADE"`
}

// LinkedDatasetMetric caches computed metrics for a linked dataset as JSON.
type LinkedDatasetMetric struct {
	ID        uint   `gorm:"primaryKey"`
	DatasetID uint   `gorm:"not null"`
	UserID    string `gorm:"size:64;not null;uniqueIndex:idx_dataset_metrics_user_page"`
	PageType  string `gorm:"size:64;not null;uniqueIndex:idx_dataset_metrics_user_page"`
	Metrics   string `gorm:"type:text;not null"` // JSON
	UpdatedAt time.Time

	User    User    `gorm:"constraint:OnDelete:CASCADE"`
	Dataset Dataset `gorm:"constraint:OnDelete:CASCADE"`
}
