// Package models holds the records persisted by the library stores.
package models

// Project is one book. Path is relative to the library root.
type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Archived    bool   `json:"archived"`
	Language    string `json:"language,omitempty"`
	CoverImage  string `json:"coverImage,omitempty"`
	SeriesID    string `json:"seriesId"`
	SeriesIndex string `json:"seriesIndex"`
	Path        string `json:"path"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// DefaultSeriesIndex is backfilled into projects that predate series indexes.
const DefaultSeriesIndex = "Book 1"

// Series groups projects that share one codex.
type Series struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// DefaultSeriesStatus is backfilled into series without a status.
const DefaultSeriesStatus = "planning"

// DeletedSeries keeps enough of a cascade-deleted series to recreate it.
type DeletedSeries struct {
	ID           string `json:"id"`
	OriginalID   string `json:"originalId"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Author       string `json:"author,omitempty"`
	Genre        string `json:"genre,omitempty"`
	Status       string `json:"status,omitempty"`
	ProjectCount int    `json:"projectCount"`
	DeletedAt    int64  `json:"deletedAt"`
}

// RegistryRecord is one known project, keyed by Path.
type RegistryRecord struct {
	Path         string `json:"path"`
	ProjectID    string `json:"projectId"`
	Title        string `json:"title"`
	AddedAt      int64  `json:"addedAt"`
	LastOpenedAt int64  `json:"lastOpenedAt"`
}

// TrashedProject records a soft-deleted project directory.
type TrashedProject struct {
	TrashName    string `json:"trashName"`
	OriginalPath string `json:"originalPath"`
	ProjectID    string `json:"projectId"`
	Title        string `json:"title"`
	SeriesID     string `json:"seriesId,omitempty"`
	DeletedAt    int64  `json:"deletedAt"`
}
