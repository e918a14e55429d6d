package models

import (
	"time"
)

// ArticleStatus is the write-ahead state of an article row
type ArticleStatus string

const (
	// ArticleStatusPending marks a row inserted before its document was promoted
	ArticleStatusPending ArticleStatus = "pending"
	// ArticleStatusPublished marks a row whose artifacts are in permanent storage
	ArticleStatusPublished ArticleStatus = "published"
)

// Article represents a published (or about to be published) article
type Article struct {
	ID          int64         `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	FilePath    string        `json:"file_path" db:"file_path"`
	HTMLContent string        `json:"html_content,omitempty" db:"html_content"`
	Description string        `json:"description" db:"description"`
	Category    string        `json:"category" db:"category"`
	Image       *string       `json:"image" db:"image"`
	ReadingTime int           `json:"reading_time" db:"reading_time"`
	Status      ArticleStatus `json:"-" db:"status"`
	Featured    bool          `json:"destacado" db:"destacado"`
	Hidden      bool          `json:"oculto" db:"oculto"`
	Views       int           `json:"vistas" db:"vistas"`
	Likes       int           `json:"likes" db:"likes"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// HasImage reports whether an illustration was promoted with the article
func (a *Article) HasImage() bool {
	return a.Image != nil && *a.Image != ""
}

// ArticleFilter describes a listing query.
// A nil Featured means "do not filter on featured".
type ArticleFilter struct {
	Category      string `json:"category,omitempty"`
	Featured      *bool  `json:"destacado,omitempty"`
	IncludeHidden bool   `json:"-"`
	OrderBy       string `json:"orderBy"`
	Order         string `json:"order"`
	Limit         int    `json:"limit"`
}

// Listing defaults and bounds
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
	RelatedLimit     = 4
	DefaultOrderBy   = "created_at"
	DefaultOrder     = "DESC"
)

// ValidOrderColumns defines the columns a listing may be sorted by
var ValidOrderColumns = map[string]bool{
	"created_at":   true,
	"vistas":       true,
	"likes":        true,
	"reading_time": true,
}

// AdminArticle is an article as shown to administrators
type AdminArticle struct {
	*Article
	DownloadURL      string `json:"download_url"`
	OriginalFileName string `json:"original_file_name"`
}
