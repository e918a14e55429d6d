package repository

import (
	"context"
	"errors"
	"time"

	"github.com/article-publishing-api/internal/database"
	"github.com/article-publishing-api/internal/models"
)

// ErrNotFound is returned by mutations addressed at a missing row
var ErrNotFound = errors.New("article not found")

// ErrConstraint is returned when the database rejects a row
var ErrConstraint = errors.New("article violates a table constraint")

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	// CreatePending inserts a write-ahead row and fills ID and timestamps
	CreatePending(ctx context.Context, article *models.Article) error
	// Publish finalizes a pending row
	Publish(ctx context.Context, id int64, htmlContent, description string, readingTime int) error
	// GetByID returns the row in any state, or nil when absent
	GetByID(ctx context.Context, id int64) (*models.Article, error)
	List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error)
	Related(ctx context.Context, id int64, category string, limit int) ([]*models.Article, error)
	Categories(ctx context.Context) ([]string, error)
	// ToggleFeatured flips destacado and returns the new value
	ToggleFeatured(ctx context.Context, id int64) (bool, error)
	// ToggleHidden flips oculto and returns the new value
	ToggleHidden(ctx context.Context, id int64) (bool, error)
	IncrementViews(ctx context.Context, id int64) error
	// IncrementLikes returns the new like count
	IncrementLikes(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
	// ListStalePending returns pending rows created before cutoff
	ListStalePending(ctx context.Context, cutoff time.Time) ([]*models.Article, error)
	// FilePathInUse reports whether another row references the document
	FilePathInUse(ctx context.Context, path string, excludeID int64) (bool, error)
	// ImageInUse reports whether another row references the image URL
	ImageInUse(ctx context.Context, url string, excludeID int64) (bool, error)
	// Count returns the number of published articles
	Count(ctx context.Context) (int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article ArticleRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article: NewArticleRepo(db),
	}
}
