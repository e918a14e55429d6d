package service

import (
	"context"

	"github.com/article-publishing-api/internal/config"
	"github.com/article-publishing-api/internal/converter"
	"github.com/article-publishing-api/internal/models"
	"github.com/article-publishing-api/internal/repository"
	"github.com/article-publishing-api/internal/storage"
	"github.com/rs/zerolog"
)

// PublishService defines the staged publishing pipeline
type PublishService interface {
	Preview(ctx context.Context, upload *models.Upload) (*models.PreviewResult, error)
	Confirm(ctx context.Context, req *models.ConfirmRequest, image *models.Upload) (int64, error)
	Cancel(ctx context.Context, req *models.CancelRequest) error
	DeleteArticle(ctx context.Context, id int64) error
}

// ArticleService defines read and flag operations over published articles
type ArticleService interface {
	List(ctx context.Context, filter *models.ArticleFilter) ([]*models.Article, error)
	Featured(ctx context.Context, limit int) ([]*models.Article, error)
	View(ctx context.Context, id int64) (*models.Article, error)
	Related(ctx context.Context, id int64) ([]*models.Article, error)
	Categories(ctx context.Context) ([]string, error)
	Like(ctx context.Context, id int64) (int, error)
	AdminList(ctx context.Context) ([]*models.Article, error)
	AdminGet(ctx context.Context, id int64) (*models.AdminArticle, error)
	ToggleFeatured(ctx context.Context, id int64) (bool, error)
	ToggleHidden(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

// SweepService defines the background cleanup of abandoned uploads
type SweepService interface {
	Start(ctx context.Context)
	Stop()
	RunOnce(ctx context.Context) (*SweepReport, error)
}

// Services holds all service interfaces
type Services struct {
	Publish PublishService
	Article ArticleService
	Sweep   SweepService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, store *storage.Store, conv converter.Converter, cfg *config.Config, log zerolog.Logger) *Services {
	publishSvc := newPublishService(repos, store, conv, cfg, log)
	articleSvc := newArticleService(repos, store, log)
	sweepSvc := newSweepService(repos, store, publishSvc, cfg, log)

	return &Services{
		Publish: publishSvc,
		Article: articleSvc,
		Sweep:   sweepSvc,
	}
}
