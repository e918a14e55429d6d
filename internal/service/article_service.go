package service

import (
	"context"
	"errors"

	"github.com/article-publishing-api/internal/models"
	"github.com/article-publishing-api/internal/repository"
	"github.com/article-publishing-api/internal/storage"
	"github.com/article-publishing-api/internal/validation"
	"github.com/rs/zerolog"
)

// articleService is the concrete implementation of ArticleService
type articleService struct {
	articles repository.ArticleRepository
	store    *storage.Store
	log      zerolog.Logger
}

func newArticleService(repos *repository.Repositories, store *storage.Store, log zerolog.Logger) *articleService {
	return &articleService{
		articles: repos.Article,
		store:    store,
		log:      log.With().Str("service", "article").Logger(),
	}
}

func catalogError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, CodeArticleNotFound, "article not found", err)
	}
	return newError(KindPersistence, CodeCatalogFailed, "error reading articles", err)
}

// List returns visible articles. The filter is validated and defaults
// are filled in place of empty fields.
func (s *articleService) List(ctx context.Context, filter *models.ArticleFilter) ([]*models.Article, error) {
	if verr := validation.ValidateFilter(filter); verr != nil {
		return nil, newError(KindValidation, CodeInvalidQuery, verr.Message, verr)
	}
	filter.IncludeHidden = false

	articles, err := s.articles.List(ctx, *filter)
	if err != nil {
		return nil, catalogError(err)
	}
	return articles, nil
}

// Featured returns visible featured articles, newest first
func (s *articleService) Featured(ctx context.Context, limit int) ([]*models.Article, error) {
	featured := true
	return s.List(ctx, &models.ArticleFilter{Featured: &featured, Limit: limit})
}

// visible returns a published, non-hidden article or a not-found error
func (s *articleService) visible(ctx context.Context, id int64) (*models.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, catalogError(err)
	}
	if article == nil || article.Status != models.ArticleStatusPublished || article.Hidden {
		return nil, newError(KindNotFound, CodeArticleNotFound, "article not found", nil)
	}
	return article, nil
}

// View returns a visible article and counts the view
func (s *articleService) View(ctx context.Context, id int64) (*models.Article, error) {
	article, err := s.visible(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.articles.IncrementViews(ctx, id); err != nil {
		s.log.Warn().Err(err).Int64("article_id", id).Msg("Failed to count view")
	} else {
		article.Views++
	}
	return article, nil
}

// Related returns up to models.RelatedLimit other visible articles,
// same category first
func (s *articleService) Related(ctx context.Context, id int64) ([]*models.Article, error) {
	article, err := s.visible(ctx, id)
	if err != nil {
		return nil, err
	}

	related, err := s.articles.Related(ctx, id, article.Category, models.RelatedLimit)
	if err != nil {
		return nil, catalogError(err)
	}
	return related, nil
}

// Categories returns the distinct categories of visible articles
func (s *articleService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.articles.Categories(ctx)
	if err != nil {
		return nil, catalogError(err)
	}
	return categories, nil
}

// Like counts a like and returns the new total
func (s *articleService) Like(ctx context.Context, id int64) (int, error) {
	likes, err := s.articles.IncrementLikes(ctx, id)
	if err != nil {
		return 0, catalogError(err)
	}
	return likes, nil
}

// AdminList returns every published article, hidden ones included
func (s *articleService) AdminList(ctx context.Context) ([]*models.Article, error) {
	articles, err := s.articles.List(ctx, models.ArticleFilter{
		IncludeHidden: true,
		OrderBy:       models.DefaultOrderBy,
		Order:         models.DefaultOrder,
	})
	if err != nil {
		return nil, catalogError(err)
	}
	return articles, nil
}

// AdminGet returns a published article with its download location
func (s *articleService) AdminGet(ctx context.Context, id int64) (*models.AdminArticle, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, catalogError(err)
	}
	if article == nil || article.Status != models.ArticleStatusPublished {
		return nil, newError(KindNotFound, CodeArticleNotFound, "article not found", nil)
	}

	return &models.AdminArticle{
		Article:          article,
		DownloadURL:      s.store.DocumentURL(article.FilePath),
		OriginalFileName: storage.DisplayName(article.FilePath),
	}, nil
}

// ToggleFeatured flips the featured flag and returns the new value
func (s *articleService) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	featured, err := s.articles.ToggleFeatured(ctx, id)
	if err != nil {
		return false, catalogError(err)
	}
	s.log.Info().Int64("article_id", id).Bool("destacado", featured).Msg("Featured flag toggled")
	return featured, nil
}

// ToggleHidden flips the hidden flag and returns the new value
func (s *articleService) ToggleHidden(ctx context.Context, id int64) (bool, error) {
	hidden, err := s.articles.ToggleHidden(ctx, id)
	if err != nil {
		return false, catalogError(err)
	}
	s.log.Info().Int64("article_id", id).Bool("oculto", hidden).Msg("Hidden flag toggled")
	return hidden, nil
}

// Count returns the number of published articles
func (s *articleService) Count(ctx context.Context) (int, error) {
	n, err := s.articles.Count(ctx)
	if err != nil {
		return 0, catalogError(err)
	}
	return n, nil
}
