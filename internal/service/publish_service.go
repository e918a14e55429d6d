package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/article-publishing-api/internal/config"
	"github.com/article-publishing-api/internal/converter"
	"github.com/article-publishing-api/internal/models"
	"github.com/article-publishing-api/internal/readtime"
	"github.com/article-publishing-api/internal/repository"
	"github.com/article-publishing-api/internal/storage"
	"github.com/article-publishing-api/internal/validation"
	"github.com/rs/zerolog"
)

// publishService is the concrete implementation of PublishService
type publishService struct {
	articles  repository.ArticleRepository
	store     *storage.Store
	converter converter.Converter
	cfg       config.PublishConfig
	log       zerolog.Logger
}

func newPublishService(repos *repository.Repositories, store *storage.Store, conv converter.Converter, cfg *config.Config, log zerolog.Logger) *publishService {
	return &publishService{
		articles:  repos.Article,
		store:     store,
		converter: conv,
		cfg:       cfg.Publish,
		log:       log.With().Str("service", "publish").Logger(),
	}
}

// compensation undoes one completed step of a confirm
type compensation struct {
	action string
	undo   func() error
}

// rollback is the in-call compensation log of a confirm
type rollback struct {
	steps []compensation
	log   zerolog.Logger
}

func (r *rollback) add(action string, undo func() error) {
	r.steps = append(r.steps, compensation{action: action, undo: undo})
}

// run executes compensations in reverse order. Failures are logged and
// never replace the error that triggered the rollback.
func (r *rollback) run() {
	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		if err := step.undo(); err != nil {
			rollbacksTotal.WithLabelValues(step.action, "error").Inc()
			r.log.Warn().Err(err).Str("action", step.action).Msg("Compensating action failed")
			continue
		}
		rollbacksTotal.WithLabelValues(step.action, "success").Inc()
	}
}

// Preview stages a document and returns its converted HTML. The staged
// file stays in place until confirm, cancel or expiry.
func (s *publishService) Preview(ctx context.Context, upload *models.Upload) (result *models.PreviewResult, err error) {
	start := time.Now()
	defer func() { recordOperation("preview", start, err) }()

	if upload == nil {
		return nil, newError(KindValidation, CodeUploadMissing, "no file was uploaded", nil)
	}

	artifact, err := s.store.Stage(models.ArtifactDocument, upload)
	if err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			return nil, newError(KindValidation, CodeUploadInvalid, verr.Message, err)
		}
		return nil, newError(KindInternal, CodeProcessFailed, "failed to store the uploaded document", err)
	}

	html, err := s.converter.Convert(ctx, artifact.Path)
	if err != nil {
		if rmErr := s.store.Remove(artifact.Path); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("path", artifact.Path).Msg("Failed to remove unconvertible upload")
		}
		return nil, newError(KindConversion, CodeProcessFailed, "error processing the document", err)
	}

	s.log.Info().
		Str("temp", filepath.Base(artifact.Path)).
		Str("file_name", artifact.OriginalName).
		Int64("size_bytes", artifact.Size).
		Msg("Document previewed")

	return &models.PreviewResult{
		TempPath:    filepath.Base(artifact.Path),
		HTMLContent: html,
		FileName:    artifact.OriginalName,
	}, nil
}

// Confirm promotes a previewed document (and optional image) and
// publishes it. On failure every completed step is compensated.
func (s *publishService) Confirm(ctx context.Context, req *models.ConfirmRequest, image *models.Upload) (id int64, err error) {
	start := time.Now()
	defer func() { recordOperation("confirm", start, err) }()

	override, verrs := validation.ValidateConfirm(req)
	if len(verrs) > 0 {
		return 0, newError(KindValidation, CodeConfirmInvalid, verrs[0].Message, &verrs[0])
	}

	docPath, err := s.store.ResolveTemp(models.ArtifactDocument, req.TempPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotStaged) {
			return 0, newError(KindStaleReference, CodeConfirmInvalid, "temporary file not found", err)
		}
		return 0, newError(KindInternal, CodeConfirmFailed, "error confirming the article", err)
	}

	// compensations must run even when the request context is gone
	cleanupCtx := context.WithoutCancel(ctx)
	rb := &rollback{log: s.log.With().Str("temp", filepath.Base(docPath)).Logger()}
	defer func() {
		if err != nil {
			rb.run()
		}
	}()

	var stagedImage string
	if image != nil {
		artifact, stageErr := s.store.Stage(models.ArtifactImage, image)
		if stageErr != nil {
			var verr *validation.ValidationError
			if errors.As(stageErr, &verr) {
				return 0, newError(KindValidation, CodeUploadInvalid, verr.Message, stageErr)
			}
			return 0, newError(KindInternal, CodeConfirmFailed, "error storing the image", stageErr)
		}
		stagedImage = artifact.Path
		rb.add("remove_staged_image", func() error { return s.store.Remove(stagedImage) })
	}

	article, err := s.plan(req, docPath, stagedImage)
	if err != nil {
		return 0, newError(KindInternal, CodeConfirmFailed, "error confirming the article", err)
	}

	// 1. write-ahead row
	rb.add("remove_temp_document", func() error { return s.store.Remove(docPath) })
	if err := s.articles.CreatePending(ctx, article); err != nil {
		return 0, newError(KindPersistence, CodeConfirmFailed, "error saving the article", err)
	}
	rb.add("delete_pending_row", func() error { return s.deleteRow(cleanupCtx, article.ID) })

	// 2. promote the document; a vanished temp means another confirm won
	finalDoc, err := s.store.Promote(models.ArtifactDocument, docPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotStaged) {
			return 0, newError(KindStaleReference, CodeConfirmInvalid, "temporary file not found", err)
		}
		return 0, newError(KindInternal, CodeConfirmFailed, "error moving the document", err)
	}
	rb.add("remove_document", func() error { return s.store.Remove(finalDoc) })

	// 3. promote the image
	if stagedImage != "" {
		finalImage, err := s.store.Promote(models.ArtifactImage, stagedImage)
		if err != nil {
			return 0, newError(KindInternal, CodeConfirmFailed, "error moving the image", err)
		}
		rb.add("remove_image", func() error { return s.store.Remove(finalImage) })
	}

	// 4-6. convert the promoted copy and finalize the row
	if err := s.finalize(ctx, article, override); err != nil {
		return 0, err
	}

	s.log.Info().
		Int64("article_id", article.ID).
		Str("title", article.Title).
		Str("category", article.Category).
		Int("reading_time", article.ReadingTime).
		Bool("has_image", article.HasImage()).
		Msg("Article published")

	return article.ID, nil
}

// plan builds the pending row, including the permanent paths the
// artifacts will be promoted to
func (s *publishService) plan(req *models.ConfirmRequest, docPath, stagedImage string) (*models.Article, error) {
	finalDoc, err := s.store.PromotedPath(models.ArtifactDocument, docPath)
	if err != nil {
		return nil, err
	}

	article := &models.Article{
		Title:       firstNonEmpty(req.Title, req.FileName, filepath.Base(docPath)),
		FilePath:    finalDoc,
		Category:    firstNonEmpty(req.Category, s.cfg.DefaultCategory, "General"),
		ReadingTime: 1,
	}

	if stagedImage != "" {
		finalImage, err := s.store.PromotedPath(models.ArtifactImage, stagedImage)
		if err != nil {
			return nil, err
		}
		url := s.store.ImageURL(finalImage)
		article.Image = &url
	}
	return article, nil
}

// finalize converts the promoted document and flips the row to published.
// A positive override replaces the derived reading time.
func (s *publishService) finalize(ctx context.Context, article *models.Article, override int) error {
	html, err := s.converter.Convert(ctx, article.FilePath)
	if err != nil {
		return newError(KindConversion, CodeConfirmFailed, "error processing the document", err)
	}

	description, err := converter.Describe(html, s.cfg.DescriptionLength)
	if err != nil {
		return newError(KindConversion, CodeConfirmFailed, "error processing the document", err)
	}

	readingTime := override
	if readingTime < 1 {
		readingTime = readtime.FromHTML(html)
	}

	if err := s.articles.Publish(ctx, article.ID, html, description, readingTime); err != nil {
		return newError(KindPersistence, CodeConfirmFailed, "error saving the article", err)
	}

	article.HTMLContent = html
	article.Description = description
	article.ReadingTime = readingTime
	article.Status = models.ArticleStatusPublished
	return nil
}

func (s *publishService) deleteRow(ctx context.Context, id int64) error {
	if err := s.articles.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// Cancel discards a previewed document
func (s *publishService) Cancel(ctx context.Context, req *models.CancelRequest) (err error) {
	start := time.Now()
	defer func() { recordOperation("cancel", start, err) }()

	if strings.TrimSpace(req.TempPath) == "" {
		return newError(KindValidation, CodeCancelInvalid, "missing required field: tempPath", nil)
	}

	path, err := s.store.ResolveTemp(models.ArtifactDocument, req.TempPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotStaged) {
			return newError(KindStaleReference, CodeCancelInvalid, "temporary file not found", err)
		}
		return newError(KindInternal, CodeCancelFailed, "error cancelling the upload", err)
	}

	if err := s.store.RemoveStaged(path); err != nil {
		if errors.Is(err, storage.ErrNotStaged) {
			return newError(KindStaleReference, CodeCancelInvalid, "temporary file not found", err)
		}
		return newError(KindInternal, CodeCancelFailed, "error cancelling the upload", err)
	}

	s.log.Info().Str("temp", filepath.Base(path)).Msg("Upload cancelled")
	return nil
}

// DeleteArticle removes an article's files and then its row
func (s *publishService) DeleteArticle(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { recordOperation("delete", start, err) }()

	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return newError(KindPersistence, CodeDeleteFailed, "error deleting the article", err)
	}
	if article == nil {
		return newError(KindNotFound, CodeDeleteNotFound, "article not found", nil)
	}

	s.removeArtifacts(ctx, article, false)

	if err := s.articles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindNotFound, CodeDeleteNotFound, "article not found", err)
		}
		return newError(KindPersistence, CodeDeleteFailed, "error deleting the article", err)
	}

	s.log.Info().Int64("article_id", id).Str("title", article.Title).Msg("Article deleted")
	return nil
}

// removeArtifacts deletes the document and image of an article, best
// effort. With shared set, files still referenced by another row survive.
func (s *publishService) removeArtifacts(ctx context.Context, article *models.Article, shared bool) {
	if article.FilePath != "" {
		inUse := false
		if shared {
			var err error
			if inUse, err = s.articles.FilePathInUse(ctx, article.FilePath, article.ID); err != nil {
				s.log.Warn().Err(err).Int64("article_id", article.ID).Msg("Failed to check document references")
				inUse = true
			}
		}
		if !inUse {
			if err := s.store.Remove(article.FilePath); err != nil {
				s.log.Warn().Err(err).Int64("article_id", article.ID).Msg("Failed to remove document")
			}
		}
	}

	if article.HasImage() {
		inUse := false
		if shared {
			var err error
			if inUse, err = s.articles.ImageInUse(ctx, *article.Image, article.ID); err != nil {
				s.log.Warn().Err(err).Int64("article_id", article.ID).Msg("Failed to check image references")
				inUse = true
			}
		}
		if !inUse {
			if err := s.store.Remove(s.store.ImagePath(*article.Image)); err != nil {
				s.log.Warn().Err(err).Int64("article_id", article.ID).Msg("Failed to remove image")
			}
		}
	}
}

// recoverPending resolves a write-ahead row left behind by a crash. The
// row is rolled forward when its artifacts were promoted, otherwise it is
// rolled back. It reports whether the row was published.
func (s *publishService) recoverPending(ctx context.Context, article *models.Article) (bool, error) {
	promoted := s.store.Exists(article.FilePath) &&
		(!article.HasImage() || s.store.Exists(s.store.ImagePath(*article.Image)))

	// two confirms of one preview both plan the same document path; only
	// one of them can own it, so the row that meets another owner yields
	if promoted {
		owned, err := s.articles.FilePathInUse(ctx, article.FilePath, article.ID)
		if err != nil {
			return false, fmt.Errorf("failed to check document owner of pending article %d: %w", article.ID, err)
		}
		promoted = !owned
	}

	if promoted {
		err := s.finalize(ctx, article, 0)
		if err == nil {
			return true, nil
		}
		s.log.Warn().Err(err).Int64("article_id", article.ID).Msg("Roll forward failed, rolling back")
	}

	s.removeArtifacts(ctx, article, true)
	if err := s.deleteRow(ctx, article.ID); err != nil {
		return false, fmt.Errorf("failed to delete pending article %d: %w", article.ID, err)
	}
	return false, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
