package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/article-publishing-api/internal/config"
	"github.com/article-publishing-api/internal/converter"
	"github.com/article-publishing-api/internal/converter/docxtest"
	"github.com/article-publishing-api/internal/mocks"
	"github.com/article-publishing-api/internal/models"
	"github.com/article-publishing-api/internal/repository"
	"github.com/article-publishing-api/internal/service"
	"github.com/article-publishing-api/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docxType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"), make([]byte, 64)...)

type fixture struct {
	cfg   *config.Config
	repo  *mocks.MockArticleRepository
	store *storage.Store
	conv  *mocks.MockConverter
	svc   *service.Services
}

func newFixture(t *testing.T, opts ...func(*config.Config)) *fixture {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Storage.TempDir = filepath.Join(root, "temp")
	cfg.Storage.ArticlesDir = filepath.Join(root, "public", "articles")
	cfg.Storage.UploadsDir = filepath.Join(root, "public", "uploads")
	cfg.Sweep.TempTTL = time.Hour
	cfg.Sweep.PendingTTL = time.Minute
	cfg.Sweep.Interval = 10 * time.Millisecond
	for _, opt := range opts {
		opt(cfg)
	}

	repo := mocks.NewMockArticleRepository()
	store := storage.New(cfg.Storage, zerolog.Nop())
	conv := &mocks.MockConverter{Next: converter.NewDocxConverter()}

	return &fixture{
		cfg:   cfg,
		repo:  repo,
		store: store,
		conv:  conv,
		svc:   service.NewServices(&repository.Repositories{Article: repo}, store, conv, cfg, zerolog.Nop()),
	}
}

func document(texts ...string) *models.Upload {
	data := docxtest.Text(texts...)
	return &models.Upload{
		Reader:    bytes.NewReader(data),
		Size:      int64(len(data)),
		MediaType: docxType,
		FileName:  "informe.docx",
	}
}

func image() *models.Upload {
	return &models.Upload{
		Reader:    bytes.NewReader(pngBytes),
		Size:      int64(len(pngBytes)),
		MediaType: "image/png",
		FileName:  "portada.png",
	}
}

func files(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func requireCode(t *testing.T, err error, kind service.ErrorKind, code string) {
	t.Helper()
	require.Error(t, err)
	se := service.AsError(err)
	assert.Equal(t, kind, se.Kind, "error: %v", err)
	assert.Equal(t, code, se.Code, "error: %v", err)
}

func (f *fixture) preview(t *testing.T, texts ...string) *models.PreviewResult {
	t.Helper()
	res, err := f.svc.Publish.Preview(context.Background(), document(texts...))
	require.NoError(t, err)
	return res
}

func (f *fixture) assertNoResidue(t *testing.T) {
	t.Helper()
	assert.Empty(t, files(t, f.cfg.Storage.TempDir), "temp namespace")
	assert.Empty(t, files(t, f.cfg.Storage.ArticlesDir), "articles namespace")
	assert.Empty(t, files(t, f.cfg.Storage.UploadsDir), "uploads namespace")
	assert.Zero(t, f.repo.Len(), "article rows")
}

func TestPreview(t *testing.T) {
	f := newFixture(t)

	res := f.preview(t, "Hola mundo cruel")

	assert.Equal(t, "<p>Hola mundo cruel</p>", res.HTMLContent)
	assert.Equal(t, "informe.docx", res.FileName)
	assert.True(t, strings.HasPrefix(res.TempPath, storage.DocumentTempPrefix))
	assert.Equal(t, []string{res.TempPath}, files(t, f.cfg.Storage.TempDir))
	assert.Zero(t, f.repo.Len(), "preview never touches the database")
}

func TestPreview_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Publish.Preview(context.Background(), nil)
	requireCode(t, err, service.KindValidation, service.CodeUploadMissing)

	pdf := document("x")
	pdf.FileName = "informe.pdf"
	_, err = f.svc.Publish.Preview(context.Background(), pdf)
	requireCode(t, err, service.KindValidation, service.CodeUploadInvalid)

	big := document("x")
	big.Size = f.cfg.Storage.MaxDocumentSize + 1
	_, err = f.svc.Publish.Preview(context.Background(), big)
	requireCode(t, err, service.KindValidation, service.CodeUploadInvalid)
	assert.Equal(t, 400, service.AsError(err).Status())

	f.assertNoResidue(t)
}

func TestPreview_ConversionFailureRemovesTemp(t *testing.T) {
	f := newFixture(t)
	f.conv.ConvertFunc = func(ctx context.Context, path string) (string, error) {
		return "", converter.ErrMalformed
	}

	_, err := f.svc.Publish.Preview(context.Background(), document("hola"))

	requireCode(t, err, service.KindConversion, service.CodeProcessFailed)
	assert.Equal(t, 500, service.AsError(err).Status())
	assert.ErrorIs(t, err, converter.ErrMalformed)
	f.assertNoResidue(t)
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	res := f.preview(t, "Primer párrafo del artículo", "Segundo párrafo")

	id, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{
		TempPath: res.TempPath,
		FileName: res.FileName,
	}, nil)
	require.NoError(t, err)

	article, _ := f.repo.GetByID(context.Background(), id)
	require.NotNil(t, article)
	assert.Equal(t, models.ArticleStatusPublished, article.Status)
	assert.Equal(t, "informe.docx", article.Title, "title falls back to the file name")
	assert.Equal(t, "General", article.Category)
	assert.Equal(t, 1, article.ReadingTime)
	assert.Equal(t, res.HTMLContent, article.HTMLContent, "conversion is deterministic")
	assert.Equal(t, "Primer párrafo del artículo Segundo párrafo", article.Description)
	assert.Nil(t, article.Image)

	assert.Empty(t, files(t, f.cfg.Storage.TempDir))
	promoted := "article-" + strings.TrimPrefix(res.TempPath, "temp-")
	assert.Equal(t, []string{promoted}, files(t, f.cfg.Storage.ArticlesDir))
	assert.Equal(t, filepath.Join(f.cfg.Storage.ArticlesDir, promoted), article.FilePath)
	assert.Equal(t, article.FilePath, f.conv.Paths[len(f.conv.Paths)-1], "confirm converts the promoted copy")
}

func TestConfirm_ReadingTime(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("palabra ", 1000))

	tests := []struct {
		name     string
		override string
		want     int
	}{
		{name: "derived", override: "", want: 5},
		{name: "explicit", override: "7", want: 7},
		{name: "zero is ignored", override: "0", want: 5},
		{name: "negative is ignored", override: "-3", want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res := f.preview(t, long)

			id, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{
				TempPath:    res.TempPath,
				Title:       "Largo",
				Category:    "Ciencia",
				ReadingTime: json.Number(tt.override),
			}, nil)
			require.NoError(t, err)

			article, _ := f.repo.GetByID(context.Background(), id)
			assert.Equal(t, tt.want, article.ReadingTime)
			assert.Equal(t, "Largo", article.Title)
			assert.Equal(t, "Ciencia", article.Category)
		})
	}

	t.Run("non-integer is rejected", func(t *testing.T) {
		f := newFixture(t)
		res := f.preview(t, "hola")

		_, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{
			TempPath:    res.TempPath,
			ReadingTime: json.Number("abc"),
		}, nil)
		requireCode(t, err, service.KindValidation, service.CodeConfirmInvalid)
		assert.Equal(t, []string{res.TempPath}, files(t, f.cfg.Storage.TempDir), "preview stays confirmable")
	})
}

func TestConfirm_WithImage(t *testing.T) {
	f := newFixture(t)
	res := f.preview(t, "hola")

	id, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{TempPath: res.TempPath, Title: "Ilustrado"}, image())
	require.NoError(t, err)

	article, _ := f.repo.GetByID(context.Background(), id)
	require.True(t, article.HasImage())
	assert.True(t, strings.HasPrefix(*article.Image, "/uploads/image-"), *article.Image)

	uploads := files(t, f.cfg.Storage.UploadsDir)
	require.Len(t, uploads, 1)
	assert.Equal(t, "/uploads/"+uploads[0], *article.Image)
	assert.Empty(t, files(t, f.cfg.Storage.TempDir))
}

func TestConfirm_InvalidImageKeepsPreview(t *testing.T) {
	f := newFixture(t)
	res := f.preview(t, "hola")

	bad := image()
	bad.FileName = "portada.bmp"
	_, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{TempPath: res.TempPath}, bad)

	requireCode(t, err, service.KindValidation, service.CodeUploadInvalid)
	assert.Equal(t, []string{res.TempPath}, files(t, f.cfg.Storage.TempDir))
	assert.Zero(t, f.repo.Len())
}

func TestConfirm_StaleReference(t *testing.T) {
	f := newFixture(t)
	f.preview(t, "hola")

	for _, ref := range []string{"", "temp-0-missing.docx", "../../etc/passwd", "/etc/hosts"} {
		_, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{TempPath: ref}, image())
		if ref == "" {
			requireCode(t, err, service.KindValidation, service.CodeConfirmInvalid)
		} else {
			requireCode(t, err, service.KindStaleReference, service.CodeConfirmInvalid)
		}
		assert.Equal(t, 400, service.AsError(err).Status())
	}

	assert.Empty(t, files(t, f.cfg.Storage.UploadsDir))
	assert.Len(t, files(t, f.cfg.Storage.TempDir), 1, "only the untouched preview remains")
	assert.Zero(t, f.repo.Len())
}

func TestConfirm_RollbackOnConversionFailure(t *testing.T) {
	f := newFixture(t)
	res := f.preview(t, "hola")

	f.conv.ConvertFunc = func(ctx context.Context, path string) (string, error) {
		return "", converter.ErrUnreadable
	}
	_, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{TempPath: res.TempPath}, image())

	requireCode(t, err, service.KindConversion, service.CodeConfirmFailed)
	assert.Equal(t, 500, service.AsError(err).Status())
	assert.Equal(t, 1, f.repo.CreateCalls, "the write-ahead row was inserted")
	f.assertNoResidue(t)
}

func TestConfirm_RollbackOnInsertFailure(t *testing.T) {
	f := newFixture(t)
	res := f.preview(t, "hola")
	f.repo.CreateError = errors.New("connection refused")

	_, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{TempPath: res.TempPath}, image())

	requireCode(t, err, service.KindPersistence, service.CodeConfirmFailed)
	f.assertNoResidue(t)
}

func TestConfirm_RollbackOnPublishFailure(t *testing.T) {
	f := newFixture(t)
	res := f.preview(t, "hola")
	f.repo.PublishError = errors.New("deadlock detected")

	_, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{TempPath: res.TempPath}, image())

	requireCode(t, err, service.KindPersistence, service.CodeConfirmFailed)
	f.assertNoResidue(t)
}

func TestConfirm_ConcurrentSameTemp(t *testing.T) {
	f := newFixture(t)
	res := f.preview(t, "hola")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{TempPath: res.TempPath}, image())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireCode(t, err, service.KindStaleReference, service.CodeConfirmInvalid)
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.repo.Len())
	assert.Len(t, files(t, f.cfg.Storage.ArticlesDir), 1)
	assert.Len(t, files(t, f.cfg.Storage.UploadsDir), 1, "losers remove their own images")
	assert.Empty(t, files(t, f.cfg.Storage.TempDir))
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	res := f.preview(t, "hola")

	require.NoError(t, f.svc.Publish.Cancel(context.Background(), &models.CancelRequest{TempPath: res.TempPath}))
	assert.Empty(t, files(t, f.cfg.Storage.TempDir))

	err := f.svc.Publish.Cancel(context.Background(), &models.CancelRequest{TempPath: res.TempPath})
	requireCode(t, err, service.KindStaleReference, service.CodeCancelInvalid)

	err = f.svc.Publish.Cancel(context.Background(), &models.CancelRequest{})
	requireCode(t, err, service.KindValidation, service.CodeCancelInvalid)

	_, err = f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{TempPath: res.TempPath}, nil)
	requireCode(t, err, service.KindStaleReference, service.CodeConfirmInvalid)
}

func TestDeleteArticle(t *testing.T) {
	f := newFixture(t)
	res := f.preview(t, "hola")
	id, err := f.svc.Publish.Confirm(context.Background(), &models.ConfirmRequest{TempPath: res.TempPath}, image())
	require.NoError(t, err)

	require.NoError(t, f.svc.Publish.DeleteArticle(context.Background(), id))
	f.assertNoResidue(t)

	err = f.svc.Publish.DeleteArticle(context.Background(), id)
	requireCode(t, err, service.KindNotFound, service.CodeDeleteNotFound)
	assert.Equal(t, 404, service.AsError(err).Status())
}

func TestDeleteArticle_MissingFilesAndRowFailure(t *testing.T) {
	f := newFixture(t)
	img := "/uploads/image-gone.png"
	article := f.repo.Put(&models.Article{
		Title:    "Huérfano",
		FilePath: filepath.Join(f.cfg.Storage.ArticlesDir, "article-gone.docx"),
		Image:    &img,
		Status:   models.ArticleStatusPublished,
	})

	f.repo.DeleteError = errors.New("connection reset")
	err := f.svc.Publish.DeleteArticle(context.Background(), article.ID)
	requireCode(t, err, service.KindPersistence, service.CodeDeleteFailed)

	f.repo.DeleteError = nil
	require.NoError(t, f.svc.Publish.DeleteArticle(context.Background(), article.ID), "missing files are ignored")
	assert.Zero(t, f.repo.Len())
}
