package mocks

import (
	"context"
	"sync"

	"github.com/article-publishing-api/internal/converter"
	"github.com/article-publishing-api/internal/models"
	"github.com/article-publishing-api/internal/service"
)

// Verify interface compliance
var (
	_ service.PublishService = (*MockPublishService)(nil)
	_ service.ArticleService = (*MockArticleService)(nil)
	_ converter.Converter    = (*MockConverter)(nil)
)

// MockPublishService is a mock implementation of PublishService
type MockPublishService struct {
	PreviewFunc func(ctx context.Context, upload *models.Upload) (*models.PreviewResult, error)
	ConfirmFunc func(ctx context.Context, req *models.ConfirmRequest, image *models.Upload) (int64, error)
	CancelFunc  func(ctx context.Context, req *models.CancelRequest) error
	DeleteFunc  func(ctx context.Context, id int64) error

	ConfirmRequests []*models.ConfirmRequest
	Deleted         []int64
}

func NewMockPublishService() *MockPublishService {
	return &MockPublishService{}
}

func (m *MockPublishService) Preview(ctx context.Context, upload *models.Upload) (*models.PreviewResult, error) {
	if m.PreviewFunc != nil {
		return m.PreviewFunc(ctx, upload)
	}
	return &models.PreviewResult{TempPath: "temp-1-abc.docx", HTMLContent: "<p>preview</p>", FileName: upload.FileName}, nil
}

func (m *MockPublishService) Confirm(ctx context.Context, req *models.ConfirmRequest, image *models.Upload) (int64, error) {
	m.ConfirmRequests = append(m.ConfirmRequests, req)
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, req, image)
	}
	return 1, nil
}

func (m *MockPublishService) Cancel(ctx context.Context, req *models.CancelRequest) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, req)
	}
	return nil
}

func (m *MockPublishService) DeleteArticle(ctx context.Context, id int64) error {
	m.Deleted = append(m.Deleted, id)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockArticleService is a mock implementation of ArticleService backed
// by fixed results
type MockArticleService struct {
	Articles     []*models.Article
	CategoryList []string
	Err          error

	LastFilter *models.ArticleFilter
	ListFunc   func(ctx context.Context, filter *models.ArticleFilter) ([]*models.Article, error)
	ViewFunc   func(ctx context.Context, id int64) (*models.Article, error)
	ToggleFunc func(ctx context.Context, id int64) (bool, error)
}

func NewMockArticleService() *MockArticleService {
	return &MockArticleService{}
}

func (m *MockArticleService) List(ctx context.Context, filter *models.ArticleFilter) ([]*models.Article, error) {
	m.LastFilter = filter
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return m.Articles, m.Err
}

func (m *MockArticleService) Featured(ctx context.Context, limit int) ([]*models.Article, error) {
	featured := true
	return m.List(ctx, &models.ArticleFilter{Featured: &featured, Limit: limit})
}

func (m *MockArticleService) View(ctx context.Context, id int64) (*models.Article, error) {
	if m.ViewFunc != nil {
		return m.ViewFunc(ctx, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	for _, a := range m.Articles {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (m *MockArticleService) Related(ctx context.Context, id int64) ([]*models.Article, error) {
	return m.Articles, m.Err
}

func (m *MockArticleService) Categories(ctx context.Context) ([]string, error) {
	return m.CategoryList, m.Err
}

func (m *MockArticleService) Like(ctx context.Context, id int64) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return 1, nil
}

func (m *MockArticleService) AdminList(ctx context.Context) ([]*models.Article, error) {
	return m.Articles, m.Err
}

func (m *MockArticleService) AdminGet(ctx context.Context, id int64) (*models.AdminArticle, error) {
	a, err := m.View(ctx, id)
	if err != nil || a == nil {
		return nil, err
	}
	return &models.AdminArticle{Article: a}, nil
}

func (m *MockArticleService) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	if m.ToggleFunc != nil {
		return m.ToggleFunc(ctx, id)
	}
	return true, m.Err
}

func (m *MockArticleService) ToggleHidden(ctx context.Context, id int64) (bool, error) {
	if m.ToggleFunc != nil {
		return m.ToggleFunc(ctx, id)
	}
	return true, m.Err
}

func (m *MockArticleService) Count(ctx context.Context) (int, error) {
	return len(m.Articles), m.Err
}

// MockConverter is a mock implementation of converter.Converter.
// Without ConvertFunc it delegates to Next, or returns HTML.
type MockConverter struct {
	mu          sync.Mutex
	Next        converter.Converter
	HTML        string
	ConvertFunc func(ctx context.Context, path string) (string, error)
	Paths       []string
}

func (m *MockConverter) Convert(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	m.Paths = append(m.Paths, path)
	m.mu.Unlock()

	if m.ConvertFunc != nil {
		return m.ConvertFunc(ctx, path)
	}
	if m.Next != nil {
		return m.Next.Convert(ctx, path)
	}
	return m.HTML, nil
}

// Calls returns how many conversions were requested
func (m *MockConverter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Paths)
}
