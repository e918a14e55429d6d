package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/article-publishing-api/internal/models"
	"github.com/article-publishing-api/internal/repository"
)

var _ repository.ArticleRepository = (*MockArticleRepository)(nil)

// MockArticleRepository is an in-memory implementation of ArticleRepository
type MockArticleRepository struct {
	mu       sync.Mutex
	nextID   int64
	Articles map[int64]*models.Article

	CreateError  error
	PublishError error
	DeleteError  error
	ListError    error

	// Now stamps CreatedAt on insert, defaults to time.Now
	Now func() time.Time

	CreateCalls  int
	PublishCalls int
}

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{
		Articles: make(map[int64]*models.Article),
		Now:      time.Now,
	}
}

func clone(a *models.Article) *models.Article {
	c := *a
	if a.Image != nil {
		img := *a.Image
		c.Image = &img
	}
	return &c
}

// Put stores an article as-is, assigning an ID when missing
func (m *MockArticleRepository) Put(article *models.Article) *models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	if article.ID == 0 {
		m.nextID++
		article.ID = m.nextID
	} else if article.ID > m.nextID {
		m.nextID = article.ID
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = m.Now()
	}
	m.Articles[article.ID] = clone(article)
	return article
}

// Len returns the number of stored rows in any state
func (m *MockArticleRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Articles)
}

func (m *MockArticleRepository) CreatePending(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return m.CreateError
	}
	m.nextID++
	article.ID = m.nextID
	article.Status = models.ArticleStatusPending
	if article.ReadingTime < 1 {
		article.ReadingTime = 1
	}
	article.CreatedAt = m.Now()
	article.UpdatedAt = article.CreatedAt
	m.Articles[article.ID] = clone(article)
	return nil
}

func (m *MockArticleRepository) Publish(ctx context.Context, id int64, htmlContent, description string, readingTime int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishCalls++
	if m.PublishError != nil {
		return m.PublishError
	}
	a, ok := m.Articles[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.HTMLContent = htmlContent
	a.Description = description
	a.ReadingTime = readingTime
	a.Status = models.ArticleStatusPublished
	a.UpdatedAt = m.Now()
	return nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Articles[id]
	if !ok {
		return nil, nil
	}
	return clone(a), nil
}

func visible(a *models.Article, includeHidden bool) bool {
	return a.Status == models.ArticleStatusPublished && (includeHidden || !a.Hidden)
}

func orderValue(a *models.Article, column string) int64 {
	switch column {
	case "vistas":
		return int64(a.Views)
	case "likes":
		return int64(a.Likes)
	case "reading_time":
		return int64(a.ReadingTime)
	default:
		return a.CreatedAt.UnixNano()
	}
}

func (m *MockArticleRepository) List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}

	result := make([]*models.Article, 0)
	for _, a := range m.Articles {
		if !visible(a, filter.IncludeHidden) {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		if filter.Featured != nil && a.Featured != *filter.Featured {
			continue
		}
		result = append(result, clone(a))
	}

	sort.Slice(result, func(i, j int) bool {
		vi, vj := orderValue(result[i], filter.OrderBy), orderValue(result[j], filter.OrderBy)
		if vi == vj {
			vi, vj = result[i].ID, result[j].ID
		}
		if filter.Order == "ASC" {
			return vi < vj
		}
		return vi > vj
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockArticleRepository) Related(ctx context.Context, id int64, category string, limit int) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*models.Article, 0)
	for _, a := range m.Articles {
		if a.ID != id && visible(a, false) {
			result = append(result, clone(a))
		}
	}

	rank := func(a *models.Article) int {
		r := 0
		if a.Category == category {
			r += 2
		}
		if a.Featured {
			r++
		}
		return r
	}
	sort.Slice(result, func(i, j int) bool {
		ri, rj := rank(result[i]), rank(result[j])
		if ri != rj {
			return ri > rj
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockArticleRepository) Categories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, a := range m.Articles {
		if visible(a, false) && !seen[a.Category] {
			seen[a.Category] = true
			categories = append(categories, a.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (m *MockArticleRepository) published(id int64) (*models.Article, error) {
	a, ok := m.Articles[id]
	if !ok || a.Status != models.ArticleStatusPublished {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (m *MockArticleRepository) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.published(id)
	if err != nil {
		return false, err
	}
	a.Featured = !a.Featured
	return a.Featured, nil
}

func (m *MockArticleRepository) ToggleHidden(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.published(id)
	if err != nil {
		return false, err
	}
	a.Hidden = !a.Hidden
	return a.Hidden, nil
}

func (m *MockArticleRepository) IncrementViews(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.published(id)
	if err != nil {
		return err
	}
	a.Views++
	return nil
}

func (m *MockArticleRepository) IncrementLikes(ctx context.Context, id int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.published(id)
	if err != nil || a.Hidden {
		return 0, repository.ErrNotFound
	}
	a.Likes++
	return a.Likes, nil
}

func (m *MockArticleRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, ok := m.Articles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.Articles, id)
	return nil
}

func (m *MockArticleRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.Article
	for _, a := range m.Articles {
		if a.Status == models.ArticleStatusPending && a.CreatedAt.Before(cutoff) {
			result = append(result, clone(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *MockArticleRepository) FilePathInUse(ctx context.Context, path string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.Articles {
		if id != excludeID && a.FilePath == path {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockArticleRepository) ImageInUse(ctx context.Context, url string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.Articles {
		if id != excludeID && a.Image != nil && *a.Image == url {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockArticleRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.Articles {
		if a.Status == models.ArticleStatusPublished {
			n++
		}
	}
	return n, nil
}
