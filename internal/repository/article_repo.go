package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/article-publishing-api/internal/database"
	"github.com/article-publishing-api/internal/models"
	"github.com/lib/pq"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// summaryColumns excludes the article body; listings never need it
var summaryColumns = []string{
	"id", "title", "file_path", "description", "category", "image", "reading_time",
	"status", "destacado", "oculto", "vistas", "likes", "created_at", "updated_at",
}

const fullColumns = `id, title, file_path, html_content, description, category, image, reading_time,
	status, destacado, oculto, vistas, likes, created_at, updated_at`

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner, withBody bool) (*models.Article, error) {
	var article models.Article
	var image sql.NullString

	dest := []interface{}{&article.ID, &article.Title, &article.FilePath}
	if withBody {
		dest = append(dest, &article.HTMLContent)
	}
	dest = append(dest,
		&article.Description, &article.Category, &image, &article.ReadingTime,
		&article.Status, &article.Featured, &article.Hidden, &article.Views, &article.Likes,
		&article.CreatedAt, &article.UpdatedAt,
	)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if image.Valid {
		article.Image = &image.String
	}
	return &article, nil
}

func scanSummaries(rows *sql.Rows) ([]*models.Article, error) {
	defer rows.Close()

	articles := make([]*models.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows, false)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// classify maps driver errors onto repository sentinels
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return fmt.Errorf("%w: %s", ErrConstraint, pqErr.Message)
	}
	return err
}

// CreatePending inserts a write-ahead row
func (r *articleRepo) CreatePending(ctx context.Context, article *models.Article) error {
	query := `
		INSERT INTO articles (title, file_path, html_content, description, category, image, reading_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	if article.ReadingTime < 1 {
		article.ReadingTime = 1
	}
	article.Status = models.ArticleStatusPending

	err := r.db.QueryRowContext(ctx, query,
		article.Title, article.FilePath, article.HTMLContent, article.Description,
		article.Category, article.Image, article.ReadingTime, article.Status,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
	return classify(err)
}

// Publish finalizes a pending row
func (r *articleRepo) Publish(ctx context.Context, id int64, htmlContent, description string, readingTime int) error {
	query := `
		UPDATE articles
		SET html_content = $2, description = $3, reading_time = $4, status = $5, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, htmlContent, description, readingTime, models.ArticleStatusPublished)
	if err != nil {
		return classify(err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	query := `SELECT ` + fullColumns + ` FROM articles WHERE id = $1`

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, id), true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}

// buildListQuery renders a listing filter. OrderBy and Order must already
// be validated; they are checked again because they are spliced into SQL.
func buildListQuery(f models.ArticleFilter) (string, []interface{}, error) {
	if !models.ValidOrderColumns[f.OrderBy] {
		return "", nil, fmt.Errorf("invalid order column %q", f.OrderBy)
	}
	if f.Order != "ASC" && f.Order != "DESC" {
		return "", nil, fmt.Errorf("invalid order direction %q", f.Order)
	}

	q := psql.Select(summaryColumns...).
		From("articles").
		Where(sq.Eq{"status": models.ArticleStatusPublished})

	if !f.IncludeHidden {
		q = q.Where(sq.Eq{"oculto": false})
	}
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Featured != nil {
		q = q.Where(sq.Eq{"destacado": *f.Featured})
	}

	q = q.OrderBy(f.OrderBy+" "+f.Order, "id "+f.Order)
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return q.ToSql()
}

// List returns published articles matching the filter
func (r *articleRepo) List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error) {
	query, args, err := buildListQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

func buildRelatedQuery(id int64, category string, limit int) (string, []interface{}, error) {
	return psql.Select(summaryColumns...).
		From("articles").
		Where(sq.Eq{"status": models.ArticleStatusPublished, "oculto": false}).
		Where(sq.NotEq{"id": id}).
		OrderByClause("(category = ?) DESC", category).
		OrderBy("destacado DESC", "created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
}

// Related returns visible articles other than id, same category first
func (r *articleRepo) Related(ctx context.Context, id int64, category string, limit int) ([]*models.Article, error) {
	query, args, err := buildRelatedQuery(id, category, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// Categories returns the distinct categories of visible articles
func (r *articleRepo) Categories(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT category FROM articles
		WHERE status = $1 AND oculto = FALSE
		ORDER BY category
	`
	rows, err := r.db.QueryContext(ctx, query, models.ArticleStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *articleRepo) toggle(ctx context.Context, column string, id int64) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE articles SET %[1]s = NOT %[1]s, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %[1]s
	`, column)

	var value bool
	err := r.db.QueryRowContext(ctx, query, id, models.ArticleStatusPublished).Scan(&value)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	return value, err
}

// ToggleFeatured flips destacado
func (r *articleRepo) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	return r.toggle(ctx, "destacado", id)
}

// ToggleHidden flips oculto
func (r *articleRepo) ToggleHidden(ctx context.Context, id int64) (bool, error) {
	return r.toggle(ctx, "oculto", id)
}

// IncrementViews bumps vistas of a published article
func (r *articleRepo) IncrementViews(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE articles SET vistas = vistas + 1 WHERE id = $1 AND status = $2",
		id, models.ArticleStatusPublished)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// IncrementLikes bumps likes of a visible article
func (r *articleRepo) IncrementLikes(ctx context.Context, id int64) (int, error) {
	var likes int
	err := r.db.QueryRowContext(ctx,
		"UPDATE articles SET likes = likes + 1 WHERE id = $1 AND status = $2 AND oculto = FALSE RETURNING likes",
		id, models.ArticleStatusPublished).Scan(&likes)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return likes, err
}

// Delete removes a row in any state
func (r *articleRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM articles WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// ListStalePending returns pending rows older than cutoff, oldest first
func (r *articleRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]*models.Article, error) {
	query := `SELECT ` + fullColumns + ` FROM articles WHERE status = $1 AND created_at < $2 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, models.ArticleStatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		article, err := scanArticle(rows, true)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// FilePathInUse checks whether a row other than excludeID owns path
func (r *articleRepo) FilePathInUse(ctx context.Context, path string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM articles WHERE file_path = $1 AND id <> $2)",
		path, excludeID).Scan(&exists)
	return exists, err
}

// ImageInUse checks whether a row other than excludeID owns the image URL
func (r *articleRepo) ImageInUse(ctx context.Context, url string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM articles WHERE image = $1 AND id <> $2)",
		url, excludeID).Scan(&exists)
	return exists, err
}

// Count returns the total number of published articles
func (r *articleRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM articles WHERE status = $1", models.ArticleStatusPublished).Scan(&count)
	return count, err
}
