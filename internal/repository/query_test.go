package repository

import (
	"strings"
	"testing"

	"github.com/article-publishing-api/internal/models"
)

func TestBuildListQuery(t *testing.T) {
	featured := true

	tests := []struct {
		name     string
		filter   models.ArticleFilter
		contains []string
		absent   []string
		args     int
	}{
		{
			name:     "defaults",
			filter:   models.ArticleFilter{OrderBy: "created_at", Order: "DESC", Limit: 10},
			contains: []string{"FROM articles", "status = $1", "oculto = $2", "ORDER BY created_at DESC, id DESC", "LIMIT 10"},
			absent:   []string{"html_content", "category =", "destacado ="},
			args:     2,
		},
		{
			name:     "category and featured",
			filter:   models.ArticleFilter{Category: "Tecnología", Featured: &featured, OrderBy: "vistas", Order: "ASC", Limit: 5},
			contains: []string{"category = $3", "destacado = $4", "ORDER BY vistas ASC", "LIMIT 5"},
			args:     4,
		},
		{
			name:     "admin sees hidden",
			filter:   models.ArticleFilter{IncludeHidden: true, OrderBy: "likes", Order: "DESC"},
			contains: []string{"status = $1", "ORDER BY likes DESC"},
			absent:   []string{"oculto =", "LIMIT"},
			args:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildListQuery(tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, c := range tt.contains {
				if !strings.Contains(query, c) {
					t.Errorf("query %q does not contain %q", query, c)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(query, a) {
					t.Errorf("query %q should not contain %q", query, a)
				}
			}
			if len(args) != tt.args {
				t.Errorf("Expected %d args, got %d (%v)", tt.args, len(args), args)
			}
		})
	}
}

func TestBuildListQuery_RejectsUnsafeOrdering(t *testing.T) {
	if _, _, err := buildListQuery(models.ArticleFilter{OrderBy: "id; DROP TABLE articles", Order: "DESC"}); err == nil {
		t.Error("Expected error for unknown order column")
	}
	if _, _, err := buildListQuery(models.ArticleFilter{OrderBy: "vistas", Order: "sideways"}); err == nil {
		t.Error("Expected error for unknown order direction")
	}
}

func TestBuildRelatedQuery(t *testing.T) {
	query, args, err := buildRelatedQuery(7, "Ciencia", models.RelatedLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, c := range []string{"id <> $3", "ORDER BY (category = $4) DESC, destacado DESC, created_at DESC", "LIMIT 4"} {
		if !strings.Contains(query, c) {
			t.Errorf("query %q does not contain %q", query, c)
		}
	}
	if len(args) != 4 {
		t.Fatalf("Expected 4 args, got %d", len(args))
	}
	if args[2] != int64(7) || args[3] != "Ciencia" {
		t.Errorf("unexpected args %v", args)
	}
}
