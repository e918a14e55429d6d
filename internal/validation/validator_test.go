package validation

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/article-publishing-api/internal/models"
)

const docxMediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func TestValidateUpload_Document(t *testing.T) {
	rule := DocumentRule(10 * 1024 * 1024)

	tests := []struct {
		name      string
		fileName  string
		mediaType string
		size      int64
		wantErr   bool
		wantMsg   string
	}{
		{
			name:      "valid docx",
			fileName:  "Informe Anual.docx",
			mediaType: docxMediaType,
			size:      2048,
		},
		{
			name:      "msword media type with docx extension",
			fileName:  "informe.docx",
			mediaType: "application/msword",
			size:      2048,
		},
		{
			name:      "upper-case extension",
			fileName:  "INFORME.DOCX",
			mediaType: docxMediaType,
			size:      2048,
		},
		{
			name:      "media type with parameters",
			fileName:  "informe.docx",
			mediaType: docxMediaType + "; charset=binary",
			size:      2048,
		},
		{
			name:      "legacy doc extension rejected",
			fileName:  "informe.doc",
			mediaType: "application/msword",
			size:      2048,
			wantErr:   true,
			wantMsg:   "only .docx",
		},
		{
			name:      "pdf rejected",
			fileName:  "informe.pdf",
			mediaType: "application/pdf",
			size:      2048,
			wantErr:   true,
			wantMsg:   "only .docx",
		},
		{
			name:      "right extension wrong media type",
			fileName:  "informe.docx",
			mediaType: "text/plain",
			size:      2048,
			wantErr:   true,
			wantMsg:   "only .docx",
		},
		{
			name:      "exceeds ceiling",
			fileName:  "informe.docx",
			mediaType: docxMediaType,
			size:      10*1024*1024 + 1,
			wantErr:   true,
			wantMsg:   "max size is 10 MB",
		},
		{
			name:      "exactly at ceiling",
			fileName:  "informe.docx",
			mediaType: docxMediaType,
			size:      10 * 1024 * 1024,
		},
		{
			name:      "empty file",
			fileName:  "informe.docx",
			mediaType: docxMediaType,
			size:      0,
			wantErr:   true,
			wantMsg:   "empty",
		},
		{
			name:      "missing name",
			fileName:  "",
			mediaType: docxMediaType,
			size:      10,
			wantErr:   true,
			wantMsg:   "file name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(rule, tt.fileName, tt.mediaType, tt.size)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected validation error, got nil")
				}
				if err.Field != "article" {
					t.Errorf("Expected field 'article', got '%s'", err.Field)
				}
				if !strings.Contains(err.Message, tt.wantMsg) {
					t.Errorf("Expected message containing %q, got %q", tt.wantMsg, err.Message)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestValidateUpload_Image(t *testing.T) {
	rule := ImageRule(5 * 1024 * 1024)

	tests := []struct {
		name      string
		fileName  string
		mediaType string
		size      int64
		wantErr   bool
	}{
		{"png", "portada.png", "image/png", 100, false},
		{"jpeg", "portada.jpeg", "image/jpeg", 100, false},
		{"jpg", "portada.jpg", "image/jpeg", 100, false},
		{"gif", "portada.gif", "image/gif", 100, false},
		{"webp rejected", "portada.webp", "image/webp", 100, true},
		{"svg rejected", "portada.svg", "image/svg+xml", 100, true},
		{"too large", "portada.png", "image/png", 5*1024*1024 + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(rule, tt.fileName, tt.mediaType, tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateContent(t *testing.T) {
	var zipped bytes.Buffer
	zw := zip.NewWriter(&zipped)
	w, _ := zw.Create("word/document.xml")
	w.Write([]byte("<w:document/>"))
	zw.Close()

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

	if err := ValidateContent(DocumentRule(1024), zipped.Bytes()); err != nil {
		t.Errorf("zip container should pass document sniffing: %v", err)
	}
	if err := ValidateContent(DocumentRule(1024), []byte("plain text pretending to be docx")); err == nil {
		t.Error("plain text should fail document sniffing")
	}
	if err := ValidateContent(ImageRule(1024), png); err != nil {
		t.Errorf("png header should pass image sniffing: %v", err)
	}
	if err := ValidateContent(ImageRule(1024), zipped.Bytes()); err == nil {
		t.Error("zip payload should fail image sniffing")
	}
}

func TestValidateConfirm(t *testing.T) {
	tests := []struct {
		name            string
		req             models.ConfirmRequest
		wantErrors      int
		wantFields      []string
		wantReadingTime int
	}{
		{
			name: "minimal request",
			req:  models.ConfirmRequest{TempPath: "temp/temp-1-abc.docx"},
		},
		{
			name:            "explicit reading time",
			req:             models.ConfirmRequest{TempPath: "temp/temp-1-abc.docx", ReadingTime: "7"},
			wantReadingTime: 7,
		},
		{
			name: "zero reading time means derive",
			req:  models.ConfirmRequest{TempPath: "temp/temp-1-abc.docx", ReadingTime: "0"},
		},
		{
			name: "negative reading time means derive",
			req:  models.ConfirmRequest{TempPath: "temp/temp-1-abc.docx", ReadingTime: "-3"},
		},
		{
			name:       "non-integer reading time",
			req:        models.ConfirmRequest{TempPath: "temp/temp-1-abc.docx", ReadingTime: "2.5"},
			wantErrors: 1,
			wantFields: []string{"reading_time"},
		},
		{
			name:       "missing temp path",
			req:        models.ConfirmRequest{Title: "Hola"},
			wantErrors: 1,
			wantFields: []string{"tempPath"},
		},
		{
			name: "title and category too long",
			req: models.ConfirmRequest{
				TempPath: "temp/temp-1-abc.docx",
				Title:    strings.Repeat("t", 256),
				Category: strings.Repeat("c", 101),
			},
			wantErrors: 2,
			wantFields: []string{"title", "category"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readingTime, errors := ValidateConfirm(&tt.req)
			if len(errors) != tt.wantErrors {
				t.Errorf("Expected %d errors, got %d: %+v", tt.wantErrors, len(errors), errors)
			}
			for i, field := range tt.wantFields {
				if i < len(errors) && errors[i].Field != field {
					t.Errorf("Expected error on field %s, got %s", field, errors[i].Field)
				}
			}
			if readingTime != tt.wantReadingTime {
				t.Errorf("Expected reading time %d, got %d", tt.wantReadingTime, readingTime)
			}
		})
	}
}

func TestValidateFilter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := models.ArticleFilter{}
		if err := ValidateFilter(&f); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.OrderBy != "created_at" || f.Order != "DESC" || f.Limit != 10 {
			t.Errorf("unexpected defaults: %+v", f)
		}
	})

	t.Run("limit capped", func(t *testing.T) {
		f := models.ArticleFilter{Limit: 5000}
		ValidateFilter(&f)
		if f.Limit != 100 {
			t.Errorf("Expected limit capped at 100, got %d", f.Limit)
		}
	})

	t.Run("lower-case order accepted", func(t *testing.T) {
		f := models.ArticleFilter{Order: "asc", OrderBy: "vistas"}
		if err := ValidateFilter(&f); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Order != "ASC" {
			t.Errorf("Expected ASC, got %s", f.Order)
		}
	})

	t.Run("unknown column rejected", func(t *testing.T) {
		f := models.ArticleFilter{OrderBy: "title; DROP TABLE articles"}
		err := ValidateFilter(&f)
		if err == nil || err.Field != "orderBy" {
			t.Errorf("Expected orderBy error, got %v", err)
		}
	})

	t.Run("bad direction rejected", func(t *testing.T) {
		f := models.ArticleFilter{Order: "sideways"}
		err := ValidateFilter(&f)
		if err == nil || err.Field != "order" {
			t.Errorf("Expected order error, got %v", err)
		}
	})
}

func TestParseLimit(t *testing.T) {
	if n, err := ParseLimit(""); err != nil || n != 0 {
		t.Errorf("empty limit should be 0, got %d %v", n, err)
	}
	if n, err := ParseLimit("25"); err != nil || n != 25 {
		t.Errorf("Expected 25, got %d %v", n, err)
	}
	if _, err := ParseLimit("ten"); err == nil {
		t.Error("Expected error for non-numeric limit")
	}
}
