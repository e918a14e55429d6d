package validation

import (
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/article-publishing-api/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is how many leading bytes of a payload are inspected for its real type
const SniffLen = 3072

const (
	maxTitleLength    = 255
	maxCategoryLength = 100
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UploadRule is the allow-list applied to one kind of upload
type UploadRule struct {
	Field      string
	Extensions map[string]bool
	MediaTypes map[string]bool
	// SniffedTypes lists acceptable detected types; a detected type is
	// accepted when it or any of its parents is listed.
	SniffedTypes []string
	MaxSize      int64
	Message      string
}

// DocumentRule accepts Word 2007+ documents
func DocumentRule(maxSize int64) UploadRule {
	return UploadRule{
		Field:      "article",
		Extensions: map[string]bool{".docx": true},
		MediaTypes: map[string]bool{
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
			"application/msword": true,
		},
		SniffedTypes: []string{"application/zip"},
		MaxSize:      maxSize,
		Message:      "only .docx files (Word 2007 or later) are allowed",
	}
}

// ImageRule accepts the illustration formats
func ImageRule(maxSize int64) UploadRule {
	return UploadRule{
		Field: "image",
		Extensions: map[string]bool{
			".jpg":  true,
			".jpeg": true,
			".png":  true,
			".gif":  true,
		},
		MediaTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
		},
		SniffedTypes: []string{"image/jpeg", "image/png", "image/gif"},
		MaxSize:      maxSize,
		Message:      "only images (JPEG, JPG, PNG, GIF) are allowed",
	}
}

// ValidateUpload checks the declared metadata of an upload against a rule.
// It never looks at the payload.
func ValidateUpload(rule UploadRule, fileName, mediaType string, size int64) *ValidationError {
	if strings.TrimSpace(fileName) == "" {
		return &ValidationError{Field: rule.Field, Message: "file name is required"}
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !rule.Extensions[ext] {
		return &ValidationError{Field: rule.Field, Message: rule.Message, Value: ext}
	}

	declared, _, err := mime.ParseMediaType(mediaType)
	if err != nil || !rule.MediaTypes[strings.ToLower(declared)] {
		return &ValidationError{Field: rule.Field, Message: rule.Message, Value: mediaType}
	}

	if size <= 0 {
		return &ValidationError{Field: rule.Field, Message: "file is empty"}
	}
	if size > rule.MaxSize {
		return &ValidationError{
			Field:   rule.Field,
			Message: fmt.Sprintf("file too large, max size is %s", humanSize(rule.MaxSize)),
			Value:   size,
		}
	}

	return nil
}

// ValidateContent checks the leading bytes of a payload against a rule
func ValidateContent(rule UploadRule, head []byte) *ValidationError {
	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		for _, allowed := range rule.SniffedTypes {
			if m.Is(allowed) {
				return nil
			}
		}
	}
	return &ValidationError{Field: rule.Field, Message: "file content does not match its type", Value: detected.String()}
}

// ValidateConfirm checks a confirm request and returns the reading-time
// override, 0 when the caller did not supply a positive one
func ValidateConfirm(req *models.ConfirmRequest) (int, []ValidationError) {
	var errors []ValidationError

	if strings.TrimSpace(req.TempPath) == "" {
		errors = append(errors, ValidationError{Field: "tempPath", Message: "missing required field"})
	}
	if utf8.RuneCountInString(req.Title) > maxTitleLength {
		errors = append(errors, ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxTitleLength),
		})
	}
	if utf8.RuneCountInString(req.Category) > maxCategoryLength {
		errors = append(errors, ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("category must be at most %d characters", maxCategoryLength),
		})
	}

	readingTime, err := ParseReadingTime(req.ReadingTime)
	if err != nil {
		errors = append(errors, *err)
	}

	return readingTime, errors
}

// ParseReadingTime returns the explicit positive override, or 0
func ParseReadingTime(raw json.Number) (int, *ValidationError) {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ValidationError{Field: "reading_time", Message: "reading_time must be an integer", Value: s}
	}
	if n < 1 {
		return 0, nil
	}
	return n, nil
}

// ValidateFilter checks listing parameters and fills defaults
func ValidateFilter(f *models.ArticleFilter) *ValidationError {
	if f.OrderBy == "" {
		f.OrderBy = models.DefaultOrderBy
	}
	if !models.ValidOrderColumns[f.OrderBy] {
		return &ValidationError{Field: "orderBy", Message: "Invalid orderBy parameter", Value: f.OrderBy}
	}

	if f.Order == "" {
		f.Order = models.DefaultOrder
	}
	f.Order = strings.ToUpper(f.Order)
	if f.Order != "ASC" && f.Order != "DESC" {
		return &ValidationError{Field: "order", Message: "Invalid order parameter. Use ASC or DESC", Value: f.Order}
	}

	if f.Limit <= 0 {
		f.Limit = models.DefaultListLimit
	}
	if f.Limit > models.MaxListLimit {
		f.Limit = models.MaxListLimit
	}
	return nil
}

// ParseLimit converts a raw limit query value
func ParseLimit(raw string) (int, *ValidationError) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: "limit", Message: "Limit must be a number", Value: raw}
	}
	return n, nil
}

func humanSize(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%d MB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
