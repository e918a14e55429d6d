package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Name prefixes. Promotion swaps the temp prefix for the final one so a
// temp artifact and its promoted copy share the same unique suffix.
const (
	DocumentTempPrefix  = "temp-"
	DocumentFinalPrefix = "article-"
	ImageTempPrefix     = "staged-image-"
	ImageFinalPrefix    = "image-"
)

// Namer generates artifact names of the form <prefix><unixMillis>-<uuid><ext>
type Namer struct {
	now func() time.Time
}

// NewNamer creates a namer using the wall clock
func NewNamer() *Namer {
	return &Namer{now: time.Now}
}

// Name returns a fresh name carrying the original file's extension
func (n *Namer) Name(prefix, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%d-%s%s", prefix, n.now().UnixMilli(), id, ext)
}

// Rename swaps fromPrefix for toPrefix on the base name of name
func Rename(name, fromPrefix, toPrefix string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, fromPrefix) {
		return "", false
	}
	return toPrefix + strings.TrimPrefix(base, fromPrefix), true
}
