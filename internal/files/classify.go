package files

import (
	"path/filepath"
	"strings"

	"smartsender/internal/apperr"
)

const MaxFileSize int64 = 100 * 1024 * 1024

var categories = map[string]Category{
	"pdf": CategoryDocument, "doc": CategoryDocument, "docx": CategoryDocument,
	"xls": CategoryDocument, "xlsx": CategoryDocument,
	"ppt": CategoryDocument, "pptx": CategoryDocument,
	"jpg": CategoryImage, "jpeg": CategoryImage, "png": CategoryImage, "webp": CategoryImage,
	"mp4": CategoryVideo,
	"mp3": CategoryAudio,
	"zip": CategoryArchive,
}

// Extension returns the lower-case extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// CategoryOf classifies an extension; unknown extensions are documents.
func CategoryOf(ext string) Category {
	if c, ok := categories[strings.ToLower(ext)]; ok {
		return c
	}
	return CategoryDocument
}

func Allowed(ext string) bool {
	_, ok := categories[strings.ToLower(ext)]
	return ok
}

// Validate checks an upload's type and size.
func Validate(name string, size int64) error {
	if !Allowed(Extension(name)) {
		return apperr.Validation("File type not allowed")
	}
	if size < 0 {
		return apperr.Validation("File size must not be negative")
	}
	if size > MaxFileSize {
		return apperr.Validation("File size exceeds 100MB limit")
	}
	return nil
}
