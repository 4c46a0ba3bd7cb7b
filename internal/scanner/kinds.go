package scanner

import (
	"path/filepath"
	"strings"

	"github.com/memvra/docbot/internal/extract"
)

// extCategories maps the file extensions docbot can ingest to the
// extraction path they take.
var extCategories = map[string]extract.Category{
	".txt":  extract.TextCategory,
	".md":   extract.TextCategory,
	".csv":  extract.TextCategory,
	".json": extract.TextCategory,
	".log":  extract.TextCategory,
	".pdf":  extract.PDFCategory,
	".png":  extract.ImageCategory,
	".jpg":  extract.ImageCategory,
	".jpeg": extract.ImageCategory,
	".gif":  extract.ImageCategory,
	".webp": extract.ImageCategory,
	".bmp":  extract.ImageCategory,
	".tif":  extract.ImageCategory,
	".tiff": extract.ImageCategory,
}

// CategoryForFile guesses the extraction category from the file extension.
// Content sniffing at ingest time has the final say.
func CategoryForFile(name string) extract.Category {
	c, ok := extCategories[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return extract.Unsupported
	}
	return c
}

// Ingestible reports whether name has an extension docbot can ingest.
func Ingestible(name string) bool {
	return CategoryForFile(name) != extract.Unsupported
}
