package constants

import "strings"

// SourceFormat is the adapter family a file is routed to.
type SourceFormat string

const (
	FormatPDF         SourceFormat = "PDF"
	FormatImage       SourceFormat = "IMAGE"
	FormatSpreadsheet SourceFormat = "SPREADSHEET"
	FormatText        SourceFormat = "TEXT"
)

// AllowedExtensions holds the default allowed file extensions for document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"xlsx": {},
	"csv":  {},
	"txt":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the adapter family for a normalized extension.
func MapExtToFormat(ext string) (SourceFormat, bool) {
	switch NormalizeExt(ext) {
	case "pdf":
		return FormatPDF, true
	case "jpg", "jpeg", "png", "tif", "tiff", "bmp":
		return FormatImage, true
	case "xlsx", "csv":
		return FormatSpreadsheet, true
	case "txt":
		return FormatText, true
	}
	return "", false
}
