package images

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ResolvePath derives the storage key for a lot's image. The result is a
// pure function of its inputs so reprocessing a lot always targets the same
// location: {normalized house name}/{lot ref}/{source filename}. Safe for
// concurrent use; the pipeline calls it from every batch goroutine.
func ResolvePath(houseName, lotRef, photoPath string) string {
	return fmt.Sprintf("%s/%s/%s", normalizeHouseName(houseName), lotRef, sourceFilename(photoPath))
}

// normalizeHouseName lowercases the auction house name, strips diacritics
// and replaces separators so the name is safe as a path segment.
func normalizeHouseName(name string) string {
	// The chain transformer carries internal scratch buffers and must not
	// be shared between goroutines, so it is built per call.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(folder, name); err == nil {
		name = folded
	}
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return name
}

// sourceFilename returns the final path segment of a photo reference,
// dropping any query string. Malformed references degrade to an empty
// segment rather than failing; this is positional path construction, not
// validation.
func sourceFilename(photoPath string) string {
	if i := strings.IndexAny(photoPath, "?#"); i >= 0 {
		photoPath = photoPath[:i]
	}
	photoPath = strings.TrimRight(photoPath, "/")
	if i := strings.LastIndex(photoPath, "/"); i >= 0 {
		photoPath = photoPath[i+1:]
	}
	return photoPath
}
