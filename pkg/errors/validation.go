package errors

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSourceBytes is the default limit for DSL sources accepted by the API.
const MaxSourceBytes = 1 << 20

// ValidateSource checks that src is usable DSL input: non-empty, valid
// UTF-8, free of NUL bytes and no larger than maxBytes (when positive).
// Syntax is not checked here; that is the parser's job.
func ValidateSource(src string, maxBytes int) error {
	if strings.TrimSpace(src) == "" {
		return New(ErrCodeInvalidInput, "source cannot be empty")
	}
	if maxBytes > 0 && len(src) > maxBytes {
		return New(ErrCodeInvalidInput, "source too large (%d bytes, max %d)", len(src), maxBytes)
	}
	if !utf8.ValidString(src) {
		return New(ErrCodeInvalidInput, "source is not valid UTF-8")
	}
	if strings.ContainsRune(src, '\x00') {
		return New(ErrCodeInvalidInput, "source contains null bytes")
	}
	return nil
}

// networkNameRegex matches the identifiers accepted as network names.
var networkNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateNetworkName validates a network selector. An empty name is
// valid and selects the first network of a document.
func ValidateNetworkName(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "network name too long (max 128 characters)")
	}
	if !networkNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid network name: %q", name)
	}
	return nil
}

// ValidateFilename validates a client-supplied source filename. It must be
// a simple basename: it is only used for labels and derived output names.
func ValidateFilename(filename string) error {
	if filename == "" {
		return nil
	}
	if len(filename) > 255 {
		return New(ErrCodeInvalidPath, "filename too long (max 255 characters)")
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "filename contains invalid control characters")
		}
	}
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidPath, "filename cannot contain path separators")
	}
	if filename == "." || filename == ".." || strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidPath, "filename cannot be a hidden file")
	}
	return nil
}

// ValidatePath validates a relative output path such as a render target
// inside an output directory.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}
	return nil
}
