package ast

import (
	"path/filepath"
	"strings"
)

var defaultExtensions = map[string]string{
	".go":       "go",
	".py":       "python",
	".js":       "javascript",
	".ts":       "typescript",
	".java":     "java",
	".c":        "c",
	".cpp":      "cpp",
	".rs":       "rust",
	".md":       "markdown",
	".markdown": "markdown",
	".rst":      "restructuredtext",
	".adoc":     "asciidoc",
	".txt":      "plaintext",
	".yaml":     "yaml",
	".yml":      "yaml",
	".json":     "json",
	".toml":     "toml",
	".xml":      "xml",
	".ini":      "ini",
	".tf":       "terraform",
	".sql":      "sql",
	".proto":    "protobuf",
}

var defaultFilenames = map[string]string{
	"Dockerfile": "docker",
	"Cargo.lock": "toml",
}

// LanguageDetector maps filenames/extensions to languages.
type LanguageDetector struct {
	extensions map[string]string
	filenames  map[string]string
}

// NewLanguageDetector seeds defaults for popular formats.
func NewLanguageDetector() *LanguageDetector {
	ld := &LanguageDetector{
		extensions: make(map[string]string, len(defaultExtensions)),
		filenames:  make(map[string]string, len(defaultFilenames)),
	}
	for ext, lang := range defaultExtensions {
		ld.extensions[ext] = lang
	}
	for name, lang := range defaultFilenames {
		ld.filenames[name] = lang
	}
	return ld
}

// Register maps an extension (with its leading dot) to a language.
func (ld *LanguageDetector) Register(ext, language string) {
	ld.extensions[strings.ToLower(ext)] = language
}

// Detect returns the best-effort language identifier. Untitled buffers and
// unrecognised names are plain text.
func (ld *LanguageDetector) Detect(path string) string {
	if path == "" {
		return "plaintext"
	}
	base := filepath.Base(path)
	if lang, ok := ld.filenames[base]; ok {
		return lang
	}
	if lang, ok := ld.extensions[strings.ToLower(filepath.Ext(base))]; ok {
		return lang
	}
	return "plaintext"
}

// DetectCategory maps a language to its category.
func (ld *LanguageDetector) DetectCategory(language string) Category {
	switch language {
	case "go", "python", "javascript", "typescript", "java", "c", "cpp", "rust":
		return CategoryCode
	case "yaml", "json", "toml", "xml", "ini":
		return CategoryConfig
	case "sql", "protobuf":
		return CategorySchema
	case "terraform", "docker":
		return CategoryInfra
	default:
		return CategoryDoc
	}
}
