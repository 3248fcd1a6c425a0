package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LocalStore writes generated PDFs into a public, web-servable directory.
// Files are named Report_<token>_<epoch-ms>.pdf; timestamp suffixes keep
// names unique under normal clock behavior.
type LocalStore struct {
	outputDir  string
	publicPath string
}

func NewLocalStore(outputDir, publicPath string) *LocalStore {
	return &LocalStore{
		outputDir:  outputDir,
		publicPath: strings.TrimRight(publicPath, "/"),
	}
}

// SaveReport persists one PDF buffer and returns the file name plus the
// relative URL it is served under.
func (s *LocalStore) SaveReport(templateName string, buffer []byte) (string, string, error) {
	fileName := fmt.Sprintf("Report_%s_%d.pdf", SanitizeName(templateName), time.Now().UnixMilli())

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.outputDir, fileName), buffer, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write report file: %w", err)
	}

	return fileName, s.publicPath + "/" + fileName, nil
}

// FilePath resolves the on-disk location of a stored report.
func (s *LocalStore) FilePath(fileName string) string {
	return filepath.Join(s.outputDir, fileName)
}

// SanitizeName reduces a template display name to a filesystem-safe token:
// ASCII alphanumerics and underscores only. Vietnamese đ/Đ map to d/D since
// NFD decomposition leaves them untouched.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "đ", "d")
	name = strings.ReplaceAll(name, "Đ", "D")

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, name); err == nil {
		name = stripped
	}

	var b strings.Builder
	lastUnderscore := true // suppress a leading separator
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}

	return strings.TrimRight(b.String(), "_")
}
