package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName_VietnameseDiacritics(t *testing.T) {
	got := SanitizeName("Báo Cáo Đặc Biệt")
	assert.Equal(t, "Bao_Cao_Dac_Biet", got)
}

func TestSanitizeName_OnlyAlphanumericsAndUnderscores(t *testing.T) {
	names := []string{
		"Báo cáo tháng 7/2024",
		"Doanh thu (quý 1) — đầy đủ!",
		"  nhiều   khoảng   trắng  ",
	}

	safe := regexp.MustCompile(`^[A-Za-z0-9_]*$`)
	for _, name := range names {
		got := SanitizeName(name)
		assert.True(t, safe.MatchString(got), "%q -> %q", name, got)
		assert.False(t, strings.HasSuffix(got, "_"), "%q -> %q", name, got)
	}
}

func TestSanitizeName_MapsDToD(t *testing.T) {
	assert.Equal(t, "dong_Dong", SanitizeName("đồng Đồng"))
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(filepath.Join(dir, "reports"), "/reports/")

	fileName, fileURL, err := store.SaveReport("Báo Cáo Đặc Biệt", []byte("%PDF-fake"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fileName, "Report_Bao_Cao_Dac_Biet_"))
	assert.True(t, strings.HasSuffix(fileName, ".pdf"))
	assert.Equal(t, "/reports/"+fileName, fileURL)

	content, err := os.ReadFile(store.FilePath(fileName))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-fake"), content)
}

func TestSaveReport_CreatesOutputDir(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "public", "reports")
	store := NewLocalStore(nested, "/reports")

	_, _, err := store.SaveReport("test", []byte("x"))
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
