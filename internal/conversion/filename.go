package conversion

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const outputSuffix = "_konvertert.xlsx"

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeStem cleans up a filename stem by removing special characters and truncating length
func sanitizeStem(stem string) string {
	stem = unsafeFilenameChars.ReplaceAllString(stem, "")
	stem = repeatedSpaces.ReplaceAllString(stem, " ")
	stem = strings.TrimSpace(stem)

	const maxLen = 50
	if runes := []rune(stem); len(runes) > maxLen {
		stem = strings.TrimSpace(string(runes[:maxLen]))
	}

	if stem == "" {
		stem = "faktura"
	}
	return stem
}

// OutputFilename returns the workbook name for an uploaded PDF, e.g. "mars.pdf" -> "mars_konvertert.xlsx"
func OutputFilename(source string) string {
	base := filepath.Base(strings.ReplaceAll(source, `\`, "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return sanitizeStem(stem) + outputSuffix
}

// WriteFile writes data to dir/name. When the target exists and cannot be replaced,
// for example because a spreadsheet program holds it open, the first free name of the
// form stem_N.xlsx is used instead. It returns the path written.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, name)
	err := os.WriteFile(path, data, 0644)
	if err == nil {
		return path, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if _, statErr := os.Stat(candidate); !errors.Is(statErr, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(candidate, data, 0644); err != nil {
			return "", fmt.Errorf("writing %s: %w", candidate, err)
		}
		return candidate, nil
	}
}
