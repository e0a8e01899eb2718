// Package setup locates host dependencies needed by the extraction layer.
package setup

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// FindTesseract locates the tesseract OCR binary. PATH wins; otherwise the
// conventional install locations per platform are probed. An explicit
// configured path short-circuits the search.
func FindTesseract(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured tesseract path %q: %w", configured, err)
		}
		return configured, nil
	}

	if path, err := exec.LookPath("tesseract"); err == nil {
		return path, nil
	}

	var locations []string
	switch runtime.GOOS {
	case "windows":
		locations = []string{
			`C:\Program Files\Tesseract-OCR\tesseract.exe`,
			`C:\Program Files (x86)\Tesseract-OCR\tesseract.exe`,
		}
	default:
		locations = []string{
			"/usr/bin/tesseract",
			"/usr/local/bin/tesseract",
			"/opt/homebrew/bin/tesseract",
		}
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc, nil
		}
	}

	return "", fmt.Errorf("tesseract binary not found in PATH or common locations")
}
