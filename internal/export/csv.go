package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"connections-exporter/internal/storage"
)

var header = []string{"Name", "Title", "Location", "Profile URL"}

// WriteCSV пишет записи в порядке обнаружения. Каждое поле в кавычках, кавычки внутри удваиваются.
func WriteCSV(w io.Writer, records []storage.ConnectionRecord) error {
	bw := bufio.NewWriter(w)

	if err := writeRow(bw, header); err != nil {
		return err
	}
	for _, r := range records {
		if err := writeRow(bw, []string{r.Name, r.Title, r.Location, r.ProfileURL}); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile пишет CSV в path через временный файл.
func WriteFile(path string, records []storage.ConnectionRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".connections-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteCSV(tmp, records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(f)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
