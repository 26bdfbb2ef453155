// package formatter exports job results (song lists) to CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/musictransfer/internal/models"
	"github.com/desertthunder/musictransfer/internal/shared"
)

// Format is an export format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
)

// ParseFormat accepts csv, md/markdown and txt/text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want csv, md or txt)", shared.ErrInvalidArgument, s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case Markdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Filename returns a download name for base in this format.
func (f Format) Filename(base string) string {
	return base + "." + string(f)
}

// ExportCSV converts songs to CSV with columns: Song, Artist, Length, Duration (ms)
func ExportCSV(songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Song", "Artist", "Length", "Duration (ms)"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range songs {
		record := []string{
			song.Title,
			song.Artist,
			song.Length,
			strconv.Itoa(song.DurationMS),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportMarkdown converts songs to a Markdown table headed by title
func ExportMarkdown(title string, songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(songs))

	buf.WriteString("| # | Song | Artist | Length |\n")
	buf.WriteString("|---|------|--------|--------|\n")
	for i, song := range songs {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s |\n", i+1, escapeCell(song.Title), escapeCell(song.Artist), song.Length)
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExportText converts songs to a numbered plain text list
func ExportText(title string, songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title)
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(songs))

	for i, song := range songs {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, song.Artist, song.Title, song.Length)
	}

	return buf.Bytes(), nil
}

// Export renders songs in format f.
func Export(f Format, title string, songs []models.Song) ([]byte, error) {
	switch f {
	case CSV:
		return ExportCSV(songs)
	case Markdown:
		return ExportMarkdown(title, songs)
	case Text:
		return ExportText(title, songs)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteExport renders songs and writes them to w.
func WriteExport(w io.Writer, f Format, title string, songs []models.Song) error {
	data, err := Export(f, title, songs)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// WriteExportFile writes the export to path, defaulting to {base}.{format}.
func WriteExportFile(f Format, title string, songs []models.Song, path, base string) (string, error) {
	if path == "" {
		path = f.Filename(base)
	}

	data, err := Export(f, title, songs)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
