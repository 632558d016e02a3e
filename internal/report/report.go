// Package report renders analyses as plain text reports and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	profileWidth = 65
	rankingWidth = 70
	commitWidth  = 60

	// RawDataMarker separates the ranked report from its JSON payload in
	// saved match results.
	RawDataMarker = "\n\n--- RAW DATA ---\n"
)

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// WithRawData appends the JSON encoding of v to a text report.
func WithRawData(text string, v any) (string, error) {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString(RawDataMarker)

	if err := JSON(&b, v); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// RatingPath derives the rating report file name from the commit log file
// name: commits.txt becomes commits_rating.txt.
func RatingPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + "_rating.txt"
}

type lines struct {
	b strings.Builder
}

func (l *lines) add(format string, args ...any) {
	fmt.Fprintf(&l.b, format, args...)
	l.b.WriteByte('\n')
}

func (l *lines) text(s string) {
	l.b.WriteString(s)
	l.b.WriteByte('\n')
}

func (l *lines) rule(ch string, width int) {
	l.text(strings.Repeat(ch, width))
}

func (l *lines) blank() {
	l.b.WriteByte('\n')
}

func (l *lines) String() string {
	return strings.TrimSuffix(l.b.String(), "\n")
}

// Score formats an optional score, "N/A" when absent.
func Score(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
