// Package report assembles normalized records into the final Markdown
// document and writes it to disk in one shot.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"marketdigest/internal/digest"
)

// Section is one heading of the report plus whatever its adapter produced.
// Err marks a section whose provider could not be reached; it is rendered
// in place of the records so the rest of the document is unaffected.
type Section struct {
	Title   string
	Records []digest.Record
	Err     error
}

// Render builds the whole document in memory. It is deterministic: the same
// sections and generation time always produce byte-identical output.
func Render(sections []Section, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# Market Update\n\n")
	fmt.Fprintf(&b, "_Generated on %s_\n\n", generatedAt.UTC().Format("2006-01-02 15:04 UTC"))

	for _, sec := range sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		switch {
		case sec.Err != nil:
			fmt.Fprintf(&b, "_Section unavailable: %v_\n\n", sec.Err)
		case len(sec.Records) == 0:
			b.WriteString("_No data available._\n\n")
		default:
			b.WriteString(RenderRecords(sec.Records))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderRecords renders records as a Markdown bullet list, one record per
// bullet, in the order the adapter returned them.
func RenderRecords(records []digest.Record) string {
	var b strings.Builder
	for _, r := range records {
		renderRecord(&b, r)
		b.WriteString("\n")
	}
	return b.String()
}

func renderRecord(b *strings.Builder, r digest.Record) {
	fmt.Fprintf(b, "- **%s** — %s", stamp(r), r.Subject)

	if r.Title != "" {
		if r.URL != "" {
			fmt.Fprintf(b, ": [%s](%s)", r.Title, r.URL)
		} else {
			b.WriteString(": " + r.Title)
		}
	}
	if len(r.Details) > 0 {
		b.WriteString(" (" + strings.Join(r.Details, "; ") + ")")
	}
	if r.Body != "" {
		b.WriteString(": " + r.Body)
	}
	if r.URL != "" && r.Title == "" {
		fmt.Fprintf(b, "\n  [%s](%s)", r.URL, r.URL)
	}
}

func stamp(r digest.Record) string {
	if r.DateOnly {
		return r.Time.Format("2006-01-02")
	}
	return r.Time.UTC().Format("2006-01-02 15:04 UTC")
}

// Write stores the document atomically: the full content goes to a
// temporary file in the target directory, which is then renamed over the
// destination. A failure leaves no partial report behind.
func Write(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
