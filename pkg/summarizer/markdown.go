package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	options options
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...Option) *MarkdownFormatter {
	return &MarkdownFormatter{options: newOptions(opts)}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.options.translate
	results, settings, counters := f.options.sections(s)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t("Playback Summary"))
	fmt.Fprintf(&b, "- %s: %s\n", t("Generated"), s.GeneratedAt.Format("2006-01-02 15:04:05"))
	if s.Session.ID != "" {
		fmt.Fprintf(&b, "- %s: `%s`\n", t("Session"), s.Session.ID)
	}
	b.WriteString("\n")

	table(&b, t, t("Results"), results)
	table(&b, t, t("Settings"), settings)
	table(&b, t, t("Counters"), counters)

	b.WriteString("---\n\n")
	footer := t("Generated by") + " tapeplay"
	if f.options.version != "" {
		footer += " " + f.options.version
	}
	b.WriteString(footer + "\n")
	return b.String()
}

func table(b *strings.Builder, t func(string) string, title string, rows []row) {
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintf(b, "| %s | %s |\n", t("Item"), t("Value"))
	b.WriteString("|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", r.label, strings.ReplaceAll(r.value, "|", "\\|"))
	}
	b.WriteString("\n")
}
