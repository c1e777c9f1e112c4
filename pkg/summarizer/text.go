package summarizer

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// TextFormatter renders a Summary as aligned plain text for the terminal.
type TextFormatter struct {
	options options
}

// NewTextFormatter creates a TextFormatter.
func NewTextFormatter(opts ...Option) *TextFormatter {
	return &TextFormatter{options: newOptions(opts)}
}

// Format implements Formatter.
func (f *TextFormatter) Format(s *Summary) string {
	t := f.options.translate
	results, settings, counters := f.options.sections(s)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", t("Playback Summary"))

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, section := range [][]row{results, settings, counters} {
		fmt.Fprintln(w)
		for _, r := range section {
			fmt.Fprintf(w, "  %s\t%s\n", r.label, r.value)
		}
	}
	w.Flush()
	return b.String()
}
