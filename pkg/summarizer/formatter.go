package summarizer

import "fmt"

// Formatter defines the interface for formatting a Summary.
type Formatter interface {
	// Format converts a Summary to a formatted string.
	Format(summary *Summary) string
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(summary *Summary) string

// Format implements the Formatter interface.
func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// Option configures the built-in formatters.
type Option func(*options)

type options struct {
	translate func(string) string
	version   string
}

// WithTranslator translates labels, e.g. with l10n.T.
func WithTranslator(fn func(string) string) Option {
	return func(o *options) {
		o.translate = fn
	}
}

// WithVersion adds the tapeplay version to the footer.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
	}
}

func newOptions(opts []Option) options {
	o := options{translate: func(s string) string { return s }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// row is one labelled line shared by the formatters.
type row struct {
	label string
	value string
}

func (o options) sections(s *Summary) (results, settings, counters []row) {
	t := o.translate

	file := s.Session.File
	if file == "" {
		file = "-"
	}
	source := s.Session.Source
	if source == "" {
		source = "-"
	}
	reached := t("No")
	if s.Result.ReachedEnd {
		reached = t("Yes")
	}
	mode := t("Foreground")
	if s.Settings.Background {
		mode = t("Background")
	}

	results = []row{
		{t("File"), file},
		{t("Source"), source},
		{t("Rows Played"), fmt.Sprintf("%d → %d / %d", s.Result.StartRow, s.Result.FinalRow, s.Result.TotalRows)},
		{t("Reached End"), reached},
		{t("Duration"), formatDuration(s.Result.DurationMs)},
		{t("Effective Rate"), fmt.Sprintf("%.1f fps", s.EffectiveRate())},
	}

	settings = []row{
		{t("Target Rate"), fmt.Sprintf("%g fps", s.Settings.TargetRate)},
		{t("Speed"), fmt.Sprintf("%.2fx", s.Settings.Speed)},
		{t("Chunk Size"), fmt.Sprintf("%d", s.Settings.ChunkSize)},
		{t("Low Water Mark"), fmt.Sprintf("%d", s.Settings.LowWaterMark)},
		{t("Publish Throttle"), fmt.Sprintf("%d ms", s.Settings.ThrottleMs)},
		{t("Initial Mode"), mode},
	}

	c := s.Counters
	counters = []row{
		{t("Frames Rendered"), fmt.Sprintf("%d", c.FramesRendered)},
		{t("Stalls"), fmt.Sprintf("%d", c.Stalls)},
		{t("Requests"), fmt.Sprintf("%d (%s: %d)", c.Requests, t("reset"), c.ResetRequests)},
		{t("Mismatches"), fmt.Sprintf("%d", c.Mismatches)},
		{t("Empty Deliveries"), fmt.Sprintf("%d", c.EmptyDeliveries)},
		{t("Dropped Deliveries"), fmt.Sprintf("%d", c.DroppedDeliveries)},
		{t("Fetch Errors"), fmt.Sprintf("%d", c.FetchErrors)},
		{t("Render Failures"), fmt.Sprintf("%d", c.RenderFailures)},
		{t("Positions Published"), fmt.Sprintf("%d", c.Published)},
		{t("Strategy Switches"), fmt.Sprintf("%d", c.StrategySwitches)},
		{t("Seeks"), fmt.Sprintf("%d", c.Seeks)},
	}
	return results, settings, counters
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%.2f s", float64(ms)/1000)
}
