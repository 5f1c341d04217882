package search

// DefaultMarkTemplate wraps a highlighted occurrence. %s is replaced by the occurrence.
const DefaultMarkTemplate = `<span class="search-mark">%s</span>`

type options struct {
	field        string
	mark         bool
	keepIndex    bool
	markTemplate string
	matchAtStart bool
}

// Option configures a search.
type Option func(*options)

// Field sets the text column to scan. It is required.
func Field(name string) Option {
	return func(o *options) {
		o.field = name
	}
}

// Mark wraps keyword occurrences inside the context snippet with highlight markup.
func Mark(enabled bool) Option {
	return func(o *options) {
		o.mark = enabled
	}
}

// KeepIndex keys results by row key when rendered as JSON. Enabled by default.
// When disabled, results are rendered as a dense array.
func KeepIndex(enabled bool) Option {
	return func(o *options) {
		o.keepIndex = enabled
	}
}

// MarkTemplate sets the highlight markup. Every "%s" in format is replaced by
// the matched text. An empty format restores DefaultMarkTemplate.
func MarkTemplate(format string) Option {
	return func(o *options) {
		if format == "" {
			format = DefaultMarkTemplate
		}
		o.markTemplate = format
	}
}

// MatchAtStart reports matches at the first character of the field.
//
// By default a keyword found only at offset 0 does not count as a match.
func MatchAtStart(enabled bool) Option {
	return func(o *options) {
		o.matchAtStart = enabled
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		keepIndex:    true,
		markTemplate: DefaultMarkTemplate,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
