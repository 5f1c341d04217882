// Package search implements substring search with context snippets over keyed rows.
//
// Search scans one text column of every row in iteration order, locates the
// keyword case-insensitively and collects up to limit hits. Each hit carries
// a context window of up to 120 characters starting 20 characters before the
// match, optionally with highlight markup around every occurrence.
//
// Failures are reported inline through Result.Message rather than as errors:
//
//	res := search.Search(table, "world", 10, search.Field("body"), search.Mark(true))
//	if !res.OK() {
//	    log.Println(res.Message)
//	}
//
// All positions and lengths are counted in characters (runes), never bytes.
package search

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hupe1980/memdb/row"
)

const (
	// DefaultLimit is used when Search is called with limit <= 0.
	DefaultLimit = 30

	// MaxKeywordLength is the maximum keyword length in characters.
	MaxKeywordLength = 12

	contextBefore = 20
	contextLength = 120
)

// Inline result messages.
const (
	MessageOK             = "ok"
	MessageInvalidOption  = "Option setting is error!"
	MessageInvalidKeyword = "Keywords is invalid"
)

// Source is a countable, iterable set of rows.
type Source interface {
	Count() (int, error)
	Rows() (iter.Seq2[string, row.Row], error)
}

var stripper = strings.NewReplacer(
	`\`, "", "/", "", ",", "", ".", "", ";", "", ":", "", "?", "", "`", "",
	"!", "", "@", "", "#", "", "$", "", "%", "", "^", "", "&", "", "*", "",
	"\n", "", "\r", "", "\t", "",
	"，", "", "。", "", "、", "", "？", "", "；", "", "：", "",
)

// NormalizeKeyword strips punctuation and control characters, trims
// whitespace and clamps the keyword to MaxKeywordLength characters.
func NormalizeKeyword(keyword string) string {
	kw := strings.TrimSpace(stripper.Replace(strings.TrimSpace(keyword)))
	if utf8.RuneCountInString(kw) > MaxKeywordLength {
		kw = string([]rune(kw)[:MaxKeywordLength])
	}
	return kw
}

// Search scans src for rows whose configured field contains keyword.
func Search(src Source, keyword string, limit int, optFns ...Option) Result {
	o := applyOptions(optFns)

	if o.field == "" {
		return Result{Message: MessageInvalidOption, KeepIndex: o.keepIndex}
	}

	kw := NormalizeKeyword(keyword)
	if kw == "" {
		return Result{Message: MessageInvalidKeyword, KeepIndex: o.keepIndex}
	}

	if limit <= 0 {
		limit = DefaultLimit
	}

	total, err := src.Count()
	if err != nil {
		return Result{Message: err.Error(), KeepIndex: o.keepIndex}
	}

	res := Result{
		Message:   MessageOK,
		Total:     total,
		KeepIndex: o.keepIndex,
	}
	if total == 0 {
		return res
	}

	rows, err := src.Rows()
	if err != nil {
		return Result{Message: err.Error(), KeepIndex: o.keepIndex}
	}

	needle := []rune(kw)

	for key, r := range rows {
		value, ok := r[o.field]
		if !ok || value == nil {
			continue
		}

		text := toText(value)
		hay := []rune(text)

		pos := indexFold(hay, needle, 0)
		if pos < 0 || (pos == 0 && !o.matchAtStart) {
			continue
		}

		start := max(pos-contextBefore, 0)
		end := min(start+contextLength, len(hay))
		snippet := hay[start:end]

		context := string(snippet)
		if o.mark {
			context = highlight(snippet, needle, o.markTemplate)
		}

		res.Hits = append(res.Hits, Hit{
			Key:     key,
			Field:   o.field,
			Index:   pos,
			Value:   value,
			Count:   strings.Count(text, kw),
			Context: context,
		})

		if len(res.Hits) >= limit {
			break
		}
	}

	res.ResultRows = len(res.Hits)

	return res
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// indexFold returns the rune index of the first case-insensitive occurrence
// of needle in hay at or after from, or -1.
func indexFold(hay, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(hay); i++ {
		if hasPrefixFold(hay[i:], needle) {
			return i
		}
	}
	return -1
}

func hasPrefixFold(s, prefix []rune) bool {
	for i, r := range prefix {
		if !equalFold(s[i], r) {
			return false
		}
	}
	return true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	return unicode.ToLower(a) == unicode.ToLower(b) || unicode.ToUpper(a) == unicode.ToUpper(b)
}

// highlight wraps every case-insensitive occurrence of needle in s,
// keeping the occurrence's own casing.
func highlight(s, needle []rune, template string) string {
	var b strings.Builder

	last := 0
	for i := indexFold(s, needle, 0); i >= 0; i = indexFold(s, needle, last) {
		b.WriteString(string(s[last:i]))
		b.WriteString(strings.ReplaceAll(template, "%s", string(s[i:i+len(needle)])))
		last = i + len(needle)
	}
	b.WriteString(string(s[last:]))

	return b.String()
}
