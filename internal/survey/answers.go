package survey

import (
	"maps"
	"slices"
	"time"
)

// TimestampKey is appended to the record when it is submitted.
const TimestampKey = "timestamp"

// TimestampLayout renders the submission time like the en-GB locale string of a browser.
const TimestampLayout = "02/01/2006, 15:04:05"

// AnswerRecord maps field names to answer values. Keys are unique across the whole survey.
type AnswerRecord map[string]string

// Clone returns an independent copy.
func (r AnswerRecord) Clone() AnswerRecord {
	if r == nil {
		return AnswerRecord{}
	}
	return maps.Clone(r)
}

// Keys returns the keys in lexical order.
func (r AnswerRecord) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// FormatTimestamp renders t in loc with [TimestampLayout].
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(TimestampLayout)
}
