package recall

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateParser = buildDateParser()

func buildDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// resolveAnchorDate implements §4.6 step 1: parse any date expression
// out of the query string into an anchor_date, relative to now; an
// explicit question_date always overrides. Returns (now, false) when
// nothing in the query resolves to a date, matching the original
// source's fallback to "no temporal bias" rather than erroring.
func resolveAnchorDate(query string, questionDate *time.Time, now time.Time) (time.Time, bool) {
	if questionDate != nil {
		return *questionDate, true
	}
	match, err := dateParser.Parse(query, now)
	if err != nil || match == nil {
		return now, false
	}
	return match.Time, true
}
