// Package prompt builds the system prompts sent to the completion service.
// Prior conversation turns travel separately as structured messages; the
// prompts here carry only identity, formatting directives and ambient
// context (date, scores).
package prompt

import (
	"strings"
	"time"

	"github.com/gpotter/worksheetbot/internal/domain"
)

// dateLayout matches the spelled-out date the prompts inject,
// e.g. "Tuesday, August 25, 2026".
const dateLayout = "Monday, January 2, 2006"

// FormatDate renders t the way the prompts and rendered sheets expect.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Worksheet returns the system prompt for worksheet generation for child.
// The output format directives here are what the parser's header vocabulary
// is matched against.
func Worksheet(child domain.Child, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are WorksheetBot, a helpful assistant created by Garrett and his wife. ")
	b.WriteString("Your job is to create fun, educational worksheets for ")
	b.WriteString(child.Context)
	b.WriteString(" Always format output in labeled sections: TITLE, INSTRUCTIONS, PART A, PART B, PART C, and PARENT TIPS. ")
	b.WriteString("Write numbered questions within each part. ")
	b.WriteString("Keep language friendly, concise, and encouraging. ")
	b.WriteString("Today's date is ")
	b.WriteString(FormatDate(now))
	b.WriteString(".")
	return b.String()
}

// Assistant returns the system prompt for free-form chat turns. The scores
// block comes from the lookup collaborator; pass its empty-result text when
// lookups are disabled or failing.
func Assistant(now time.Time, scores string) string {
	var b strings.Builder
	b.WriteString("You are GarrettBot, a helpful AI assistant created by Garrett. ")
	b.WriteString("Today's date is ")
	b.WriteString(FormatDate(now))
	b.WriteString(". Here are the current NFL scores:\n")
	b.WriteString(scores)
	return b.String()
}
