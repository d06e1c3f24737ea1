package worksheet

import (
	"fmt"
	"strings"
)

// Field fallbacks applied after the parse pass.
const (
	DefaultInstructions = "Read each question together and encourage pointing and counting."
	DefaultTips         = "Celebrate effort and keep sessions short and fun."
)

// fillerFormat numbers each synthetic question with the running total.
const fillerFormat = "Practice question %d: Draw and count stars or cars."

// lineKind classifies one non-empty input line.
type lineKind int

const (
	lineContent lineKind = iota
	lineTitle
	lineInstructions
	lineTips
	linePartA
	linePartB
	linePartC
)

// header binds a case-insensitive line prefix to its classification.
// Order matters: prefixes are tested in priority order, first match wins.
var headers = []struct {
	prefix string
	kind   lineKind
}{
	{"TITLE", lineTitle},
	{"INSTRUCTIONS", lineInstructions},
	{"PARENT TIPS", lineTips},
	{"PART A", linePartA},
	{"PART B", linePartB},
	{"PART C", linePartC},
}

var sectionNames = map[lineKind]string{
	linePartA: SectionPartA,
	linePartB: SectionPartB,
	linePartC: SectionPartC,
}

// classify matches line against the recognized headers. The returned value
// is the trimmed text after the first colon; hasColon distinguishes a
// header whose value is empty from one that carries no value at all.
// Unmatched lines are lineContent with the line itself.
func classify(line string) (kind lineKind, value string, hasColon bool) {
	upper := strings.ToUpper(line)
	for _, h := range headers {
		if strings.HasPrefix(upper, h.prefix) {
			if _, after, found := strings.Cut(line, ":"); found {
				return h.kind, strings.TrimSpace(after), true
			}
			return h.kind, "", false
		}
	}
	return lineContent, line, false
}

// bulletCutset is the leading run stripped off question lines to remove
// numbering and bullet markers.
const bulletCutset = "-*0123456789. "

// Parse converts raw model output into a Worksheet for childName.
//
// The pass is a single line-oriented state machine: the cursor starts unset,
// PART A/B/C lines move it, TITLE/INSTRUCTIONS/PARENT TIPS lines set their
// scalar field without moving it (a repeated header overwrites, even with
// an empty value after the colon; a header with no colon leaves the field
// untouched), and every other non-empty line is a question under the current
// cursor or discarded when no cursor is set yet. After the pass, missing
// scalars fall back to defaults and the question total is topped up to
// MinQuestions under the Extra Practice section.
//
// Parsing is best-effort: a question line that happens to start
// with a header word is misclassified, and unrecognized header-like lines
// are treated as plain content.
func Parse(raw, childName string) Worksheet {
	w := Worksheet{}
	cursor := ""

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		kind, value, hasColon := classify(line)
		switch kind {
		case lineTitle:
			if hasColon {
				w.Title = value
			}
		case lineInstructions:
			if hasColon {
				w.Instructions = value
			}
		case lineTips:
			if hasColon {
				w.Tips = value
			}
		case linePartA, linePartB, linePartC:
			cursor = sectionNames[kind]
			w.section(cursor)
		case lineContent:
			if cursor == "" {
				continue
			}
			cleaned := strings.TrimSpace(strings.TrimLeft(line, bulletCutset))
			if cleaned != "" {
				sec := w.section(cursor)
				sec.Questions = append(sec.Questions, cleaned)
			}
		}
	}

	applyFallbacks(&w, childName)
	backfill(&w)
	return w
}

func applyFallbacks(w *Worksheet, childName string) {
	if w.Title == "" {
		w.Title = childName + "'s Worksheet"
	}
	if w.Instructions == "" {
		w.Instructions = DefaultInstructions
	}
	if w.Tips == "" {
		w.Tips = DefaultTips
	}
}

// backfill appends numbered filler questions under Extra Practice until the
// total reaches MinQuestions.
func backfill(w *Worksheet) {
	total := w.QuestionCount()
	if total >= MinQuestions {
		return
	}
	extra := w.section(SectionExtraPractice)
	for total < MinQuestions {
		extra.Questions = append(extra.Questions, fmt.Sprintf(fillerFormat, total+1))
		total++
	}
}
