// Package worksheet converts raw model output into a structured worksheet.
package worksheet

// Recognized section names plus the reserved overflow bucket.
const (
	SectionPartA         = "Part A"
	SectionPartB         = "Part B"
	SectionPartC         = "Part C"
	SectionExtraPractice = "Extra Practice"
)

// MinQuestions is the minimum total question count a parsed worksheet must
// carry; the deficit is filled under the Extra Practice section.
const MinQuestions = 12

// Section is a named, ordered list of questions.
type Section struct {
	Name      string   `json:"name"`
	Questions []string `json:"questions"`
}

// Worksheet is the structured, validated representation of one generated
// worksheet, ready for rendering. Sections preserve the order of first
// appearance in the source text.
type Worksheet struct {
	Title        string    `json:"title"`
	Instructions string    `json:"instructions"`
	Tips         string    `json:"tips"`
	Sections     []Section `json:"sections"`
}

// QuestionCount returns the total number of questions across all sections.
func (w *Worksheet) QuestionCount() int {
	total := 0
	for _, s := range w.Sections {
		total += len(s.Questions)
	}
	return total
}

// Section returns the questions under name, or nil if the section is absent.
func (w *Worksheet) Section(name string) []string {
	for _, s := range w.Sections {
		if s.Name == name {
			return s.Questions
		}
	}
	return nil
}

// section returns a pointer to the named section, creating it at the end of
// the ordered list if absent.
func (w *Worksheet) section(name string) *Section {
	for i := range w.Sections {
		if w.Sections[i].Name == name {
			return &w.Sections[i]
		}
	}
	w.Sections = append(w.Sections, Section{Name: name})
	return &w.Sections[len(w.Sections)-1]
}
