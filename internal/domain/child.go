// Package domain contains core domain types for WorksheetBot.
package domain

import "strings"

// Child represents one of the children worksheets are generated for.
type Child struct {
	Name string
	Age  int
	// Context is the free-text profile injected into the system prompt.
	Context string
}

// KnownChildren are the profiles WorksheetBot ships with. Lookup is
// case-insensitive; an unknown name falls back to Declan's simpler profile,
// matching how requests for "anyone else" are handled.
var KnownChildren = []Child{
	{
		Name: "Landon",
		Age:  7,
		Context: "Landon, age 7, who has high functioning autism. He loves race cars, rockets, toys, and stars. " +
			"Worksheets should be structured with math, word problems, and comparisons. " +
			"Generate at least 12 unique questions grouped into Parts A, B, and C. " +
			"Do not repeat questions. Include playful themes, icons, and parent tips.",
	},
	{
		Name: "Declan",
		Age:  5,
		Context: "Declan, age 5. He loves colorful worksheets with playful Disney-style energy, Pokémon creatures, and Sprunkies. " +
			"Worksheets should be simpler with counting, matching, and easy add/subtract. " +
			"Generate at least 12 unique questions grouped into Parts A, B, and C. " +
			"Do not repeat questions. Include playful themes, icons, and parent tips.",
	},
}

// ChildByName returns the profile for name, falling back to the last
// (simplest) profile when the name is unknown.
func ChildByName(name string) Child {
	for _, c := range KnownChildren {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c
		}
	}
	return KnownChildren[len(KnownChildren)-1]
}
