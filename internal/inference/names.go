// internal/inference/names.go
package inference

import "strings"

// NameAnalyzer infers protected-attribute proxies from candidate names.
// It models the kind of inference a biased screening system performs; all
// lookups are pure and deterministic.
type NameAnalyzer struct {
	femaleNames map[string]struct{}
	maleNames   map[string]struct{}
}

var femaleNameList = []string{
	"emily", "emma", "olivia", "ava", "sophia", "isabella", "mia",
	"charlotte", "amelia", "harper", "sarah", "jessica", "jennifer",
	"maria", "lisa", "susan", "karen", "nancy", "margaret", "anna",
	"aisha", "fatima", "priya", "mei", "yuki", "ingrid", "elena",
}

var maleNameList = []string{
	"james", "john", "robert", "michael", "william", "david", "richard",
	"joseph", "thomas", "charles", "daniel", "matthew", "anthony", "mark",
	"donald", "steven", "paul", "andrew", "joshua", "kenneth", "kevin",
	"alex", "brian", "george", "omar", "ahmed", "luis", "carlos",
}

// minorityIndicators are tokens matched as substrings of the full name.
// First match wins.
var minorityIndicators = []string{
	"mohammed", "ahmed", "ali", "aisha", "fatima", "omar",
	"chen", "wang", "li", "zhang", "liu",
	"patel", "kumar", "singh", "sharma",
	"nguyen", "tran", "le",
	"rodriguez", "garcia", "hernandez", "martinez",
}

// NewNameAnalyzer builds the analyzer from the static name sets.
func NewNameAnalyzer() *NameAnalyzer {
	a := &NameAnalyzer{
		femaleNames: make(map[string]struct{}, len(femaleNameList)),
		maleNames:   make(map[string]struct{}, len(maleNameList)),
	}
	for _, n := range femaleNameList {
		a.femaleNames[n] = struct{}{}
	}
	for _, n := range maleNameList {
		a.maleNames[n] = struct{}{}
	}
	return a
}

// InferGender returns ("female"|"male", 0.85) on an exact case-insensitive
// first-name match, ("unknown", 0.0) otherwise.
func (a *NameAnalyzer) InferGender(firstName string) (string, float64) {
	name := strings.ToLower(strings.TrimSpace(firstName))
	if _, ok := a.femaleNames[name]; ok {
		return "female", 0.85
	}
	if _, ok := a.maleNames[name]; ok {
		return "male", 0.85
	}
	return "unknown", 0.0
}

// IsMinorityName reports whether the full name contains any token from the
// indicator list. A match returns confidence 0.75.
func (a *NameAnalyzer) IsMinorityName(fullName string) (bool, float64) {
	name := strings.ToLower(fullName)
	for _, indicator := range minorityIndicators {
		if strings.Contains(name, indicator) {
			return true, 0.75
		}
	}
	return false, 0.0
}

// NameParts splits a full name into first and last name.
func NameParts(fullName string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(fullName))
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}
