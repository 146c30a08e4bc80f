// internal/inference/address.go
package inference

// AddressAnalyzer infers a socioeconomic tier from postal codes using two
// static membership sets.
type AddressAnalyzer struct {
	highTier map[string]struct{}
	lowTier  map[string]struct{}
}

var highTierPostalCodes = []string{
	"94102", "94105", "94301", "10021", "10023", "90210", "02138",
	"98004", "60611", "20007",
}

var lowTierPostalCodes = []string{
	"90011", "90059", "60621", "60624", "10454", "19133", "48205",
	"63106", "21217", "44104",
}

// NewAddressAnalyzer builds the analyzer from the static postal-code sets.
func NewAddressAnalyzer() *AddressAnalyzer {
	a := &AddressAnalyzer{
		highTier: make(map[string]struct{}, len(highTierPostalCodes)),
		lowTier:  make(map[string]struct{}, len(lowTierPostalCodes)),
	}
	for _, c := range highTierPostalCodes {
		a.highTier[c] = struct{}{}
	}
	for _, c := range lowTierPostalCodes {
		a.lowTier[c] = struct{}{}
	}
	return a
}

// InferSES maps a postal code to ("high"|"low", 0.80) on exact membership,
// ("medium", 0.50) otherwise.
func (a *AddressAnalyzer) InferSES(postalCode string) (string, float64) {
	if _, ok := a.highTier[postalCode]; ok {
		return "high", 0.80
	}
	if _, ok := a.lowTier[postalCode]; ok {
		return "low", 0.80
	}
	return "medium", 0.50
}
