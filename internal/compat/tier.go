package compat

import "fmt"

// Tier is a Baseline classification level. Tiers are ordered: Limited is the
// least compatible, WidelyAvailable the most.
type Tier int

const (
	Limited Tier = iota
	NewlyAvailable
	WidelyAvailable
)

var tierNames = [...]string{
	Limited:         "limited",
	NewlyAvailable:  "newly",
	WidelyAvailable: "widely",
}

// String returns the short name used in the feature table and in JSON output.
func (t Tier) String() string {
	if t < Limited || t > WidelyAvailable {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Label returns a human-readable name for the tier.
func (t Tier) Label() string {
	switch t {
	case Limited:
		return "Limited availability"
	case NewlyAvailable:
		return "Newly available"
	case WidelyAvailable:
		return "Widely available"
	}
	return t.String()
}

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	return t >= Limited && t <= WidelyAvailable
}

// ParseTier accepts the short names plus the long enum spellings.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "limited", "Limited", "false":
		return Limited, nil
	case "newly", "NewlyAvailable", "low":
		return NewlyAvailable, nil
	case "widely", "WidelyAvailable", "high":
		return WidelyAvailable, nil
	}
	return 0, fmt.Errorf("compat: unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("compat: invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
