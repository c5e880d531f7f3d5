package listing

import "strings"

// Flag is the three-way reading of a yes/no text attribute.
type Flag int

const (
	// FlagUnknown is text that is neither a recognized yes nor a recognized no.
	FlagUnknown Flag = iota
	// FlagNo is an explicit negative ("tidak", "no", "false", "0").
	FlagNo
	// FlagYes is an explicit positive ("ya", "yes", "true", "1").
	FlagYes
)

var (
	negativeWords = map[string]struct{}{"tidak": {}, "no": {}, "false": {}, "0": {}}
	positiveWords = map[string]struct{}{"ya": {}, "yes": {}, "true": {}, "1": {}}
)

// ParseFlag classifies s case-insensitively after trimming whitespace.
func ParseFlag(s string) Flag {
	v := strings.ToLower(strings.TrimSpace(s))
	if _, ok := negativeWords[v]; ok {
		return FlagNo
	}
	if _, ok := positiveWords[v]; ok {
		return FlagYes
	}
	return FlagUnknown
}

// IsNo reports an explicit negative.
func (f Flag) IsNo() bool { return f == FlagNo }

// IsYes reports an explicit positive.
func (f Flag) IsYes() bool { return f == FlagYes }

// String returns a human-readable name for the flag.
func (f Flag) String() string {
	switch f {
	case FlagNo:
		return "no"
	case FlagYes:
		return "yes"
	default:
		return "unknown"
	}
}
