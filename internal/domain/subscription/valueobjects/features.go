package valueobjects

import "slices"

// Features is the set of feature flags a plan unlocks.
type Features []string

func NewFeatures(flags ...string) Features {
	out := make(Features, 0, len(flags))
	for _, f := range flags {
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

func (f Features) Has(flag string) bool {
	return slices.Contains(f, flag)
}
