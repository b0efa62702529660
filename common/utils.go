package common

// Coalesce picks the first value that was actually set, treating the zero value as unset.
// Settings are resolved with it in precedence order, so a given CLI flag wins over the config file.
//
// Parameters:
//   - values: candidate values, highest precedence first
//
// Returns:
//   - T: the first non-zero candidate, or the zero value when none is set
func Coalesce[T comparable](values ...T) T {
	var unset T
	for _, v := range values {
		if v != unset {
			return v
		}
	}
	return unset
}
