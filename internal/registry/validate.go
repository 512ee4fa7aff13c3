package registry

import "regexp"

// nameRe is the fabric-wide service name grammar (§4.3).
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_$-]+$`)

// ValidName reports whether name is a legal, non-empty service name.
func ValidName(name string) bool {
	return name != "" && nameRe.MatchString(name)
}
