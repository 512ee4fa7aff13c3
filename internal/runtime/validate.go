package runtime

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_$-]+$`)

// ValidName reports whether name is a legal, non-empty service name.
func ValidName(name string) bool {
	return name != "" && nameRe.MatchString(name)
}

// anonymousName generates the Anon$<8-hex> name used when Register is
// called without an explicit service name.
func anonymousName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "Anon$" + id[:8]
}
