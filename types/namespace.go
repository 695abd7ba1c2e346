package types

import (
	"regexp"

	"github.com/rotisserie/eris"
)

var namespacePattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// Namespace is a unique identifier for a world. It tags every log line and
// metric the world emits so multiple worlds can coexist in one process.
type Namespace string

func (n Namespace) String() string {
	return string(n)
}

// Validate rejects namespaces with characters outside [a-zA-Z0-9-], which
// keeps them safe to embed in metric names and log fields.
func (n Namespace) Validate() error {
	if !namespacePattern.MatchString(n.String()) {
		return eris.Errorf("namespace %q may only contain letters, digits, and hyphens", n)
	}
	return nil
}
