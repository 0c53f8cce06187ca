package retry

import (
	"errors"
	"strings"
)

// retryable is implemented by errors that know whether they are transient.
type retryable interface {
	Retryable() bool
}

// transientMarkers are matched case-insensitively against error messages
// that do not classify themselves.
var transientMarkers = []string{
	"timeout",
	"connection",
	"rate limit",
	"429",
	"500",
	"502",
	"503",
	"504",
	"529",
	"overloaded",
}

// IsRetryable is the default classifier. An error in the chain that
// implements Retryable() decides; otherwise the message is matched against
// the known transient markers.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
