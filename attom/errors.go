package attom

import (
	"fmt"
	"regexp"
)

const maxErrorBody = 300

// emptyResultRegex matches the provider's "SuccessWithoutResult" message in the
// spellings and casings it has been seen to use.
var emptyResultRegex = regexp.MustCompile(`(?i)success(ful)?\s*with\s*out\s*result`)

type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("attom: %s is not configured", e.Key)
}

// ErrMissingAPIKey is returned before any request when no credential is set.
var ErrMissingAPIKey = &ConfigError{Key: "ATTOM_API_KEY"}

// ProviderError is a non-success response that is not the empty-result quirk.
type ProviderError struct {
	Endpoint   string
	StatusCode int
	Reason     string
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("attom %s failed: %d %s: %s", e.Endpoint, e.StatusCode, e.Reason, e.Body)
}

func isEmptyResult(body []byte) bool {
	return emptyResultRegex.Match(body)
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
