package conversation

import (
	"errors"
	"net/http"
	"strings"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"google.golang.org/api/googleapi"
)

// IsRateLimited reports whether err came from a provider quota or throttling
// response.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	var throttled *brtypes.ThrottlingException
	if errors.As(err, &throttled) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "ResourceExhausted")
}
