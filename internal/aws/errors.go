package aws

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/vietdv277/bucketinv/pkg/provider"
)

// apiErrorCodes maps AWS API error codes to provider sentinel errors
var apiErrorCodes = map[string]error{
	"NoSuchBucket":             provider.ErrNotFound,
	"NotFound":                 provider.ErrNotFound,
	"AccessDenied":             provider.ErrPermissionDenied,
	"AllAccessDisabled":        provider.ErrPermissionDenied,
	"AccountProblem":           provider.ErrPermissionDenied,
	"InvalidAccessKeyId":       provider.ErrAuthFailed,
	"InvalidClientTokenId":     provider.ErrAuthFailed,
	"SignatureDoesNotMatch":    provider.ErrAuthFailed,
	"ExpiredToken":             provider.ErrAuthFailed,
	"SlowDown":                 provider.ErrThrottled,
	"Throttling":               provider.ErrThrottled,
	"ThrottlingException":      provider.ErrThrottled,
	"RequestLimitExceeded":     provider.ErrThrottled,
	"TooManyRequestsException": provider.ErrThrottled,
}

// classify wraps AWS API errors with the matching provider sentinel so
// callers can use errors.Is without importing smithy
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	sentinel, ok := apiErrorCodes[apiErr.ErrorCode()]
	if !ok {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
