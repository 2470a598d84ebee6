package dumpstore

import (
	"errors"

	"github.com/aws/smithy-go"
)

// classifyS3Error maps an AWS SDK error to one of this package's sentinel
// errors, so callers can branch with errors.Is instead of inspecting smithy
// error codes directly.
func classifyS3Error(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return errors.Join(ErrObjectNotFound, err)
		case "AccessDenied":
			return errors.Join(ErrAccessDenied, err)
		case "SlowDown", "RequestLimitExceeded", "TooManyRequests":
			return errors.Join(ErrThrottled, err)
		}
	}

	return errors.Join(ErrUploadFailed, err)
}
