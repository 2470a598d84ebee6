package dumpstore

import "errors"

var (
	ErrEmptyBucket       = errors.New("dumpstore: bucket name not configured")
	ErrDumpFileNotFound  = errors.New("dumpstore: dump file not found")
	ErrUploadFailed      = errors.New("dumpstore: upload failed")
	ErrObjectNotFound    = errors.New("dumpstore: object not found")
	ErrAccessDenied      = errors.New("dumpstore: access denied")
	ErrThrottled         = errors.New("dumpstore: request throttled by S3")
)
