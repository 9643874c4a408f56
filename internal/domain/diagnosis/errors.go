package diagnosis

import "errors"

// ErrQuotaExceeded indicates the provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("diagnosis provider quota exceeded")

// ErrEmptyResponse indicates the provider answered without usable content.
var ErrEmptyResponse = errors.New("diagnosis provider returned empty response")
