package diagnosis

import "context"

// Backend is an external text-generation service that turns an error log into
// a diagnosis document. Implementations own their timeout and must not retry.
type Backend interface {
	Name() string
	Diagnose(ctx context.Context, logText string) (string, error)
}
