package service

import "github.com/google/uuid"

// Check ID prefixes identify which evaluator produced a verdict.
const (
	CheckIDPrefixLocal    = "local_"
	CheckIDPrefixProvider = "provider_"
	CheckIDPrefixFallback = "fallback_"
	CheckIDPrefixLimits   = "limits_"
	CheckIDPrefixSkipped  = "skipped_"
)

func newCheckID(prefix string) string {
	return prefix + uuid.NewString()
}
