package store

import (
	"fmt"

	"github.com/roach88/datapreparer/internal/canonical"
)

// marshalPayload converts a fixture value to canonical JSON TEXT and its
// digest. The template name is the digest domain, so equal payloads of
// different templates have different digests.
func marshalPayload(template string, v any) (payload, digest string, err error) {
	data, err := canonical.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("marshal payload: %w", err)
	}
	digest, err = canonical.Digest(template, v)
	if err != nil {
		return "", "", fmt.Errorf("digest payload: %w", err)
	}
	return string(data), digest, nil
}

