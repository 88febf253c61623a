package services

import (
	founders_errors "founders-chat/pkg/errors"
)

const (
	DefaultChatPageSize    = 20
	DefaultMessagePageSize = 50
	MaxPageSize            = 100
)

// normalizeLimit applies the default for non-positive limits and clamps to
// MaxPageSize.
func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func normalizeSkip(skip int) (int, error) {
	if skip < 0 {
		return 0, founders_errors.ErrInvalidInput
	}
	return skip, nil
}

// MessagePageSize returns the page size List uses for a requested limit.
func MessagePageSize(limit int) int {
	return normalizeLimit(limit, DefaultMessagePageSize)
}

// ChatPageSize returns the page size List uses for a requested limit.
func ChatPageSize(limit int) int {
	return normalizeLimit(limit, DefaultChatPageSize)
}
