package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared across packages.
const (
	FieldProvider  = "ai_provider"
	FieldModel     = "ai_model"
	FieldCandidate = "candidate"
	// FieldProgress holds "n/total" batch progress.
	FieldProgress = "progress"
	FieldRepo     = "repo"
)

// nonEmpty returns key=value as a field list, or nothing when either is blank.
func nonEmpty(key, value string) []zap.Field {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if key == "" || value == "" {
		return nil
	}
	return []zap.Field{zap.String(key, value)}
}

// WithFields attaches the fields to logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields describes the AI provider and model. Blank values are dropped.
func CommonFields(provider, model string) []zap.Field {
	return append(nonEmpty(FieldProvider, provider), nonEmpty(FieldModel, model)...)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// CandidateFields describes the position of a candidate within a batch.
// index is zero based.
func CandidateFields(login string, index, total int) []zap.Field {
	fields := nonEmpty(FieldCandidate, login)
	if total > 0 {
		fields = append(fields, zap.String(FieldProgress, fmt.Sprintf("%d/%d", index+1, total)))
	}
	return fields
}

// RepoField names a repository as owner/name.
func RepoField(owner, repo string) zap.Field {
	return zap.String(FieldRepo, owner+"/"+repo)
}
