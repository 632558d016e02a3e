package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(fields []zap.Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Key] = f.String
	}
	return out
}

func TestCommonFields(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     map[string]string
	}{
		{name: "both", provider: "  gemini  ", model: "gemini-2.5-pro", want: map[string]string{FieldProvider: "gemini", FieldModel: "gemini-2.5-pro"}},
		{name: "model only", provider: " ", model: "m", want: map[string]string{FieldModel: "m"}},
		{name: "none", want: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldMap(CommonFields(tt.provider, tt.model))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Fatalf("expected %s=%q, got %q", k, v, got[k])
				}
			}
		})
	}
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", "model-x").Info("generating")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProvider] != "gemini" || ctx[FieldModel] != "model-x" {
		t.Fatalf("unexpected context: %v", ctx)
	}

	// A nil logger falls back to a no-op one.
	WithCommonFields(nil, "gemini", "model-x").Info("dropped")
	WithFields(nil).Info("dropped")
}

func TestCandidateFields(t *testing.T) {
	got := fieldMap(CandidateFields("alice", 1, 3))
	if got[FieldCandidate] != "alice" || got[FieldProgress] != "2/3" {
		t.Fatalf("unexpected candidate fields: %v", got)
	}

	if got := CandidateFields("bob", 0, 0); len(got) != 1 {
		t.Fatalf("expected progress to be omitted without a total, got %d fields", len(got))
	}
}

func TestRepoField(t *testing.T) {
	if f := RepoField("spigell", "gh-screener"); f.Key != FieldRepo || f.String != "spigell/gh-screener" {
		t.Fatalf("unexpected repo field: %+v", f)
	}
}
