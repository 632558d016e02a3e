package ai

import (
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	levelUnspecified = "unspecified"
	fence            = "```"
)

// Reply is one decoded LLM answer. It is either structured (Fallback false,
// Data holds the decoded object) or a raw fallback (Fallback true, Data holds
// the fallback object built around Raw). Value is populated in both cases so
// rendering never has to branch on missing keys.
type Reply[T any] struct {
	Value    T
	Data     map[string]any
	Raw      string
	Fallback bool
}

// MarshalJSON emits the decoded object, or the fallback object for raw replies.
func (r Reply[T]) MarshalJSON() ([]byte, error) {
	if r.Data == nil {
		return json.Marshal(r.Value)
	}
	return json.Marshal(r.Data)
}

// Fallback payloads for replies that are not valid JSON.

func ProfileFallback(raw string) map[string]any {
	return map[string]any{"raw_response": raw}
}

func JobFallback(raw string) map[string]any {
	return map[string]any{"raw": raw, "required_skills": []any{}, "level": levelUnspecified}
}

func MatchFallback(raw string) map[string]any {
	return map[string]any{"raw_response": raw, "job_fit_score": 0.0, "overall_score": 0.0}
}

// Decode parses raw as a JSON object, optionally wrapped in a code fence, and
// maps it onto T. It never fails: undecodable text yields the fallback built
// by fallback(raw), and fields of the wrong shape are left at their zero value.
func Decode[T any](raw string, fallback func(string) map[string]any) Reply[T] {
	reply := Reply[T]{Raw: raw}

	data, ok := parseObject(strings.TrimSpace(raw))
	if !ok {
		// A fence is only looked for when the reply is not bare JSON, since
		// string values may quote fenced code themselves.
		data, ok = parseObject(StripFence(raw))
	}
	if !ok {
		reply.Fallback = true
		data = fallback(raw)
	}

	reply.Data = data
	decodeLenient(data, &reply.Value)

	return reply
}

func parseObject(text string) (map[string]any, bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil || data == nil {
		return nil, false
	}
	return data, true
}

// StripFence returns the text between the first opening fence and the last
// closing fence in raw, with or without a language tag. Fences quoted inside
// the block are kept. Text without a fence is returned trimmed.
func StripFence(raw string) string {
	start := strings.Index(raw, fence)
	if start == -1 {
		return strings.TrimSpace(raw)
	}

	body := raw[start+len(fence):]
	// Drop a language tag such as "json" on the opening line.
	if nl := strings.IndexByte(body, '\n'); nl != -1 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}

	if end := strings.LastIndex(body, fence); end != -1 {
		body = body[:end]
	}

	return strings.TrimSpace(body)
}

func decodeLenient(data map[string]any, out any) {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return
	}
	// Partial results are kept; mismatched fields stay zero.
	_ = dec.Decode(data)
}
