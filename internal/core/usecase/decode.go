package usecase

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/aituberdev/answerd/internal/core/domain"
)

// decodeModelJSON decodes an LLM reply into out. Lenient about the usual
// model sloppiness (markdown fences, trailing commas, surrounding prose) but
// strict about the declared shape: a reply that cannot be coerced into out is
// ErrMalformedModelOutput.
func decodeModelJSON(raw string, out any) error {
	body := extractJSONObject(strings.TrimSpace(raw))
	if body == "" {
		return domain.WrapError(domain.ErrMalformedModelOutput, "decode model json", errEmptyReply)
	}
	if err := json.Unmarshal([]byte(body), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(body)
	if err != nil {
		return domain.WrapError(domain.ErrMalformedModelOutput, "repair model json", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return domain.WrapError(domain.ErrMalformedModelOutput, "decode repaired model json", err)
	}
	return nil
}

var errEmptyReply = errEmpty{}

type errEmpty struct{}

func (errEmpty) Error() string { return "empty reply" }

// extractJSONObject cuts the outermost {...} out of a reply that wraps its
// JSON in prose or code fences.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// flexInt tolerates models returning numbers as strings ("3" for 3).
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		return domain.WrapError(domain.ErrMalformedModelOutput, "decode index", errEmptyReply)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Accept "3.0" style floats the way a human reviewer would.
		v, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return domain.WrapError(domain.ErrMalformedModelOutput, "decode index", err)
		}
		n = int(v)
	}
	*f = flexInt(n)
	return nil
}
