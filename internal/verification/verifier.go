// Package verification proves at submission time that read-only prefilled
// answers were not tampered with, by recomputing one-way hashes and comparing
// them against the record saved at prefill.
package verification

import (
	"log/slog"
	"time"

	"formgate/internal/form"
	"formgate/internal/hashstore"
	"formgate/internal/identity/attr"
	"formgate/internal/submission"
	dErrors "formgate/pkg/domain-errors"
)

// acceptedDateLayouts are the client date renderings normalized before
// hashing. Prefill hashes are always computed over the ISO form.
var acceptedDateLayouts = []string{
	"2006-01-02",
	"2 Jan 2006",
	"02 Jan 2006",
}

// normalizeAnswer canonicalizes the submitted answer so formatting drift
// does not read as tampering. Only date answers need it today.
func normalizeAnswer(fieldType form.FieldType, answer string) string {
	if fieldType != form.TypeDate {
		return answer
	}
	for _, layout := range acceptedDateLayouts {
		if parsed, err := time.Parse(layout, answer); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return answer
}

// Verify compares every visible, identity-tagged response that has a stored
// hash. It returns exactly the set of field ids checked. Any single mismatch
// fails the whole submission; the failing field ids are logged, the answers
// never are.
func Verify(responses []submission.ProcessedResponse, hashes map[attr.Internal]string, logger *slog.Logger) (map[string]struct{}, error) {
	if logger == nil {
		logger = slog.Default()
	}

	verified := make(map[string]struct{})
	var mismatched []string
	for _, r := range responses {
		if !r.IsVisible || r.Attribute == "" {
			continue
		}
		hash, ok := hashes[r.Attribute]
		if !ok {
			continue
		}

		matched, err := hashstore.CompareHash(hash, normalizeAnswer(r.FieldType, r.Answer))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeHashingFailed, "hash comparison failed")
		}
		if !matched {
			mismatched = append(mismatched, r.FieldID)
			continue
		}
		verified[r.FieldID] = struct{}{}
	}

	if len(mismatched) > 0 {
		logger.Error("submitted values diverge from verified prefill",
			"fieldIds", mismatched)
		return nil, dErrors.New(dErrors.CodeHashMismatch, "submitted values do not match verified prefill")
	}
	return verified, nil
}
