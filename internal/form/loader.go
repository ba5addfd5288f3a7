package form

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// formDoc is the on-disk form fixture. The cookie lifetime is stored in
// milliseconds to match the form document's own representation.
type formDoc struct {
	Form
	CookieDurationMs int64 `json:"cookieDurationMs"`
}

// LoadFile reads a JSON array of form fixtures. It exists for local
// development and tests; in production the form documents are served by the
// surrounding product.
func LoadFile(path string) ([]*Form, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read forms file: %w", err)
	}

	var docs []formDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode forms file: %w", err)
	}

	forms := make([]*Form, 0, len(docs))
	for i := range docs {
		f := docs[i].Form
		f.SessionTTL = time.Duration(docs[i].CookieDurationMs) * time.Millisecond
		if f.ID == "" {
			return nil, fmt.Errorf("forms file entry %d has no id", i)
		}
		forms = append(forms, &f)
	}
	return forms, nil
}
