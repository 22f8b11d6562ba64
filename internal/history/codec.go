package history

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpggio/inventory/internal/domain/summary"
)

// summaryVersion is written with every stored summary. Bump it when a field
// changes meaning; adding or removing fields does not need a bump.
const summaryVersion = 1

// ErrUnsupportedVersion is returned for summaries written by a newer release.
var ErrUnsupportedVersion = errors.New("unsupported summary version")

type envelope struct {
	Version int             `json:"v"`
	Summary json.RawMessage `json:"summary"`
}

func encodeSummary(s *summary.SystemSummary) ([]byte, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	blob, err := json.Marshal(envelope{Version: summaryVersion, Summary: body})
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary envelope: %w", err)
	}
	return blob, nil
}

// decodeSummary accepts both the versioned envelope and the bare summary
// object stored by earlier releases. Unknown fields are ignored and missing
// ones decode to their zero value.
func decodeSummary(blob []byte) (*summary.SystemSummary, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(blob, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}

	body := blob
	if _, ok := probe["v"]; ok {
		var env envelope
		if err := json.Unmarshal(blob, &env); err != nil {
			return nil, fmt.Errorf("failed to decode summary envelope: %w", err)
		}
		if env.Version < 1 || env.Version > summaryVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
		}
		if len(env.Summary) == 0 {
			return nil, errors.New("summary envelope has no body")
		}
		body = env.Summary
	}

	var s summary.SystemSummary
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	if s.UploadDetails == nil {
		s.UploadDetails = []summary.UploadSummary{}
	}
	return &s, nil
}
