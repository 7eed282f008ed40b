// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package notifier

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/deskatlas/internal/models"
)

// MarshalDelta encodes a presence delta for the wire.
func MarshalDelta(delta models.PresenceDelta) ([]byte, error) {
	if delta.DepartmentID == "" {
		return nil, fmt.Errorf("delta missing department_id")
	}
	if delta.DeskID == "" {
		return nil, fmt.Errorf("delta missing desk_id")
	}
	if !delta.State.Valid() {
		return nil, fmt.Errorf("delta has invalid status %q", delta.State)
	}

	data, err := json.Marshal(delta)
	if err != nil {
		return nil, fmt.Errorf("marshal delta: %w", err)
	}
	return data, nil
}

// UnmarshalDelta decodes a wire payload back into a presence delta.
func UnmarshalDelta(data []byte) (models.PresenceDelta, error) {
	var delta models.PresenceDelta
	if err := json.Unmarshal(data, &delta); err != nil {
		return models.PresenceDelta{}, fmt.Errorf("unmarshal delta: %w", err)
	}
	if !delta.State.Valid() {
		return models.PresenceDelta{}, fmt.Errorf("delta has invalid status %q", delta.State)
	}
	return delta, nil
}
