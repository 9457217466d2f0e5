// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedDescriptor is returned when a metadata document cannot be used.
var ErrMalformedDescriptor = errors.New("media: malformed descriptor")

// maxDescriptorBytes bounds how much of a metadata response is read.
const maxDescriptorBytes = 4 << 20

// DecodeDescriptor reads a metadata document. The playback_modes key must be
// present; an explicitly empty list is valid and means "unplayable".
func DecodeDescriptor(r io.Reader) (Descriptor, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxDescriptorBytes+1))
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: read: %v", ErrMalformedDescriptor, err)
	}
	if len(raw) > maxDescriptorBytes {
		return Descriptor{}, fmt.Errorf("%w: document exceeds %d bytes", ErrMalformedDescriptor, maxDescriptorBytes)
	}

	var probe struct {
		PlaybackModes json.RawMessage `json:"playback_modes"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}
	if len(probe.PlaybackModes) == 0 || string(probe.PlaybackModes) == "null" {
		return Descriptor{}, fmt.Errorf("%w: missing playback_modes", ErrMalformedDescriptor)
	}

	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}
	return d, nil
}
