// SPDX-License-Identifier: MIT

// Package settings loads the processor settings file and re-applies it to the
// processor host whenever it changes on disk.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ManuGH/vwworker/internal/processor"
	"gopkg.in/yaml.v3"
)

// Load parses path strictly. Unknown keys are an error.
func Load(path string) (processor.Settings, error) {
	// #nosec G304 -- settings path is provided by the operator via config
	data, err := os.ReadFile(path)
	if err != nil {
		return processor.Settings{}, err
	}
	return Parse(data)
}

// Parse decodes a settings document.
func Parse(data []byte) (processor.Settings, error) {
	var s processor.Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return processor.Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return processor.Settings{}, err
	}
	return s, nil
}
