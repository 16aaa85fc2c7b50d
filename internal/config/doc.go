// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the worker configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML file given with
// -config (strict, unknown keys are rejected), VWW_* environment variables.
// The merged result is validated before it is returned.
package config
