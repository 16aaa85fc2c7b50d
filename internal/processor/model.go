// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package processor

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Model is the state the host trains. Implementations need not be safe for
// concurrent use; the host serializes access.
type Model interface {
	Apply(ev Event)
	Snapshot() ([]byte, error)
	Restore(data []byte) error
	Clear()
	Configure(args map[string]float64) error
}

// KeyStat is the running estimate for one key.
type KeyStat struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
}

// MeanModel keeps a per-key running mean. With alpha 0 it is the exact
// cumulative mean, otherwise an exponentially weighted one.
type MeanModel struct {
	alpha float64
	keys  map[string]*KeyStat
}

// NewMeanModel returns an empty model.
func NewMeanModel() *MeanModel {
	return &MeanModel{keys: make(map[string]*KeyStat)}
}

func (m *MeanModel) Apply(ev Event) {
	key := ev.Key
	if key == "" {
		key = ev.Kind
	}
	st, ok := m.keys[key]
	if !ok {
		st = &KeyStat{}
		m.keys[key] = st
	}
	st.Count++
	weight := m.alpha
	if weight == 0 {
		weight = 1 / float64(st.Count)
	}
	st.Mean += weight * (ev.Value - st.Mean)
}

// Stat returns the estimate for key.
func (m *MeanModel) Stat(key string) (KeyStat, bool) {
	st, ok := m.keys[key]
	if !ok {
		return KeyStat{}, false
	}
	return *st, true
}

// Keys returns the known keys in sorted order.
func (m *MeanModel) Keys() []string {
	out := make([]string, 0, len(m.keys))
	for k := range m.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type meanSnapshot struct {
	Alpha float64             `json:"alpha"`
	Keys  map[string]*KeyStat `json:"keys"`
}

func (m *MeanModel) Snapshot() ([]byte, error) {
	return json.Marshal(meanSnapshot{Alpha: m.alpha, Keys: m.keys})
}

func (m *MeanModel) Restore(data []byte) error {
	if len(data) == 0 {
		m.Clear()
		return nil
	}
	var snap meanSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode model snapshot: %w", err)
	}
	if snap.Keys == nil {
		snap.Keys = make(map[string]*KeyStat)
	}
	m.alpha = snap.Alpha
	m.keys = snap.Keys
	return nil
}

func (m *MeanModel) Clear() {
	m.keys = make(map[string]*KeyStat)
}

// Configure accepts "alpha" in [0, 1].
func (m *MeanModel) Configure(args map[string]float64) error {
	for k, v := range args {
		switch k {
		case "alpha":
			if v < 0 || v > 1 {
				return fmt.Errorf("%w: alpha %g outside [0, 1]", ErrInvalidSettings, v)
			}
		default:
			return fmt.Errorf("%w: unknown model argument %q", ErrInvalidSettings, k)
		}
	}
	if v, ok := args["alpha"]; ok {
		m.alpha = v
	}
	return nil
}
