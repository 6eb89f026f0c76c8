// Package meta holds the small string map attached to notifications for
// presentation hints. Keys and values are bounded so a scan cannot bloat rows.
package meta

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// Metadata is a bounded string map with stable JSON encoding.
type Metadata map[string]string

const (
	MaxPairs     = 8
	MaxKeyLen    = 32
	MaxValLen    = 128
	MaxTotalJSON = 1024
)

// Well-known keys.
const (
	KeyIcon      = "icon"
	KeyIconClass = "icon_class"
	KeySeverity  = "severity"
)

func New(m map[string]string) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Presentation builds the icon hints for a notification.
func Presentation(icon, class, severity string) Metadata {
	m := Metadata{}
	m.Set(KeyIcon, icon)
	m.Set(KeyIconClass, class)
	if severity != "" {
		m.Set(KeySeverity, severity)
	}
	return m
}

func (m Metadata) Clone() Metadata { return New(m) }

func (m Metadata) Get(k string) (string, bool) { v, ok := m[k]; return v, ok }

// Set silently ignores pairs outside the limits; Validate reports them.
func (m Metadata) Set(k, v string) {
	if len(m) >= MaxPairs { return }
	if len(k) == 0 || len(k) > MaxKeyLen { return }
	if len(v) > MaxValLen { return }
	m[k] = v
}

func (m Metadata) Validate() error {
	if len(m) > MaxPairs { return errors.New("metadata too many pairs") }
	for k, v := range m {
		if len(k) == 0 || len(k) > MaxKeyLen { return errors.New("metadata key too long or empty") }
		if len(v) > MaxValLen { return errors.New("metadata value too long") }
	}
	b, err := m.MarshalStableJSON()
	if err != nil { return err }
	if len(b) > MaxTotalJSON { return errors.New("metadata exceeds max json size") }
	return nil
}

// MarshalStableJSON returns a deterministic JSON object with sorted keys.
func (m Metadata) MarshalStableJSON() ([]byte, error) {
	if len(m) == 0 { return []byte("{}"), nil }
	keys := make([]string, 0, len(m))
	for k := range m { keys = append(keys, k) }
	sort.Strings(keys)
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range keys {
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		if i < len(keys)-1 { buf.WriteByte(',') }
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m Metadata) MarshalJSON() ([]byte, error) { return m.MarshalStableJSON() }

func (m *Metadata) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) { *m = Metadata{}; return nil }
	var tmp map[string]string
	if err := json.Unmarshal(b, &tmp); err != nil { return err }
	*m = New(tmp)
	return nil
}
