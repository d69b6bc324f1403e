package hooks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Module identifies the subsystem a hook or data object belongs to.
type Module int

const (
	Unknown Module = iota
	FileSystem
	Cache
	Accounts
	Messaging
	Vault
)

var moduleNames = map[Module]string{
	Unknown:    "UNKNOWN",
	FileSystem: "FILESYSTEM",
	Cache:      "CACHE",
	Accounts:   "ACCOUNTS",
	Messaging:  "MESSAGING",
	Vault:      "VAULT",
}

func (m Module) String() string {
	if name, ok := moduleNames[m]; ok {
		return name
	}
	return moduleNames[Unknown]
}

func ParseModule(raw string) (Module, error) {
	want := strings.ToUpper(strings.TrimSpace(raw))
	for m, name := range moduleNames {
		if name == want {
			return m, nil
		}
	}
	return Unknown, fmt.Errorf("unknown module %q", raw)
}

// DataObject is the envelope handed to hook subscribers.
type DataObject struct {
	ID        uuid.UUID       `json:"id"`
	Module    Module          `json:"module"`
	Version   int             `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func NewDataObject(module Module, payload any) (DataObject, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return DataObject{}, fmt.Errorf("encode payload: %w", err)
	}
	return DataObject{
		ID:        uuid.New(),
		Module:    module,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (d DataObject) Decode(v any) error {
	return json.Unmarshal(d.Payload, v)
}
