package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex rule_01HZX3N9Q2M5K8ZJ9V1C7T4B6E
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_COMPANY      = "comp"
	UUID_PREFIX_TAX_FORM     = "taxform"
	UUID_PREFIX_TAX_RULE     = "rule"
	UUID_PREFIX_TAX_SETTINGS = "taxset"
	UUID_PREFIX_SYNC_STATE   = "sync"
	UUID_PREFIX_CONFLICT     = "conflict"
	UUID_PREFIX_AUDIT_EVENT  = "audit"
	UUID_PREFIX_CALCULATION  = "calc"
)
