package cache

import (
	"fmt"
	"strings"
)

type KeyGenerator struct {
	Prefix string
}

// NewKeyGenerator creates a new key generator with the given prefix
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = "mocad"
	}
	return &KeyGenerator{Prefix: prefix}
}

// RegisterKey addresses one cached register array of one adapter.
func (kg *KeyGenerator) RegisterKey(host, endpoint string) string {
	return fmt.Sprintf("%s:reg:%s:%s", kg.Prefix, sanitizeHost(host), endpoint)
}

// HostPattern matches every cached key of one adapter.
func (kg *KeyGenerator) HostPattern(host string) string {
	return fmt.Sprintf("%s:reg:%s:*", kg.Prefix, sanitizeHost(host))
}

// sanitizeHost keeps IPv6 literals and ports from splitting the key.
func sanitizeHost(host string) string {
	return strings.NewReplacer(":", "_", "[", "", "]", "").Replace(strings.ToLower(host))
}
