package llm

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var localhostPort = regexp.MustCompile(`localhost:\d+`)

// Fingerprint content-addresses a conversation: the SHA-1 of its
// canonical JSON serialization with every "localhost:<digits>"
// substring normalized to "localhost:PORT", so ephemeral test ports do
// not invalidate recorded entries.
func Fingerprint(conv *Conversation) (string, error) {
	raw, err := json.Marshal(conv)
	if err != nil {
		return "", err
	}
	normalized := localhostPort.ReplaceAll(raw, []byte("localhost:PORT"))
	sum := sha1.Sum(normalized)
	return hex.EncodeToString(sum[:]), nil
}

// ReplayCache is a content-addressed mapping from conversation
// fingerprint to recorded assistant message. Serialization preserves
// insertion order so recorded files diff cleanly across runs.
type ReplayCache struct {
	entries *orderedmap.OrderedMap[string, Message]
}

// NewReplayCache creates an empty ReplayCache.
func NewReplayCache() *ReplayCache {
	return &ReplayCache{entries: orderedmap.New[string, Message]()}
}

// Get returns the recorded message for a fingerprint.
func (c *ReplayCache) Get(key string) (Message, bool) {
	if c == nil || c.entries == nil {
		return Message{}, false
	}
	return c.entries.Get(key)
}

// Set records a message under a fingerprint.
func (c *ReplayCache) Set(key string, msg Message) {
	if c.entries == nil {
		c.entries = orderedmap.New[string, Message]()
	}
	c.entries.Set(key, msg)
}

// Len returns the number of recorded entries.
func (c *ReplayCache) Len() int {
	if c == nil || c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// MarshalJSON serializes entries in insertion order.
func (c *ReplayCache) MarshalJSON() ([]byte, error) {
	if c.entries == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.entries)
}

// UnmarshalJSON restores entries preserving the file's key order.
func (c *ReplayCache) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, Message]()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	c.entries = m
	return nil
}

// Serialize pretty-prints the cache with two-space indentation, the
// on-disk replay file format.
func (c *ReplayCache) Serialize() ([]byte, error) {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

// LoadReplayFile reads a replay cache file. A missing or unparseable
// file yields an empty cache.
func LoadReplayFile(path string) *ReplayCache {
	cache := NewReplayCache()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cache
	}
	if err := json.Unmarshal(raw, cache); err != nil {
		return NewReplayCache()
	}
	return cache
}

// SaveReplayFile writes the cache to path, but only when the serialized
// form differs from the file's current contents.
func SaveReplayFile(path string, cache *ReplayCache) error {
	data, err := cache.Serialize()
	if err != nil {
		return err
	}
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == string(data) {
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write replay file: %w", err)
	}
	return nil
}
