package sessionstore

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Identity is the durable anonymous id of this device. It is created lazily
// on first use and never regenerated while the backing file exists.
type Identity struct {
	path string

	mu sync.Mutex
	id string
}

// NewIdentity manages an identity persisted at path.
func NewIdentity(path string) *Identity {
	return &Identity{path: path}
}

// Load returns the persisted id, creating and storing a fresh one the first
// time it is called.
func (i *Identity) Load() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.id != "" {
		return i.id, nil
	}

	data, err := os.ReadFile(i.path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			i.id = id
			return i.id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read identity file %s: %w", i.path, err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(i.path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to persist identity file %s: %w", i.path, err)
	}
	i.id = id
	return i.id, nil
}
