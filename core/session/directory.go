package session

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClientInfo describes an announced connection.
type ClientInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Directory tracks announced clients. Safe for concurrent use.
type Directory struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]ClientInfo
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{clients: make(map[uuid.UUID]ClientInfo)}
}

// Add records info, replacing any entry with the same ID.
func (d *Directory) Add(info ClientInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[info.ID] = info
}

// Remove forgets the client with id.
func (d *Directory) Remove(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.clients, id)
}

// Len returns the number of tracked clients.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.clients)
}

// Names returns the announced names, sorted. Duplicates are kept.
func (d *Directory) Names() []string {
	d.mu.RLock()
	names := make([]string, 0, len(d.clients))
	for _, c := range d.clients {
		names = append(names, c.Name)
	}
	d.mu.RUnlock()

	slices.Sort(names)
	return names
}

// List returns a snapshot ordered by connection time.
func (d *Directory) List() []ClientInfo {
	d.mu.RLock()
	out := make([]ClientInfo, 0, len(d.clients))
	for _, c := range d.clients {
		out = append(out, c)
	}
	d.mu.RUnlock()

	slices.SortFunc(out, func(a, b ClientInfo) int {
		if c := a.ConnectedAt.Compare(b.ConnectedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
