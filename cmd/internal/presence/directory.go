package presence

import (
	"log/slog"
	"sync"
)

// Directory is the authoritative mapping of online users to their active connection.
//
// Concurrency guarantees:
// - Register/Unregister/Lookup are atomic relative to each other.
// - A Lookup never observes a half-applied mutation.
// - At most one live connection per user: a later Register replaces the earlier one
//   (last-connection-wins), and Unregister removes an entry only when it still points
//   at the caller's connection, so a stale disconnect cannot evict a newer session.
type Directory struct {
	log *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Client
}

// NewDirectory constructs an empty Directory.
func NewDirectory(log *slog.Logger) *Directory {
	return &Directory{
		log:     log,
		entries: make(map[string]*Client),
	}
}

// Register inserts or replaces the entry for userID. It always succeeds.
// The superseded connection (if any) is not closed here; closing remains the
// owner's responsibility and its eventual Unregister will be a no-op.
func (d *Directory) Register(userID string, c *Client) {
	if d == nil || userID == "" || c == nil || c.ConnID == "" {
		return
	}

	d.mu.Lock()
	prev := d.entries[userID]
	d.entries[userID] = c
	n := len(d.entries)
	d.mu.Unlock()

	onlineUsers.Set(float64(n))

	if prev != nil && prev.ConnID != c.ConnID {
		d.log.Info("presence.register.supersede", "user_id", userID, "conn_id", c.ConnID, "prev_conn_id", prev.ConnID)
		return
	}
	d.log.Info("presence.register", "user_id", userID, "conn_id", c.ConnID)
}

// Unregister removes the entry for userID only if it still maps to connID.
// It reports whether an entry was removed. A mismatch means a newer connection
// has already replaced the entry; that is expected and silently ignored.
func (d *Directory) Unregister(userID, connID string) bool {
	if d == nil || userID == "" || connID == "" {
		return false
	}

	d.mu.Lock()
	cur, ok := d.entries[userID]
	if !ok || cur.ConnID != connID {
		d.mu.Unlock()
		return false
	}
	delete(d.entries, userID)
	n := len(d.entries)
	d.mu.Unlock()

	onlineUsers.Set(float64(n))

	d.log.Info("presence.unregister", "user_id", userID, "conn_id", connID)
	return true
}

// Lookup returns the current connection id for a user, or ok=false when absent.
func (d *Directory) Lookup(userID string) (string, bool) {
	if d == nil || userID == "" {
		return "", false
	}

	d.mu.RLock()
	c, ok := d.entries[userID]
	d.mu.RUnlock()

	if !ok {
		return "", false
	}
	return c.ConnID, true
}

// client returns the live client handle for a user. Used by the Relay.
func (d *Directory) client(userID string) *Client {
	if d == nil || userID == "" {
		return nil
	}

	d.mu.RLock()
	c := d.entries[userID]
	d.mu.RUnlock()
	return c
}

// Len returns the number of online users.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}

	d.mu.RLock()
	n := len(d.entries)
	d.mu.RUnlock()
	return n
}
