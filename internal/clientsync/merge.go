// Package clientsync keeps a client-side mirror of a client's requests. The
// mirror holds optimistic entries created locally until the server confirms
// them, and converges with authoritative fetches through Merge.
package clientsync

import (
	"github.com/google/uuid"

	"expertdesk/internal/request/models"
)

// Entry is one cached request. Pending marks an optimistic entry the server
// has not acknowledged yet.
type Entry struct {
	Request models.Request `json:"request"`
	Pending bool           `json:"pending"`
}

func (e Entry) ID() uuid.UUID {
	return e.Request.ID
}

// Merge combines an authoritative fetch with the local cache. Server versions
// replace local entries with the same id, pending local entries the server
// has not seen are kept, and every other local entry is dropped.
//
// The result lists server entries in server order followed by the surviving
// pending entries in local order.
func Merge(server []models.Request, local []Entry) []Entry {
	seen := make(map[uuid.UUID]struct{}, len(server))
	out := make([]Entry, 0, len(server)+len(local))
	for _, r := range server {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, Entry{Request: *r.Clone()})
	}
	for _, l := range local {
		if !l.Pending {
			continue
		}
		if _, ok := seen[l.ID()]; ok {
			continue
		}
		seen[l.ID()] = struct{}{}
		out = append(out, Entry{Request: *l.Request.Clone(), Pending: true})
	}
	return out
}
