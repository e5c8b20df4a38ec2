package core

import (
	"cmp"
	"slices"
)

// Registry maps active connections to client records. It keeps a secondary
// index by client id so that reconnects and targeted delivery never scan.
//
// Registry is not safe for concurrent use; the hub loop owns it.
type Registry struct {
	byConn   map[Conn]*ClientRecord
	byClient map[string][]*ClientRecord // registration order, at most one per room
	byRoom   map[string]map[Conn]*ClientRecord
	seq      uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn:   make(map[Conn]*ClientRecord),
		byClient: make(map[string][]*ClientRecord),
		byRoom:   make(map[string]map[Conn]*ClientRecord),
	}
}

// Register inserts a record for conn. If clientID already holds a connection
// in roomID, that record is detached first and returned as evicted; the
// evicted connection is not closed.
func (r *Registry) Register(conn Conn, clientID, roomID string) (rec, evicted *ClientRecord) {
	for _, existing := range r.byClient[clientID] {
		if existing.RoomID == roomID {
			evicted = existing
			break
		}
	}
	if evicted != nil {
		r.detach(evicted)
	}
	if prior, ok := r.byConn[conn]; ok {
		r.detach(prior)
	}

	r.seq++
	rec = &ClientRecord{ClientID: clientID, RoomID: roomID, Conn: conn, seq: r.seq}
	r.byConn[conn] = rec
	r.byClient[clientID] = append(r.byClient[clientID], rec)

	members := r.byRoom[roomID]
	if members == nil {
		members = make(map[Conn]*ClientRecord)
		r.byRoom[roomID] = members
	}
	members[conn] = rec

	return rec, evicted
}

// Lookup returns the record registered for conn.
func (r *Registry) Lookup(conn Conn) (*ClientRecord, bool) {
	rec, ok := r.byConn[conn]
	return rec, ok
}

// LookupByClientID returns the most recently registered connection for clientID.
func (r *Registry) LookupByClientID(clientID string) (Conn, bool) {
	recs := r.byClient[clientID]
	if len(recs) == 0 {
		return nil, false
	}
	return recs[len(recs)-1].Conn, true
}

// Remove deletes conn from every index and returns the removed record.
func (r *Registry) Remove(conn Conn) (*ClientRecord, bool) {
	rec, ok := r.byConn[conn]
	if !ok {
		return nil, false
	}
	r.detach(rec)
	return rec, true
}

// Members returns the records currently registered in roomID, oldest first.
func (r *Registry) Members(roomID string) []*ClientRecord {
	members := r.byRoom[roomID]
	out := make([]*ClientRecord, 0, len(members))
	for _, rec := range members {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *ClientRecord) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

// Records returns every registered record.
func (r *Registry) Records() []*ClientRecord {
	out := make([]*ClientRecord, 0, len(r.byConn))
	for _, rec := range r.byConn {
		out = append(out, rec)
	}
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.byConn)
}

func (r *Registry) detach(rec *ClientRecord) {
	delete(r.byConn, rec.Conn)

	recs := r.byClient[rec.ClientID]
	for i, existing := range recs {
		if existing == rec {
			recs = append(recs[:i:i], recs[i+1:]...)
			break
		}
	}
	if len(recs) == 0 {
		delete(r.byClient, rec.ClientID)
	} else {
		r.byClient[rec.ClientID] = recs
	}

	if members := r.byRoom[rec.RoomID]; members != nil {
		delete(members, rec.Conn)
		if len(members) == 0 {
			delete(r.byRoom, rec.RoomID)
		}
	}
}
