package model

// An Item represents a database record and the rendered API response.
//
// Item ids are assignable by the originating client so offline-created
// items need no server round-trip; they must be globally unique (UUID).
// Deleted is a wire-only intent flag used during synchronisation, items
// are hard-deleted server side (no tombstone).
type Item struct {
	Base `msgpack:",inline" storm:"inline"`

	ListID      string `json:"list_uuid"   msgpack:"list_id" storm:"index"`
	Name        string `json:"name"        msgpack:"name"`
	Description string `json:"description" msgpack:"description"`
	Count       int    `json:"count"       msgpack:"count"`
	CheckedOff  bool   `json:"checked_off" msgpack:"checked_off"`
	Deleted     bool   `json:"deleted"     msgpack:"-"`
}
