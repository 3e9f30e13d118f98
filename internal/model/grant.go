package model

// A Grant records that a non-owner may read/write a list.
// At most one grant exists per (list, user) pair.
type Grant struct {
	Base `msgpack:",inline" storm:"inline"`

	ListID string `json:"list_uuid" msgpack:"list_id" storm:"index"`
	UserID string `json:"user_uuid" msgpack:"user_id" storm:"index"`
}
