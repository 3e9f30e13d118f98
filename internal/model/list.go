package model

// A List is a shareable, owned container of items.
// UpdatedAt acts as the list's modification clock: it advances whenever
// the list itself or any of its items changes, and never goes backward.
type List struct {
	Base `msgpack:",inline" storm:"inline"`

	OwnerID    string `json:"owner_uuid"  msgpack:"owner_id"   storm:"index"`
	Name       string `json:"name"        msgpack:"name"`
	ShareCode  string `json:"share_code"  msgpack:"share_code" storm:"unique"`
	CoverImage string `json:"cover_image" msgpack:"cover_image"`
}
