package model

// A User represents a database record.
type User struct {
	Base `msgpack:",inline" storm:"inline"`

	Email    string `json:"email" msgpack:"email" storm:"unique"`
	Password string `json:"-"     msgpack:"password"`
}
