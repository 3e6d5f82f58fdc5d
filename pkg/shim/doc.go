// Package shim is the runtime support imported by mirrored type definitions.
//
// Mirrored models embed BaseModel, which keeps any JSON members the Go
// struct does not declare:
//
//	type Completion struct {
//		shim.BaseModel
//		ID      string `json:"id"`
//		Created int64  `json:"created" alias:"created_at"`
//	}
//
//	var c Completion
//	err := shim.Decode(data, &c)
//
// Decode accepts every field by its JSON name or by its alias tag, and
// stores unknown members in BaseModel.Extra. Encode writes declared fields
// and extras back out. Models stay plain mutable structs.
package shim
