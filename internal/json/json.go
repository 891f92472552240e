// Package json routes every encode/decode in the portal through jsoniter.
package json

import jsoniter "github.com/json-iterator/go"

var (
	JSON = jsoniter.ConfigCompatibleWithStandardLibrary

	Marshal    = JSON.Marshal
	Unmarshal  = JSON.Unmarshal
	NewDecoder = JSON.NewDecoder
	NewEncoder = JSON.NewEncoder
)
