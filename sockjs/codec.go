package sockjs

import (
	gojson "github.com/goccy/go-json"
	jsoniter "github.com/json-iterator/go"
)

// Library identifies one of the JSON codecs this package can use for
// frame payload encoding/decoding. Two third-party encoders are wired
// in. Nothing is probed at startup: JSONIter is the default, and Use
// switches the process to the other library without the caller having
// to hand this package a custom Marshal/Unmarshal pair.
type Library int

const (
	// JSONIter selects github.com/json-iterator/go, configured to be a
	// drop-in, compatible replacement for encoding/json. This is the
	// default.
	JSONIter Library = iota
	// GoJSON selects github.com/goccy/go-json.
	GoJSON
)

var jsoniterAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// marshalFunc/unmarshalFunc are process-wide globals, swapped wholesale
// by Use and never partially reconfigured per-call.
var (
	marshalFunc   = jsoniterAPI.Marshal
	unmarshalFunc = jsoniterAPI.Unmarshal
)

// Use switches the process-wide JSON codec used for frame payload
// encoding. It is safe to call once at startup, before any Endpoint
// starts serving traffic; it is not safe to call concurrently with
// in-flight encode/decode calls.
func Use(lib Library) {
	switch lib {
	case GoJSON:
		marshalFunc = gojson.Marshal
		unmarshalFunc = gojson.Unmarshal
	default:
		marshalFunc = jsoniterAPI.Marshal
		unmarshalFunc = jsoniterAPI.Unmarshal
	}
}

func jsonMarshal(v interface{}) ([]byte, error) {
	return marshalFunc(v)
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return unmarshalFunc(data, v)
}
