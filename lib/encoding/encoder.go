// Package encoding provides the wire codecs used to exchange submission
// results between the server handler and structured clients.
//
// Two codecs ship with the package:
//   - JSON: application/json, the default and the format browsers consume
//   - Msgpack: application/msgpack, a compact binary alternative
//
// Both codecs honor `json` struct tags so a single result type serves
// either wire format.
package encoding

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Media types understood by the built-in codecs.
const (
	MediaTypeJSON          = "application/json"
	MediaTypeMsgpack       = "application/msgpack"
	MediaTypeMsgpackLegacy = "application/x-msgpack"
)

// ErrUnknownMediaType is returned when no codec matches a content type.
var ErrUnknownMediaType = errors.New("encoding: unknown media type")

// Codec marshals and unmarshals values for one media type.
type Codec interface {
	// ContentType is the value written to the Content-Type header.
	ContentType() string
	// Accepts reports whether the codec handles the given media type
	// (already lowercased, without parameters).
	Accepts(mediaType string) bool
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the application/json codec.
var JSON Codec = jsonCodec{}

// Msgpack is the application/msgpack codec.
var Msgpack Codec = msgpackCodec{}

// Default lists the codecs used when none are configured, in preference order.
func Default() []Codec {
	return []Codec{JSON, Msgpack}
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return MediaTypeJSON }

func (jsonCodec) Accepts(mediaType string) bool {
	return mediaType == MediaTypeJSON
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string { return MediaTypeMsgpack }

func (msgpackCodec) Accepts(mediaType string) bool {
	return mediaType == MediaTypeMsgpack || mediaType == MediaTypeMsgpackLegacy
}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

type mediaRange struct {
	mediaType string
	q         float64
}

// parseAccept splits an Accept header into media ranges ordered by
// quality, preserving header order for equal weights. Ranges with q=0
// are dropped.
func parseAccept(accept string) []mediaRange {
	var ranges []mediaRange
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mt, params, err := mime.ParseMediaType(part)
		if err != nil {
			continue
		}
		q := 1.0
		if raw, ok := params["q"]; ok {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			q = v
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, mediaRange{mediaType: mt, q: q})
	}
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].q > ranges[j].q
	})
	return ranges
}

// Negotiate picks the codec for an Accept header value.
//
// Only explicit media types select a codec: wildcards such as */* or
// application/* never do, so a browser navigation that accepts anything
// still gets the HTML render path. When codecs is empty, Default is used.
func Negotiate(accept string, codecs ...Codec) (Codec, bool) {
	if accept == "" {
		return nil, false
	}
	if len(codecs) == 0 {
		codecs = Default()
	}
	for _, mr := range parseAccept(accept) {
		if strings.Contains(mr.mediaType, "*") {
			continue
		}
		for _, c := range codecs {
			if c.Accepts(mr.mediaType) {
				return c, true
			}
		}
	}
	return nil, false
}

// ForContentType returns the codec for a Content-Type header value.
func ForContentType(contentType string, codecs ...Codec) (Codec, error) {
	if len(codecs) == 0 {
		codecs = Default()
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, errors.Join(ErrUnknownMediaType, err)
	}
	for _, c := range codecs {
		if c.Accepts(mt) {
			return c, nil
		}
	}
	return nil, ErrUnknownMediaType
}
