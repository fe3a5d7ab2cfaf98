package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// HeaderName carries the session binding on requests and responses.
const HeaderName = "Storefront-Session"

// Header is the parsed Storefront-Session header.
// Format (RFC 8941 Dictionary): id="<uuid>", v="<client version>".
// Both members are optional; unknown members are ignored.
type Header struct {
	ID      string
	Version string
}

// ParseHeader parses a Storefront-Session value. An empty value yields an
// empty Header.
func ParseHeader(value string) (Header, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Header{}, nil
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{value})
	if err != nil {
		return Header{}, fmt.Errorf("invalid %s header: %w", HeaderName, err)
	}

	var h Header
	if h.ID, err = stringMember(dict, "id"); err != nil {
		return Header{}, err
	}
	if h.Version, err = stringMember(dict, "v"); err != nil {
		return Header{}, err
	}
	return h, nil
}

func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", errors.New(key + " value must be an item")
	}
	s, ok := item.Value.(string)
	if !ok {
		return "", errors.New(key + " value must be a string")
	}
	return s, nil
}

// FormatHeader serializes a Storefront-Session value.
func FormatHeader(h Header) (string, error) {
	dict := httpsfv.NewDictionary()
	if h.ID != "" {
		dict.Add("id", httpsfv.NewItem(h.ID))
	}
	if h.Version != "" {
		dict.Add("v", httpsfv.NewItem(h.Version))
	}
	return httpsfv.Marshal(dict)
}
