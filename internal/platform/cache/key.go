package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var (
	resourceTypePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)
	readableValue       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	readableParams      = map[string]struct{}{"id": {}, "fixture": {}, "team": {}}
)

// Key derives the storage key for a request. Requests identified by a single
// id-like parameter get a readable key; everything else is hashed. Keys are
// always namespaced by resource type.
func Key(resourceType string, params map[string]string) string {
	resourceType = normalizeResourceType(resourceType)

	if len(params) == 1 {
		for name, value := range params {
			if _, ok := readableParams[name]; ok && readableValue.MatchString(value) {
				return resourceType + "/" + name + "_" + value + ".json"
			}
		}
	}

	sum := sha256.Sum256([]byte(resourceType + "?" + CanonicalParams(params)))
	return resourceType + "/" + hex.EncodeToString(sum[:]) + ".json"
}

// CanonicalParams renders params as query-escaped k=v pairs sorted by key and
// joined with '&'.
func CanonicalParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[name]))
	}
	return b.String()
}

func normalizeResourceType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if resourceTypePattern.MatchString(value) {
		return value
	}
	sum := sha256.Sum256([]byte(value))
	return "resource_" + hex.EncodeToString(sum[:4])
}
