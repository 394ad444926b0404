package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// CollectionKey derives the key of a collection view from its route path:
// "/api/subjects" → "subjects", "/api/admin/charts" → "charts".
func CollectionKey(routePath string) string {
	p := strings.Trim(routePath, "/")
	p = strings.TrimPrefix(p, "api/")
	p = strings.TrimPrefix(p, "admin/")
	return strings.ReplaceAll(p, "/", ":")
}

// EntityKey is the key of a single entity view, e.g. "subject_3".
func EntityKey(entity string, id int64) string {
	return fmt.Sprintf("%s_%d", entity, id)
}

// UserKey namespaces a per-user view under "user_<id>:" so that purging
// "user_<id>:*" drops every view derived from that user's data.
func UserKey(name string, userID int64) string {
	return fmt.Sprintf("user_%d:%s_%d", userID, name, userID)
}

// UserNamespace is the glob matching every UserKey of userID.
func UserNamespace(userID int64) string {
	return fmt.Sprintf("user_%d:*", userID)
}

// RoleKey is the key of a view whose content depends on the caller's role.
func RoleKey(name, role string) string {
	return name + "_" + role
}

// SearchKey hashes the normalized search payload. Terms differing only in
// case or surrounding space share an entry.
func SearchKey(term string) string {
	payload, _ := json.Marshal(struct {
		Query string `json:"query"`
	}{Query: strings.ToLower(strings.TrimSpace(term))})
	sum := sha256.Sum256(payload)
	return "search_" + hex.EncodeToString(sum[:16])
}
