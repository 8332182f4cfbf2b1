package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// TenantOwner is the object-store owner string for a tenant's uploads.
func TenantOwner(tenantID int64) string {
	return "tenant:" + strconv.FormatInt(tenantID, 10)
}

// HashOwnerKey returns a filesystem-safe directory name for an owner string.
// Tenant IDs never appear in storage keys in the clear.
func HashOwnerKey(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return hex.EncodeToString(sum[:])
}
