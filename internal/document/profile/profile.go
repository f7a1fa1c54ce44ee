// Package profile maps document types to the checks that verify them.
package profile

import (
	"slices"

	"docverify/internal/document/models"
)

var base = []models.CheckName{
	models.CheckEdges,
	models.CheckWatermarks,
	models.CheckTampering,
}

var profiles = map[models.DocumentType][]models.CheckName{
	models.DocumentPassport:       append(slices.Clone(base), models.CheckMRZ),
	models.DocumentIDCard:         append(slices.Clone(base), models.CheckHologram),
	models.DocumentDrivingLicense: append(slices.Clone(base), models.CheckSecurityFeatures),
	models.DocumentGeneric:        slices.Clone(base),
}

// Resolve returns the profile for a document type label together with its
// ordered checks. Unknown labels resolve to the generic profile. The slice
// is a copy and may be modified by the caller.
func Resolve(documentType string) (models.DocumentType, []models.CheckName) {
	key := models.DocumentType(documentType)
	checks, ok := profiles[key]
	if !ok {
		key = models.DocumentGeneric
		checks = profiles[key]
	}
	return key, slices.Clone(checks)
}

// Known reports whether documentType names a dedicated profile.
func Known(documentType string) bool {
	_, ok := profiles[models.DocumentType(documentType)]
	return ok
}
