package visibility

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
)

// EnsureStoreVisible gates the public company storefront. Disabled stores are
// reported as missing so identifiers cannot be probed.
func EnsureStoreVisible(company *models.Company) error {
	if company == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if !company.Settings.StoreEnabled {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return nil
}

// EnsureProductSelectable checks that a product can be picked by a recipient of
// a campaign owned by companyID: it must exist, be live, and belong to the
// company or the platform catalog.
func EnsureProductSelectable(product *models.Product, companyID uuid.UUID) error {
	if product == nil {
		return pkgerrors.Validation("product_id", "product is not available")
	}
	if product.IsDeleted() {
		return pkgerrors.Validation("product_id", "product is no longer available")
	}
	if product.CompanyID != nil && *product.CompanyID != companyID {
		return pkgerrors.Validation("product_id", "product is not available")
	}
	return nil
}

// IsOwnedOrGlobal reports whether a product is in scope for companyID.
func IsOwnedOrGlobal(product models.Product, companyID uuid.UUID) bool {
	return product.CompanyID == nil || *product.CompanyID == companyID
}
