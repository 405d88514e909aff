package domain

import "errors"

// Error taxonomy of the order workflow. Callers classify with errors.Is;
// the HTTP layer owns the mapping to status codes.
//
// The split between the validation-phase errors and the post-persistence
// errors matters: everything up to and including ErrInvalidOrder is raised
// before any write, while ErrStockUpdateFailed, ErrStockConflict and
// ErrProductGone are raised after the order row already exists and is NOT
// rolled back.
var (
	// ErrEmptyCart: the fetched cart has no lines.
	ErrEmptyCart = errors.New("order: cart is empty")
	// ErrCartUnreachable: the cart service could not be reached or errored.
	ErrCartUnreachable = errors.New("order: cart service unreachable")
	// ErrProductNotFound: a cart line references a product the catalog
	// does not know.
	ErrProductNotFound = errors.New("order: product not found")
	// ErrProductUnavailable: the product exists but is inactive or deleted.
	ErrProductUnavailable = errors.New("order: product not available")
	// ErrInsufficientStock: validation saw less stock than the cart requests.
	ErrInsufficientStock = errors.New("order: insufficient stock")
	// ErrCatalogUnreachable: the catalog service could not be reached
	// during validation.
	ErrCatalogUnreachable = errors.New("order: catalog service unreachable")
	// ErrInvalidOrder: the assembled order violates a local rule
	// (non-positive total).
	ErrInvalidOrder = errors.New("order: invalid order request")

	// ErrStorage: the order store failed. On creation this is the only
	// failure with no observable side effect.
	ErrStorage = errors.New("order: storage failure")

	// ErrStockUpdateFailed: a stock decrement failed after the order row
	// was persisted. Earlier decrements of the same order are not reversed.
	ErrStockUpdateFailed = errors.New("order: stock update failed")
	// ErrStockConflict: the catalog rejected a decrement that would drive
	// stock negative. Raised at the decrement step, i.e. after persistence.
	ErrStockConflict = errors.New("order: stock conflict on decrement")
	// ErrProductGone: the product vanished between validation and the
	// decrement call.
	ErrProductGone = errors.New("order: product gone before stock update")

	// ErrOrderNotFound: no order with the given id.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderUpdateFailed: the status overwrite could not be persisted.
	ErrOrderUpdateFailed = errors.New("order: status update failed")
	// ErrInvalidStatus: the supplied status string is not a member of the
	// enumeration.
	ErrInvalidStatus = errors.New("order: invalid status")
)
