package purchase

import "errors"

var (
	// ErrItemNotFound: the referenced item does not exist.
	ErrItemNotFound = errors.New("item not found")
	// ErrPurchaseNotFound: no negotiation exists for the triple.
	ErrPurchaseNotFound = errors.New("purchase not found")
	// ErrItemSold: the item was already sold; raising is blocked.
	ErrItemSold = errors.New("item already sold")
	// ErrSellerMismatch: the named seller does not own the item.
	ErrSellerMismatch = errors.New("seller does not match the item")
	// ErrSameParty: seller and buyer are the same user.
	ErrSameParty = errors.New("seller and buyer cannot be the same")
	// ErrNotParty: the acting user is neither the seller nor the buyer.
	ErrNotParty = errors.New("user is not a party to this purchase")
	// ErrNotRaiser: re-raising is reserved for the current raiser.
	ErrNotRaiser = errors.New("only the current raiser may update the purchase")
	// ErrNotSeller: only the seller may confirm or decline.
	ErrNotSeller = errors.New("only the seller may respond to a purchase")
	// ErrNothingToCheck: the raiser polled before any decision was made.
	ErrNothingToCheck = errors.New("nothing to check yet")
	// ErrNoNewData: the caller already consumed this state; the returned
	// snapshot is stale from their point of view.
	ErrNoNewData = errors.New("no new purchase data")
	// ErrAlreadyDecided: the negotiation reached a terminal result.
	ErrAlreadyDecided = errors.New("purchase already decided")
	// ErrInvalidPrice: price is negative or beyond the allowed maximum.
	ErrInvalidPrice = errors.New("invalid price")
)
