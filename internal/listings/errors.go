package listings

import "errors"

var (
	ErrItemNotFound = errors.New("item not found")
	ErrNeedNotFound = errors.New("need not found")
	ErrNotOwner     = errors.New("user does not own this listing")
	ErrItemSold     = errors.New("item already sold")
	ErrInvalidPrice = errors.New("invalid price bounds")
	ErrInvalidMeta  = errors.New("invalid meta info")
	ErrEmptyTitle   = errors.New("title must not be empty")
)
