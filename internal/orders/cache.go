package orders

import (
	"context"
	"time"
)

// CachedStatus is what status polls need to answer without touching the store.
type CachedStatus struct {
	OrderID   int64     `json:"order_id"`
	UserID    int64     `json:"user_id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache mirrors the committed status of orders for cheap polling. It is
// written only after the owning transaction committed and is never a source
// of truth.
type StatusCache interface {
	PutStatus(ctx context.Context, s CachedStatus) error
	GetStatus(ctx context.Context, orderID int64) (CachedStatus, bool, error)
}

type NopStatusCache struct{}

func (NopStatusCache) PutStatus(context.Context, CachedStatus) error { return nil }

func (NopStatusCache) GetStatus(context.Context, int64) (CachedStatus, bool, error) {
	return CachedStatus{}, false, nil
}

func (o Order) CachedStatus() CachedStatus {
	return CachedStatus{OrderID: o.ID, UserID: o.UserID, Status: o.Status, UpdatedAt: o.UpdatedAt}
}
