package publisher

import (
	"context"
	"errors"

	audit "docverify/pkg/platform/audit"
)

// Fanout appends every event to each store. Reads go to the first store
// that supports them.
type Fanout []audit.Store

func (f Fanout) Append(ctx context.Context, event audit.Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) ListByVerification(ctx context.Context, verificationID string) ([]audit.Event, error) {
	for _, s := range f {
		if r, ok := s.(audit.Reader); ok {
			return r.ListByVerification(ctx, verificationID)
		}
	}
	return nil, errors.New("no readable audit store")
}
