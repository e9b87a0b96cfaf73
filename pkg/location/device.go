package location

import "context"

// PermissionFunc asks the user for foreground location access.
type PermissionFunc func(ctx context.Context) (bool, error)

// PositionFunc returns the current device position.
type PositionFunc func(ctx context.Context) (Coordinates, error)

// Device composes a permission prompt and a position source into a Locator.
// A nil Permission means access is implicitly granted.
type Device struct {
	Permission PermissionFunc
	Position   PositionFunc
}

func (d Device) RequestPermission(ctx context.Context) (bool, error) {
	if d.Permission == nil {
		return true, nil
	}
	return d.Permission(ctx)
}

func (d Device) CurrentPosition(ctx context.Context) (Coordinates, error) {
	if d.Position == nil {
		return Coordinates{}, ErrNoPosition
	}
	return d.Position(ctx)
}
