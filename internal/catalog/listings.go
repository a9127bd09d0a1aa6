package catalog

import (
	"context"

	"github.com/fekuna/artista-service/internal/model"
	"go.uber.org/zap"
)

// session captures the principal and load generation a remote write was issued under.
type session struct {
	principal model.Principal
	profile   model.UserProfile
	gen       uint64
}

func (vm *ViewModel) currentSession() (session, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.principal == nil {
		return session{}, ErrUnauthenticated
	}
	s := session{principal: *vm.principal, gen: vm.gen}
	if vm.profile != nil {
		s.profile = *vm.profile
	} else {
		s.profile = model.DefaultProfile(vm.principal.UserID)
	}
	return s, nil
}

// checkOwner rejects ids cached as someone else's product. Unknown ids pass;
// the gateway enforces ownership for those.
func (vm *ViewModel) checkOwner(id, userID string) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for _, p := range vm.products {
		if p.ID == id && p.OwnerID != userID {
			return ErrForbidden
		}
	}
	return nil
}

// applyIfCurrent mutates only when no Load has happened since s was taken.
func (vm *ViewModel) applyIfCurrent(s session, fn func()) {
	if !vm.apply(s.gen, fn) {
		vm.logger.Debug("Dropped write result for superseded session", zap.String("user_id", s.principal.UserID))
	}
}

// CreateListing persists a new product owned by the principal and adds it to the head of the catalog.
func (vm *ViewModel) CreateListing(ctx context.Context, data model.NewProduct) (model.Product, error) {
	s, err := vm.currentSession()
	if err != nil {
		return model.Product{}, err
	}

	p, err := vm.gw.CreateProduct(ctx, s.principal, data, s.profile)
	if err != nil {
		vm.logger.Error("Failed to create listing", zap.String("user_id", s.principal.UserID), zap.Error(err))
		return model.Product{}, err
	}
	vm.applyIfCurrent(s, func() { vm.products = insertHead(vm.products, p) })
	return p, nil
}

// EditListing patches one of the principal's products.
func (vm *ViewModel) EditListing(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	s, err := vm.currentSession()
	if err != nil {
		return model.Product{}, err
	}
	if err := vm.checkOwner(id, s.principal.UserID); err != nil {
		return model.Product{}, err
	}

	p, err := vm.gw.UpdateProduct(ctx, s.principal, id, patch)
	if err != nil {
		vm.logger.Error("Failed to update listing", zap.String("product_id", id), zap.Error(err))
		return model.Product{}, err
	}
	vm.applyIfCurrent(s, func() { vm.products = replaceByID(vm.products, p) })
	return p, nil
}

// DeleteListing removes one of the principal's products.
func (vm *ViewModel) DeleteListing(ctx context.Context, id string) error {
	s, err := vm.currentSession()
	if err != nil {
		return err
	}
	if err := vm.checkOwner(id, s.principal.UserID); err != nil {
		return err
	}

	if err := vm.gw.DeleteProduct(ctx, s.principal, id); err != nil {
		vm.logger.Error("Failed to delete listing", zap.String("product_id", id), zap.Error(err))
		return err
	}
	vm.applyIfCurrent(s, func() { vm.products = removeByID(vm.products, id) })
	return nil
}

// UpdateProfile saves the principal's profile. Artist snapshots already embedded in
// products are left as they were written.
func (vm *ViewModel) UpdateProfile(ctx context.Context, profile model.UserProfile) (model.UserProfile, error) {
	s, err := vm.currentSession()
	if err != nil {
		return model.UserProfile{}, err
	}
	profile.ID = s.principal.UserID
	if profile.AvatarURL == "" {
		profile.AvatarURL = model.DefaultAvatarURL
	}

	if err := vm.gw.SaveUserProfile(ctx, s.principal, profile); err != nil {
		vm.logger.Error("Failed to save profile", zap.String("user_id", s.principal.UserID), zap.Error(err))
		return model.UserProfile{}, err
	}
	vm.applyIfCurrent(s, func() { vm.profile = &profile })
	return profile, nil
}

// Profile returns the loaded profile, or nil before it arrives.
func (vm *ViewModel) Profile() *model.UserProfile {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.profile == nil {
		return nil
	}
	p := *vm.profile
	return &p
}

// MyListings returns the principal's products from the gateway. When the fetch fails
// the cached catalog is filtered by owner instead.
func (vm *ViewModel) MyListings(ctx context.Context) ([]model.Product, error) {
	s, err := vm.currentSession()
	if err != nil {
		return nil, err
	}

	products, err := vm.gw.FetchProductsByOwner(ctx, s.principal.UserID)
	if err == nil {
		return products, nil
	}
	vm.logger.Warn("Failed to fetch own listings, using cached catalog", zap.String("user_id", s.principal.UserID), zap.Error(err))

	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := []model.Product{}
	for _, p := range vm.products {
		if p.OwnerID == s.principal.UserID {
			out = append(out, p)
		}
	}
	return out, nil
}

// MaxPrice is the upper bound for the price slider.
func (vm *ViewModel) MaxPrice() float64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return MaxPrice(vm.products)
}
