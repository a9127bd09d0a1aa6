package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/pkg/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Option func(*ViewModel)

// WithWindowSize sets the page window. Values below 1 are ignored.
func WithWindowSize(n int) Option {
	return func(vm *ViewModel) {
		if n > 0 {
			vm.windowSize = n
		}
	}
}

// ViewModel is the per-session catalog state: the cached products, the followed artists,
// the active filters and the paged display list derived from them.
// Every mutation recomputes the display list synchronously under mu; observers run after
// the lock is released and gateway calls never run under it.
type ViewModel struct {
	gw         Gateway
	store      FilterStore
	logger     logger.ZapLogger
	windowSize int

	mu        sync.Mutex
	gen       uint64
	principal *model.Principal
	products  []model.Product
	profile   *model.UserProfile
	followed  []string
	filters   model.Filters
	display   []model.Product
	pageCount int
	ready     bool

	obsMu     sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int

	// serialises followed-set writes
	persistMu sync.Mutex
	followSeq uint64
	toggles   map[string]pendingFollow // newest toggle per artist, guarded by mu

	// serialises filter writes and their notifications
	filtersMu sync.Mutex
}

// pendingFollow is the newest toggle of one artist. Loads overlay it on the fetched
// followed set until a Load that started after the write landed.
type pendingFollow struct {
	seq      uint64
	want     bool
	saved    bool
	savedGen uint64 // load generation when the write landed
}

type followStage int

const (
	followPending followStage = iota
	followSaved
	followFailed
)

func NewViewModel(gw Gateway, store FilterStore, log logger.ZapLogger, opts ...Option) *ViewModel {
	vm := &ViewModel{
		gw:         gw,
		store:      store,
		logger:     log,
		windowSize: DefaultWindowSize,
		pageCount:  1,
		observers:  make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.display = Derive(nil, nil, vm.filters)
	return vm
}

// Subscribe registers fn to receive every derived snapshot. The returned func unsubscribes.
func (vm *ViewModel) Subscribe(fn func(Snapshot)) func() {
	vm.obsMu.Lock()
	id := vm.nextObs
	vm.nextObs++
	vm.observers[id] = fn
	vm.obsMu.Unlock()

	return func() {
		vm.obsMu.Lock()
		delete(vm.observers, id)
		vm.obsMu.Unlock()
	}
}

func (vm *ViewModel) notify(s Snapshot) {
	vm.obsMu.Lock()
	fns := make([]func(Snapshot), 0, len(vm.observers))
	for _, fn := range vm.observers {
		fns = append(fns, fn)
	}
	vm.obsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Load switches the view model to principal. A nil principal clears all state.
// Products, profile and followed artists are fetched concurrently; each result is applied
// as it arrives and a failed fetch leaves its slice untouched. Ready is set once all three
// have settled. Results of a Load superseded by a newer Load are discarded.
// The returned error aggregates the failed fetches; the state is usable either way.
func (vm *ViewModel) Load(ctx context.Context, principal *model.Principal) error {
	vm.mu.Lock()
	vm.gen++
	gen := vm.gen

	if principal == nil {
		vm.principal = nil
		vm.products = nil
		vm.profile = nil
		vm.followed = nil
		vm.filters = model.Filters{}
		vm.toggles = nil
		vm.pageCount = 1
		vm.ready = false
		vm.recomputeLocked()
		snap := vm.snapshotLocked()
		vm.mu.Unlock()
		vm.notify(snap)
		return nil
	}

	p := *principal
	if vm.principal == nil || vm.principal.UserID != p.UserID {
		vm.products = nil
		vm.profile = nil
		vm.followed = nil
		vm.toggles = nil
	}
	vm.principal = &p
	vm.ready = false
	vm.mu.Unlock()

	filters, ok := vm.store.LoadFilters(ctx, p.UserID)
	if !ok {
		filters = model.Filters{}
	}
	vm.apply(gen, func() {
		vm.filters = filters
		vm.pageCount = 1
	})

	var (
		g    errgroup.Group
		errs [3]error
	)
	g.Go(func() error {
		products, err := vm.gw.FetchAllProducts(ctx)
		if err != nil {
			errs[0] = err
			vm.logger.Error("Failed to fetch products", zap.String("user_id", p.UserID), zap.Error(err))
			return nil
		}
		vm.apply(gen, func() { vm.products = products })
		return nil
	})
	g.Go(func() error {
		profile, err := vm.gw.FetchUserProfile(ctx, p)
		if err != nil {
			errs[1] = err
			vm.logger.Error("Failed to fetch profile", zap.String("user_id", p.UserID), zap.Error(err))
			return nil
		}
		vm.apply(gen, func() { vm.profile = &profile })
		return nil
	})
	g.Go(func() error {
		ids, err := vm.gw.FetchFollowedArtistIDs(ctx, p)
		if err != nil {
			errs[2] = err
			vm.logger.Error("Failed to fetch followed artists", zap.String("user_id", p.UserID), zap.Error(err))
			return nil
		}
		vm.apply(gen, func() { vm.followed = vm.overlayTogglesLocked(dedupe(ids), gen) })
		return nil
	})
	_ = g.Wait()

	stale := !vm.apply(gen, func() { vm.ready = true })
	if stale {
		vm.logger.Debug("Discarded superseded catalog load", zap.String("user_id", p.UserID))
	}

	err := multierr.Combine(errs[:]...)
	if err != nil {
		vm.logger.Warn("Catalog loaded partially",
			zap.String("user_id", p.UserID),
			zap.Int("failed", len(multierr.Errors(err))),
			zap.Error(err),
		)
	}
	return err
}

// apply runs mutate and recomputes if gen is still the current load. It reports
// whether mutate ran.
func (vm *ViewModel) apply(gen uint64, mutate func()) bool {
	vm.mu.Lock()
	if vm.gen != gen {
		vm.mu.Unlock()
		return false
	}
	mutate()
	vm.recomputeLocked()
	snap := vm.snapshotLocked()
	vm.mu.Unlock()

	vm.notify(snap)
	return true
}

// SetFilters merges patch into the active filters. Changing the filters resets the
// window to the first page and persists the snapshot; persistence failures are only logged.
// Concurrent calls persist and notify in the order they were applied.
func (vm *ViewModel) SetFilters(ctx context.Context, patch model.FilterPatch) Snapshot {
	vm.filtersMu.Lock()
	defer vm.filtersMu.Unlock()

	vm.mu.Lock()
	next := vm.filters.Apply(patch)
	changed := !next.Equal(vm.filters)
	vm.filters = next
	if changed {
		vm.pageCount = 1
	}
	vm.recomputeLocked()
	principal := vm.principal
	snap := vm.snapshotLocked()
	vm.mu.Unlock()

	if changed && principal != nil {
		if err := vm.store.SaveFilters(ctx, principal.UserID, next); err != nil {
			vm.logger.Warn("Failed to persist filters", zap.String("user_id", principal.UserID), zap.Error(err))
		}
	}
	vm.notify(snap)
	return snap
}

// SetSearchTerm sets the search term; blank input clears it.
func (vm *ViewModel) SetSearchTerm(ctx context.Context, term string) Snapshot {
	patch := model.FilterPatch{SearchTerm: model.Set(term)}
	if strings.TrimSpace(term) == "" {
		patch.SearchTerm = model.Clear[string]()
	}
	return vm.SetFilters(ctx, patch)
}

// RequestMore reveals one more window if the display list has hidden products.
func (vm *ViewModel) RequestMore() Snapshot {
	vm.mu.Lock()
	grew := false
	if len(Window(vm.display, vm.pageCount, vm.windowSize)) < len(vm.display) {
		vm.pageCount++
		grew = true
	}
	snap := vm.snapshotLocked()
	vm.mu.Unlock()

	if grew {
		vm.notify(snap)
	}
	return snap
}

// ToggleFollow flips artistID in the followed set and persists the whole set.
// Writes are serialised and each one carries the latest set. A reload for the same
// principal does not undo a pending toggle; a failed write rolls the toggle back
// unless the artist was toggled again since.
func (vm *ViewModel) ToggleFollow(ctx context.Context, artistID string) (FollowResult, error) {
	vm.mu.Lock()
	if vm.principal == nil {
		vm.mu.Unlock()
		return FollowResult{}, ErrUnauthenticated
	}
	principal := *vm.principal

	vm.followSeq++
	seq := vm.followSeq
	res := FollowResult{ArtistID: artistID, Following: indexOf(vm.followed, artistID) < 0}
	if vm.toggles == nil {
		vm.toggles = make(map[string]pendingFollow)
	}
	vm.toggles[artistID] = pendingFollow{seq: seq, want: res.Following}
	vm.followed = withMembership(vm.followed, artistID, res.Following)
	for _, p := range vm.products {
		if p.Artist.ID == artistID {
			res.ArtistName = p.Artist.Name
			break
		}
	}
	vm.recomputeLocked()
	snap := vm.snapshotLocked()
	vm.mu.Unlock()
	vm.notify(snap)

	vm.persistMu.Lock()
	defer vm.persistMu.Unlock()

	latest, ok := vm.settleFollow(principal.UserID, artistID, seq, res.Following, followPending)
	if !ok {
		// signed out or switched principal; the toggle went with the old state
		return res, nil
	}

	if err := vm.gw.SaveFollowedArtistIDs(ctx, principal, latest); err != nil {
		vm.logger.Error("Failed to save followed artists", zap.String("user_id", principal.UserID), zap.Error(err))
		vm.settleFollow(principal.UserID, artistID, seq, !res.Following, followFailed)
		return res, err
	}
	vm.settleFollow(principal.UserID, artistID, seq, res.Following, followSaved)
	return res, nil
}

// settleFollow sets artistID's membership to want if toggle seq is still the newest
// for that artist, records the stage, and returns a copy of the followed set.
// ok is false when userID is no longer the loaded principal.
func (vm *ViewModel) settleFollow(userID, artistID string, seq uint64, want bool, stage followStage) (latest []string, ok bool) {
	vm.mu.Lock()
	if vm.principal == nil || vm.principal.UserID != userID {
		vm.mu.Unlock()
		return nil, false
	}
	var snap Snapshot
	changed := false
	if t, current := vm.toggles[artistID]; current && t.seq == seq {
		switch stage {
		case followSaved:
			t.saved, t.savedGen = true, vm.gen
			vm.toggles[artistID] = t
		case followFailed:
			delete(vm.toggles, artistID)
		}
		if (indexOf(vm.followed, artistID) >= 0) != want {
			vm.followed = withMembership(vm.followed, artistID, want)
			vm.recomputeLocked()
			snap = vm.snapshotLocked()
			changed = true
		}
	}
	latest = append([]string(nil), vm.followed...)
	vm.mu.Unlock()

	if changed {
		vm.notify(snap)
	}
	return latest, true
}

// AddProduct inserts p at the head of the cached products. A product already cached
// under the same id is updated in place.
func (vm *ViewModel) AddProduct(p model.Product) {
	vm.mutate(func() {
		if indexByID(vm.products, p.ID) >= 0 {
			vm.products = replaceByID(vm.products, p)
			return
		}
		vm.products = insertHead(vm.products, p)
	})
}

func (vm *ViewModel) RemoveProduct(id string) {
	vm.mutate(func() {
		vm.products = removeByID(vm.products, id)
	})
}

// ReplaceProduct swaps the cached product with the same id. Unknown ids are ignored.
func (vm *ViewModel) ReplaceProduct(p model.Product) {
	vm.mutate(func() { vm.products = replaceByID(vm.products, p) })
}

func (vm *ViewModel) mutate(fn func()) {
	vm.mu.Lock()
	fn()
	vm.recomputeLocked()
	snap := vm.snapshotLocked()
	vm.mu.Unlock()
	vm.notify(snap)
}

// Snapshot returns the current derived state.
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.snapshotLocked()
}

// Visible returns the current window of the display list.
func (vm *ViewModel) Visible() []model.Product {
	return vm.Snapshot().Visible
}

func (vm *ViewModel) Filters() model.Filters {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.filters
}

func (vm *ViewModel) Products() []model.Product {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return append([]model.Product(nil), vm.products...)
}

func (vm *ViewModel) Principal() *model.Principal {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.principal == nil {
		return nil
	}
	p := *vm.principal
	return &p
}

func (vm *ViewModel) IsFollowing(artistID string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return indexOf(vm.followed, artistID) >= 0
}

func (vm *ViewModel) recomputeLocked() {
	set := make(map[string]struct{}, len(vm.followed))
	for _, id := range vm.followed {
		set[id] = struct{}{}
	}
	vm.display = Derive(vm.products, set, vm.filters)
}

func (vm *ViewModel) snapshotLocked() Snapshot {
	visible := Window(vm.display, vm.pageCount, vm.windowSize)
	s := Snapshot{
		Ready:             vm.ready,
		Filters:           vm.filters,
		Visible:           append([]model.Product(nil), visible...),
		DisplayCount:      len(vm.display),
		TotalCount:        len(vm.products),
		PageCount:         vm.pageCount,
		HasMore:           len(visible) < len(vm.display),
		FollowedArtistIDs: append([]string(nil), vm.followed...),
		MaxPrice:          MaxPrice(vm.products),
	}
	if vm.principal != nil {
		p := *vm.principal
		s.Principal = &p
	}
	if vm.profile != nil {
		prof := *vm.profile
		s.Profile = &prof
	}
	return s
}

func insertHead(products []model.Product, p model.Product) []model.Product {
	return append([]model.Product{p}, removeByID(products, p.ID)...)
}

func indexByID(products []model.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

func replaceByID(products []model.Product, p model.Product) []model.Product {
	for i := range products {
		if products[i].ID == p.ID {
			next := append([]model.Product(nil), products...)
			next[i] = p
			return next
		}
	}
	return products
}

func removeByID(products []model.Product, id string) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// overlayTogglesLocked applies toggles the fetched set of load gen may predate.
func (vm *ViewModel) overlayTogglesLocked(ids []string, gen uint64) []string {
	for artistID, t := range vm.toggles {
		if t.saved && t.savedGen < gen {
			delete(vm.toggles, artistID)
			continue
		}
		ids = withMembership(ids, artistID, t.want)
	}
	return ids
}

// withMembership returns a copy of ids with id present or absent.
func withMembership(ids []string, id string, present bool) []string {
	i := indexOf(ids, id)
	switch {
	case present && i < 0:
		return append(ids[:len(ids):len(ids)], id)
	case !present && i >= 0:
		return append(ids[:i:i], ids[i+1:]...)
	}
	return ids
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if indexOf(out, id) < 0 {
			out = append(out, id)
		}
	}
	return out
}
