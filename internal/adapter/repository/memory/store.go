// Package memory provides in-process implementations of the domain repositories.
// They back the server's development mode and the engine-level tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/investtrack-backend/internal/domain"
)

// AcquisitionRepository implements domain.AcquisitionRepository in memory
type AcquisitionRepository struct {
	mu   sync.RWMutex
	lots []*domain.AcquisitionLot
}

// NewAcquisitionRepository creates an empty AcquisitionRepository
func NewAcquisitionRepository() *AcquisitionRepository {
	return &AcquisitionRepository{}
}

// Create persists a copy of lot
func (r *AcquisitionRepository) Create(ctx context.Context, lot *domain.AcquisitionLot) error {
	stored := *lot
	stored.Tags = append([]string(nil), lot.Tags...)

	r.mu.Lock()
	r.lots = append(r.lots, &stored)
	r.mu.Unlock()
	return nil
}

// ListByUser returns copies of the user's lots ordered by acquisition date then creation time
func (r *AcquisitionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AcquisitionLot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lots := make([]*domain.AcquisitionLot, 0)
	for _, l := range r.lots {
		if l.UserID == userID {
			c := *l
			lots = append(lots, &c)
		}
	}

	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].AcquisitionDate.Equal(lots[j].AcquisitionDate) {
			return lots[i].AcquisitionDate.Before(lots[j].AcquisitionDate)
		}
		return lots[i].CreatedAt.Before(lots[j].CreatedAt)
	})
	return lots, nil
}

// DistinctAssetIDs returns every referenced asset id in order of first use
func (r *AcquisitionRepository) DistinctAssetIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0)
	for _, l := range r.lots {
		if !seen[l.AssetID] {
			seen[l.AssetID] = true
			ids = append(ids, l.AssetID)
		}
	}
	return ids, nil
}

// AssetRepository implements domain.AssetRepository in memory
type AssetRepository struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*domain.Asset
	bySymbol map[string]uuid.UUID
	order    []uuid.UUID
}

// NewAssetRepository creates an empty AssetRepository
func NewAssetRepository() *AssetRepository {
	return &AssetRepository{
		byID:     make(map[uuid.UUID]*domain.Asset),
		bySymbol: make(map[string]uuid.UUID),
	}
}

// GetByID retrieves an asset by its ID
func (r *AssetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, domain.ErrNotFound)
	}
	c := *a
	return &c, nil
}

// GetBySymbol retrieves an asset by symbol
func (r *AssetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySymbol[domain.NormalizeSymbol(symbol)]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", symbol, domain.ErrNotFound)
	}
	c := *r.byID[id]
	return &c, nil
}

// Create stores an asset; symbols are unique
func (r *AssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbol := domain.NormalizeSymbol(asset.Symbol)
	if _, exists := r.bySymbol[symbol]; exists {
		return fmt.Errorf("asset symbol %s already exists: %w", symbol, domain.ErrConflict)
	}

	c := *asset
	c.Symbol = symbol
	r.byID[c.ID] = &c
	r.bySymbol[symbol] = c.ID
	r.order = append(r.order, c.ID)
	return nil
}

// Search returns assets whose symbol or name contains query, case-insensitively
func (r *AssetRepository) Search(ctx context.Context, query string) ([]*domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	assets := make([]*domain.Asset, 0)
	for _, id := range r.order {
		a := r.byID[id]
		if q == "" || strings.Contains(strings.ToLower(a.Symbol), q) || strings.Contains(strings.ToLower(a.Name), q) {
			c := *a
			assets = append(assets, &c)
		}
	}
	return assets, nil
}

// PriceSnapshotRepository implements domain.PriceSnapshotRepository in memory
type PriceSnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID][]*domain.PriceSnapshot // kept ascending by AsOf
}

// NewPriceSnapshotRepository creates an empty PriceSnapshotRepository
func NewPriceSnapshotRepository() *PriceSnapshotRepository {
	return &PriceSnapshotRepository{snapshots: make(map[uuid.UUID][]*domain.PriceSnapshot)}
}

// Add appends a snapshot, keeping the asset's series ordered by AsOf
func (r *PriceSnapshotRepository) Add(ctx context.Context, snapshot *domain.PriceSnapshot) error {
	c := *snapshot

	r.mu.Lock()
	defer r.mu.Unlock()

	series := r.snapshots[c.AssetID]
	i := sort.Search(len(series), func(i int) bool { return series[i].AsOf.After(c.AsOf) })
	series = append(series, nil)
	copy(series[i+1:], series[i:])
	series[i] = &c
	r.snapshots[c.AssetID] = series
	return nil
}

// GetLatest returns the snapshot with the latest AsOf
func (r *PriceSnapshotRepository) GetLatest(ctx context.Context, assetID uuid.UUID) (*domain.PriceSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	series := r.snapshots[assetID]
	if len(series) == 0 {
		return nil, fmt.Errorf("price for asset %s: %w", assetID, domain.ErrNotFound)
	}
	c := *series[len(series)-1]
	return &c, nil
}

// ListRange returns snapshots with from <= AsOf < to, ascending
func (r *PriceSnapshotRepository) ListRange(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]*domain.PriceSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.PriceSnapshot, 0)
	for _, s := range r.snapshots[assetID] {
		if !s.AsOf.Before(from) && s.AsOf.Before(to) {
			c := *s
			result = append(result, &c)
		}
	}
	return result, nil
}
