// Package store is the cart store used by the services: MongoDB is the
// source of truth and Redis a read-through cache in front of it.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/fjod/go_cart/internal/cache"
	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/repository"
	"golang.org/x/sync/singleflight"
)

const (
	cacheTimeout = time.Second
	fillStripes  = 64
)

// fillGuard orders cache fills against invalidations for the customers that
// hash to it. gen moves on every write, so a load that started before a
// write never caches what it read.
type fillGuard struct {
	mu  sync.Mutex
	gen uint64
}

type CachedCartStore struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	log    *slog.Logger
	sfg    singleflight.Group // Prevents cache stampede
	guards [fillStripes]fillGuard
}

func NewCachedCartStore(repo repository.CartRepository, c cache.CartCache, log *slog.Logger) *CachedCartStore {
	return &CachedCartStore{
		repo:  repo,
		cache: c,
		log:   log,
	}
}

// Get returns the customer's cart, or an empty one if none is stored. Every
// caller receives its own copy.
//
// A load that overlaps a Put in this process does not fill the cache. A Put
// from another process can still land between the load and the fill, and the
// stale entry then lives until its TTL; callers serialize writes per customer.
func (s *CachedCartStore) Get(ctx context.Context, customerID int64) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(customerID, 10), func() (any, error) {
		gen := s.generation(customerID)
		cart, err := s.cache.Get(ctx, customerID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", slog.Int64("customer_id", customerID), slog.String("error", err.Error()))
		}

		cart, err = s.repo.GetCart(ctx, customerID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewCart(customerID), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get cart: %w", err)
		}

		s.fill(ctx, customerID, cart, gen)
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart).Clone(), nil
}

// Put writes the cart through to MongoDB and drops the cached copy.
func (s *CachedCartStore) Put(ctx context.Context, customerID int64, cart *domain.Cart) error {
	stored := cart.Clone()
	stored.CustomerID = customerID
	s.bump(customerID)
	if err := s.repo.UpsertCart(ctx, stored); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	s.invalidate(ctx, customerID)
	return nil
}

func (s *CachedCartStore) guard(customerID int64) *fillGuard {
	return &s.guards[uint64(customerID)%fillStripes]
}

func (s *CachedCartStore) generation(customerID int64) uint64 {
	g := s.guard(customerID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

func (s *CachedCartStore) bump(customerID int64) {
	g := s.guard(customerID)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
}

// fill caches cart unless a write started after it was loaded at gen.
func (s *CachedCartStore) fill(ctx context.Context, customerID int64, cart *domain.Cart, gen uint64) {
	g := s.guard(customerID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()
	if err := s.cache.Set(ctx, customerID, cart); err != nil {
		s.log.WarnContext(ctx, "cache set error", slog.Int64("customer_id", customerID), slog.String("error", err.Error()))
	}
}

func (s *CachedCartStore) invalidate(ctx context.Context, customerID int64) {
	g := s.guard(customerID)
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, customerID); err != nil {
		s.log.WarnContext(ctx, "cache invalidate error", slog.Int64("customer_id", customerID), slog.String("error", err.Error()))
	}
}
