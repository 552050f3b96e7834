// Package resolver turns short codes into destinations and counts the visit.
package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rawen554/shortlinks/internal/logic"
	"github.com/rawen554/shortlinks/internal/models"
	"go.uber.org/zap"
)

const incrementTimeout = 5 * time.Second

// LinkSource is the part of logic.CoreLogic a redirect needs.
type LinkSource interface {
	GetLink(ctx context.Context, shortCode string) (*models.Link, error)
	IncrementClicks(ctx context.Context, shortCode string) error
}

// DestinationCache keeps destinations between lookups. A nil *cache.Cache satisfies it and always misses.
type DestinationCache interface {
	Get(code string) (string, bool)
	Version() uint64
	SetIfCurrent(code, destination string, version uint64) bool
}

type Resolver struct {
	links  LinkSource
	cache  DestinationCache
	logger *zap.SugaredLogger
	wg     sync.WaitGroup
}

func New(links LinkSource, cache DestinationCache, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{
		links:  links,
		cache:  cache,
		logger: logger,
	}
}

// Resolve returns the destination for shortCode and counts the visit in the background.
func (r *Resolver) Resolve(ctx context.Context, shortCode string) (string, error) {
	var (
		destination string
		version     uint64
		ok          bool
	)
	if r.cache != nil {
		version = r.cache.Version()
		destination, ok = r.cache.Get(shortCode)
	}
	if !ok {
		link, err := r.links.GetLink(ctx, shortCode)
		if err != nil {
			return "", err
		}
		destination = link.DestinationURL
		if r.cache != nil {
			r.cache.SetIfCurrent(shortCode, destination, version)
		}
	}

	r.wg.Add(1)
	go r.increment(shortCode)
	return destination, nil
}

func (r *Resolver) increment(shortCode string) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), incrementTimeout)
	defer cancel()

	if err := r.links.IncrementClicks(ctx, shortCode); err != nil {
		if errors.Is(err, logic.ErrNotFound) {
			r.logger.Debugf("link %s deleted before its click was counted", shortCode)
			return
		}
		r.logger.Errorf("error counting click for %s: %v", shortCode, err)
	}
}

// Wait blocks until in-flight click increments finish.
func (r *Resolver) Wait() {
	r.wg.Wait()
}
