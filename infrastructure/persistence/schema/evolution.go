// Package schema manages record-layout evolution. Records are never
// migrated in bulk: each carries its schema version and is upgraded
// on read, so old and new layouts coexist in the table indefinitely.
package schema

import (
	"fmt"
	"sync"
	"time"
)

// Version describes one schema version of a record type
type Version struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
}

// UpgradeFunc transforms a record from one layout to the next
type UpgradeFunc[T any] func(record T) (T, error)

// Upgrade represents a single-step layout migration
type Upgrade[T any] struct {
	FromVersion int
	ToVersion   int
	Description string
	Apply       UpgradeFunc[T]
}

// Evolution manages the upgrade chain for one record type
type Evolution[T any] struct {
	latest   int
	upgrades map[int]Upgrade[T]

	mu      sync.Mutex
	history []Version
}

// NewEvolution creates an evolution manager whose latest version is
// the given target
func NewEvolution[T any](latest int) *Evolution[T] {
	return &Evolution[T]{
		latest:   latest,
		upgrades: make(map[int]Upgrade[T]),
	}
}

// RegisterUpgrade registers a single-step migration. Steps must be
// contiguous: from N to N+1.
func (e *Evolution[T]) RegisterUpgrade(upgrade Upgrade[T]) error {
	if upgrade.ToVersion != upgrade.FromVersion+1 {
		return fmt.Errorf("upgrade must advance exactly one version, got %d->%d",
			upgrade.FromVersion, upgrade.ToVersion)
	}
	if upgrade.Apply == nil {
		return fmt.Errorf("upgrade %d->%d has no apply function",
			upgrade.FromVersion, upgrade.ToVersion)
	}
	if _, exists := e.upgrades[upgrade.FromVersion]; exists {
		return fmt.Errorf("upgrade from version %d already registered", upgrade.FromVersion)
	}
	e.upgrades[upgrade.FromVersion] = upgrade
	return nil
}

// LatestVersion returns the version this build writes
func (e *Evolution[T]) LatestVersion() int {
	return e.latest
}

// UpgradeToLatest walks the upgrade chain from the record's version to
// the latest. A record already at the latest version passes through
// untouched; a gap in the chain is an error.
func (e *Evolution[T]) UpgradeToLatest(record T, version int) (T, int, error) {
	// Records written before versioning existed count as version 1
	if version <= 0 {
		version = 1
	}

	for version < e.latest {
		upgrade, ok := e.upgrades[version]
		if !ok {
			return record, version, fmt.Errorf("no upgrade registered from version %d", version)
		}

		upgraded, err := upgrade.Apply(record)
		if err != nil {
			return record, version, fmt.Errorf("upgrade %d->%d failed: %w",
				upgrade.FromVersion, upgrade.ToVersion, err)
		}

		record = upgraded
		version = upgrade.ToVersion

		e.mu.Lock()
		e.history = append(e.history, Version{
			Version:     version,
			Description: upgrade.Description,
			AppliedAt:   time.Now().UTC(),
		})
		e.mu.Unlock()
	}

	return record, version, nil
}

// History returns the record upgrades applied by this process
func (e *Evolution[T]) History() []Version {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Version, len(e.history))
	copy(out, e.history)
	return out
}
