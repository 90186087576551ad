// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers can register
// hooks at startup to receive events about layout passes, crop work, and
// ingest batches.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach avoids import cycles (hooks are registered by main, not by
// libraries) and keeps the engine free of observability framework imports.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetLayoutHooks(&myLayoutHooks{})
//	    // ... run application
//	}
package observability

import (
	"context"
	"sync"
	"time"
)

// LayoutHooks receives events from layout recomputation.
type LayoutHooks interface {
	// OnLayoutPass records one reflow: how many items participated and
	// whether any of them actually moved.
	OnLayoutPass(ctx context.Context, itemCount int, moved bool, duration time.Duration)
}

// CropHooks receives events from auto-crop work.
type CropHooks interface {
	// OnCropStart records the dispatch of a crop scan.
	OnCropStart(ctx context.Context, itemID int)

	// OnCropComplete records a finished crop scan.
	OnCropComplete(ctx context.Context, itemID int, duration time.Duration, err error)
}

// IngestHooks receives events from batch image ingestion.
type IngestHooks interface {
	// OnIngestBatch records a completed drop batch.
	OnIngestBatch(ctx context.Context, total, failed, lowDPI int, duration time.Duration)
}

// StoreHooks receives events from saved-sheet storage.
type StoreHooks interface {
	// OnSheetSaved records a snapshot write.
	OnSheetSaved(ctx context.Context, sheetID string, size int)

	// OnSheetLoaded records a snapshot read.
	OnSheetLoaded(ctx context.Context, sheetID string, found bool)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutPass(context.Context, int, bool, time.Duration) {}

// NoopCropHooks is a no-op implementation of CropHooks.
type NoopCropHooks struct{}

func (NoopCropHooks) OnCropStart(context.Context, int)                          {}
func (NoopCropHooks) OnCropComplete(context.Context, int, time.Duration, error) {}

// NoopIngestHooks is a no-op implementation of IngestHooks.
type NoopIngestHooks struct{}

func (NoopIngestHooks) OnIngestBatch(context.Context, int, int, int, time.Duration) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnSheetSaved(context.Context, string, int)   {}
func (NoopStoreHooks) OnSheetLoaded(context.Context, string, bool) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	layoutHooks LayoutHooks = NoopLayoutHooks{}
	cropHooks   CropHooks   = NoopCropHooks{}
	ingestHooks IngestHooks = NoopIngestHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	hooksMu     sync.RWMutex
)

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetCropHooks registers custom crop hooks.
func SetCropHooks(h CropHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cropHooks = h
	}
}

// SetIngestHooks registers custom ingest hooks.
func SetIngestHooks(h IngestHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		ingestHooks = h
	}
}

// SetStoreHooks registers custom storage hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Crop returns the registered crop hooks.
func Crop() CropHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cropHooks
}

// Ingest returns the registered ingest hooks.
func Ingest() IngestHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return ingestHooks
}

// Store returns the registered storage hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	cropHooks = NoopCropHooks{}
	ingestHooks = NoopIngestHooks{}
	storeHooks = NoopStoreHooks{}
}
