package constants

import "time"

// CacheStalenessWindow is how long a successful fetch keeps a conversation's
// message cache fresh. A non-forced load within this window skips the network.
const CacheStalenessWindow = 10 * time.Second

// CacheRetentionWindow is how long an inactive conversation's cache entry is
// kept before it becomes eligible for eviction.
const CacheRetentionWindow = 120 * time.Second

// ReconcileDelay is how long after a successful send the reconciler waits
// before invalidating the cache and refetching server-confirmed messages.
// Long enough for the backend to persist, short enough to feel immediate.
const ReconcileDelay = 500 * time.Millisecond

// FetchRetryBudget is the number of automatic retries after a failed history
// fetch before the error is surfaced to the caller.
const FetchRetryBudget = 1

// OptimisticIDPrefix marks locally synthesized message ids so they can never
// collide with backend-assigned ids.
const OptimisticIDPrefix = "local-"

// VoiceAutoSubmitDelay is how long the voice controller waits after a
// transcript that ends a sentence before auto-submitting the composer.
// The window exists so a manual edit can still interrupt the submit.
const VoiceAutoSubmitDelay = 500 * time.Millisecond

// ComposerCharLimit caps the composer input length.
const ComposerCharLimit = 4000

// MinEventBusBufferSize is the minimum buffer per subscriber channel.
const MinEventBusBufferSize = 100

// ToastDuration is how long a transient notification stays visible.
const ToastDuration = 5 * time.Second

// RequestTimeout caps a single API request duration.
const RequestTimeout = 30 * time.Second
