package core

// BusyAggregator combines the fetcher's loading state, the sender's
// in-flight state, and the sender's processing flag into the single
// user-visible "working" signal. The merge rule is OR: the user is not shown
// which asynchronous step is happening, only that one is.
type BusyAggregator struct {
	fetcher *Fetcher
	sender  *Sender
}

// NewBusyAggregator creates a busy state aggregator.
func NewBusyAggregator(fetcher *Fetcher, sender *Sender) *BusyAggregator {
	return &BusyAggregator{fetcher: fetcher, sender: sender}
}

// Working reports whether any asynchronous operation relevant to the
// conversation is in progress.
func (b *BusyAggregator) Working(conversationID string) bool {
	return IsWorking(
		b.fetcher.Loading(conversationID),
		b.sender.InFlight(conversationID),
		b.sender.Processing(conversationID),
	)
}

// IsWorking is the pure merge rule behind the busy indicator.
func IsWorking(fetchLoading, sendInFlight, processing bool) bool {
	return fetchLoading || sendInFlight || processing
}
