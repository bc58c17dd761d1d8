package archway

// TextStream turns a channel of StreamChunk into the pull-based iterator
// shape Provider.Stream returns. Backends produce chunks on a goroutine
// (decoding SSE/NDJSON frames as they arrive) and send them on ch; TextStream
// relays them to whatever the caller's range-over-func loop does, and stops
// pulling (without leaking the producer) as soon as the caller's yield
// returns false — the producer must itself watch ctx.Done() to unblock a
// send that nobody will ever receive.
func TextStream(ch <-chan StreamChunk) func(yield func(StreamChunk) bool) {
	return func(yield func(StreamChunk) bool) {
		for chunk := range ch {
			if !yield(chunk) {
				return
			}
		}
	}
}

// CollectStream drains a Provider.Stream sequence into one string plus the
// terminal Usage, for callers that want the old request/response shape
// instead of incremental chunks.
func CollectStream(seq func(yield func(StreamChunk) bool)) (string, Usage, error) {
	var text string
	var usage Usage
	var err error
	seq(func(c StreamChunk) bool {
		if c.Err != nil {
			err = c.Err
			return false
		}
		text += c.Text
		if c.Usage != nil {
			usage = *c.Usage
		}
		return true
	})
	return text, usage, err
}
