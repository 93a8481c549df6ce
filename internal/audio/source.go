// Package audio carries mono S16LE PCM from a capture source to the caption
// loop through a FIFO frame queue.
package audio

import "context"

// Source produces frames into a queue until closed. FileSource and
// microphone.Microphone implement it.
type Source interface {
	Name() string
	Start(ctx context.Context, q *Queue) error
	Close() error
}
