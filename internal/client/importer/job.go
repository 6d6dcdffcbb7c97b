package importer

import (
	"math"
	"sync"
)

const subscriberBuffer = 32

// job fans the progress of one import out to every caller waiting on it.
type job struct {
	mu       sync.Mutex
	subs     []chan Progress
	last     Progress
	warnings []string
	done     bool
}

func newJob() *job {
	return &job{}
}

// subscribe returns a channel that first receives the latest update.
func (j *job) subscribe() <-chan Progress {
	j.mu.Lock()
	defer j.mu.Unlock()

	ch := make(chan Progress, subscriberBuffer)
	if j.done {
		ch <- j.last
		close(ch)
		return ch
	}
	if j.last.Fraction > 0 || len(j.last.Warnings) > 0 {
		ch <- j.last
	}
	j.subs = append(j.subs, ch)
	return ch
}

func (j *job) warn(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.warnings = append(j.warnings, msg)
}

// publish sends a non final update. Fractions never go backwards.
func (j *job) publish(fraction float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return
	}
	fraction = math.Max(j.last.Fraction, clamp(fraction))
	j.last = Progress{Fraction: fraction, Warnings: append([]string(nil), j.warnings...)}
	for _, ch := range j.subs {
		select {
		case ch <- j.last:
		default:
			// slow reader, it will catch up on a later update
		}
	}
}

func (j *job) finish(p Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return
	}
	j.done = true
	j.last = p
	for _, ch := range j.subs {
		select {
		case ch <- p:
		default:
			// make room for the final update
			select {
			case <-ch:
			default:
			}
			ch <- p
		}
		close(ch)
	}
	j.subs = nil
}
