package projection

import (
	"sync"
	"time"
)

const DefaultTypingDelay = 3 * time.Second

// TypingDebouncer turns keystrokes into one "typing" and one "stop typing".
// emit is called under the debouncer lock, so emissions never reorder;
// it must not call back into the debouncer.
type TypingDebouncer struct {
	mu         sync.Mutex
	delay      time.Duration
	emit       func(typing bool)
	typing     bool
	timer      *time.Timer
	generation uint64
}

func NewTypingDebouncer(delay time.Duration, emit func(typing bool)) *TypingDebouncer {
	return &TypingDebouncer{delay: delay, emit: emit}
}

// Keystroke emits "typing" if not already typing and (re)arms the stop timer.
func (d *TypingDebouncer) Keystroke() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.typing {
		d.typing = true
		d.emit(true)
	}
	d.generation++
	generation := d.generation
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.expire(generation) })
}

// Stop emits "stop typing" right away, typically once the message is sent.
func (d *TypingDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	d.reset()
}

func (d *TypingDebouncer) expire(generation uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A later keystroke re-armed the timer.
	if generation != d.generation {
		return
	}
	d.reset()
}

func (d *TypingDebouncer) reset() {
	if d.typing {
		d.typing = false
		d.emit(false)
	}
}
