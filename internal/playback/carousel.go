// SPDX-License-Identifier: MIT

package playback

import "sync"

// Carousel is the shared cursor mechanics of the announcement, image and
// ticker rotations: a list that can be replaced at any time and a cursor that
// only ever moves forward, wrapping around. The cursor resets to zero when a
// replacement list is too short for it.
type Carousel[T any] struct {
	mu    sync.Mutex
	items []T
	index int
}

// SetItems replaces the underlying list. The cursor keeps its position when
// still in range, otherwise it rebounds to zero.
func (c *Carousel[T]) SetItems(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	if c.index >= len(items) {
		c.index = 0
	}
}

// Current returns the item under the cursor without moving it.
func (c *Carousel[T]) Current() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	return c.items[c.index], true
}

// Advance moves to the next item and returns it.
func (c *Carousel[T]) Advance() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	c.index = (c.index + 1) % len(c.items)
	return c.items[c.index], true
}

// Len returns the current list length.
func (c *Carousel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Index returns the cursor position.
func (c *Carousel[T]) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}
