package chat

import (
	"context"
	"fmt"
	"sync"
)

// Draft is one outgoing message and the screenshots that may go with it.
// It lives until Send or Cancel.
type Draft struct {
	// ID identifies the draft in logs.
	ID      string
	Message string

	session    *Session
	mu         sync.Mutex
	candidates []string
	selected   []bool
	closed     bool
}

// Images returns the candidate screenshots as data URIs.
func (d *Draft) Images() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.candidates...)
}

// Selected returns the screenshots that will be sent, in candidate order.
func (d *Draft) Selected() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectedLocked()
}

func (d *Draft) selectedLocked() []string {
	out := []string{}
	for i, ok := range d.selected {
		if ok {
			out = append(out, d.candidates[i])
		}
	}
	return out
}

// Select replaces the selection with the given candidate indexes.
func (d *Draft) Select(idx ...int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	next := make([]bool, len(d.candidates))
	for _, i := range idx {
		if i < 0 || i >= len(d.candidates) {
			return fmt.Errorf("image index %d out of range", i)
		}
		next[i] = true
	}
	d.selected = next
	return nil
}

// Remove drops candidate i.
func (d *Draft) Remove(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	if i < 0 || i >= len(d.candidates) {
		return fmt.Errorf("image index %d out of range", i)
	}
	d.candidates = append(d.candidates[:i], d.candidates[i+1:]...)
	d.selected = append(d.selected[:i], d.selected[i+1:]...)
	return nil
}

// Send closes the draft and sends the message with the selected images.
func (d *Draft) Send(ctx context.Context) (string, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", ErrDraftClosed
	}
	d.closed = true
	images := d.selectedLocked()
	d.candidates, d.selected = nil, nil
	d.mu.Unlock()
	return d.session.send(ctx, d.Message, images)
}

// Cancel discards the draft.
func (d *Draft) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.candidates, d.selected = nil, nil
}

// Closed reports whether the draft was sent or cancelled.
func (d *Draft) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
