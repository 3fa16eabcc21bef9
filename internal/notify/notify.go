// Package notify shows the console's transient toast and its blocking alert
// and confirmation dialogs.
package notify

import (
	"context"
	"fmt"
	"time"

	"taskdesk/internal/dom"
	"taskdesk/internal/modal"
)

// DefaultTTL is how long a success toast stays visible.
const DefaultTTL = 3 * time.Second

// Elements are the page nodes the notifier writes to.
type Elements struct {
	Toast          *dom.Element
	AlertModal     *dom.Element
	AlertMessage   *dom.Element
	ConfirmModal   *dom.Element
	ConfirmMessage *dom.Element
}

// Notifier belongs to one page session and is only used while that session's
// lock is held.
type Notifier struct {
	el  Elements
	TTL time.Duration
	Now func() time.Time

	shownAt   time.Time
	rendered  bool
	onConfirm func(ctx context.Context)
}

func New(el Elements, ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{el: el, TTL: ttl, Now: time.Now}
}

func (n *Notifier) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// Success shows msg in the toast. Its fade-out animation lasts the TTL.
func (n *Notifier) Success(msg string) {
	n.el.Toast.SetText(msg)
	n.el.Toast.AddClass(modal.VisibleClass)
	n.el.Toast.SetAttr("style", fmt.Sprintf("animation-duration: %gs", n.TTL.Seconds()))
	n.shownAt = n.now()
	n.rendered = false
}

// Expire runs before each render. A toast goes out in one page only: the
// render after that one, or any render once the TTL has elapsed, hides it.
func (n *Notifier) Expire() {
	if !n.el.Toast.HasClass(modal.VisibleClass) {
		return
	}
	if n.rendered || n.now().Sub(n.shownAt) >= n.TTL {
		n.el.Toast.RemoveClass(modal.VisibleClass)
		n.el.Toast.RemoveAttr("style")
		n.el.Toast.SetText("")
		n.rendered = false
		return
	}
	n.rendered = true
}

// Alert opens the blocking alert dialog with msg.
func (n *Notifier) Alert(msg string) {
	n.el.AlertMessage.SetText(msg)
	modal.Open(n.el.AlertModal)
}

func (n *Notifier) DismissAlert(context.Context) {
	modal.Close(n.el.AlertModal, nil)
}

// Confirm asks msg and runs onConfirm only if the user accepts. A second
// Confirm before an answer replaces the pending one.
func (n *Notifier) Confirm(_ context.Context, msg string, onConfirm func(ctx context.Context)) {
	n.el.ConfirmMessage.SetText(msg)
	n.onConfirm = onConfirm
	modal.Open(n.el.ConfirmModal)
}

// Accept closes the confirmation dialog and runs the pending action.
func (n *Notifier) Accept(ctx context.Context) {
	fn := n.onConfirm
	n.onConfirm = nil
	modal.Close(n.el.ConfirmModal, nil)
	if fn != nil {
		fn(ctx)
	}
}

// Decline closes the confirmation dialog and drops the pending action.
func (n *Notifier) Decline(context.Context) {
	n.onConfirm = nil
	modal.Close(n.el.ConfirmModal, nil)
}
