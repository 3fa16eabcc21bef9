// Package modal shows and hides dialog elements.
package modal

import (
	"context"

	"taskdesk/internal/dom"
)

// VisibleClass marks an open modal.
const VisibleClass = "show"

func Open(modal *dom.Element) {
	modal.AddClass(VisibleClass)
}

// Close hides modal and, when form is non-nil, resets its fields.
func Close(modal, form *dom.Element) {
	modal.RemoveClass(VisibleClass)
	if form != nil {
		form.Reset()
	}
}

func IsOpen(modal *dom.Element) bool {
	return modal.HasClass(VisibleClass)
}

// BindOutsideDismiss calls onClose when a click lands on the modal backdrop
// itself. Clicks on the dialog content bubble through but are ignored.
func BindOutsideDismiss(modal *dom.Element, onClose func(ctx context.Context)) {
	modal.AddEventListener(dom.EventClick, func(ctx context.Context, ev dom.Event) {
		if ev.Target.Is(modal) {
			onClose(ctx)
		}
	})
}
