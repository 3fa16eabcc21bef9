package modal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"taskdesk/internal/dom"
)

const page = `<html><body>
<div id="editModal" class="modal">
  <div class="modal-content">
    <form id="editForm"><input id="title" name="title" value=""></form>
    <button id="closeEdit">x</button>
  </div>
</div>
</body></html>`

func TestOpenCloseResetsForm(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(page))
	require.NoError(t, err)
	m := doc.GetElementByID("editModal")
	form := doc.GetElementByID("editForm")

	Open(m)
	require.True(t, IsOpen(m))
	doc.GetElementByID("title").SetValue("draft")

	Close(m, nil)
	require.False(t, IsOpen(m))
	require.Equal(t, "draft", doc.GetElementByID("title").Value())

	Open(m)
	Close(m, form)
	require.Equal(t, "", doc.GetElementByID("title").Value())
	require.True(t, m.HasClass("modal"))
}

func TestOutsideDismissOnlyOnBackdrop(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(page))
	require.NoError(t, err)
	m := doc.GetElementByID("editModal")
	closed := 0
	BindOutsideDismiss(m, func(context.Context) { closed++ })

	ctx := context.Background()
	doc.Dispatch(ctx, dom.Event{Type: dom.EventClick, Target: doc.GetElementByID("closeEdit")})
	require.Zero(t, closed)
	doc.Dispatch(ctx, dom.Event{Type: dom.EventClick, Target: m})
	require.Equal(t, 1, closed)
}
