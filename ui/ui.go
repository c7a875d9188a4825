// Package ui binds Dragonfly menu and modal form buttons to callbacks.
package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"
	"github.com/df-mc/dragonfly/server/world"
)

// ErrInvalidArgument is returned by Build for malformed forms.
var ErrInvalidArgument = errors.New("ui: invalid argument")

// Event is passed to form handlers. It runs on the submitter's world
// goroutine; Tx is valid for the duration of the handler.
type Event struct {
	Submitter form.Submitter
	Tx        *world.Tx
	// Button is the pressed button. It is zero when the form was closed.
	Button form.Button
	// Index is the position of the pressed button, or -1 when closed.
	Index int
}

// Player returns the submitter as a player, or nil.
func (e *Event) Player() *player.Player {
	if e == nil {
		return nil
	}
	p, _ := e.Submitter.(*player.Player)
	return p
}

// Closed reports whether the form was closed without pressing a button.
func (e *Event) Closed() bool {
	return e.Index < 0
}

// Handler handles a form event.
type Handler func(e *Event)

func (h Handler) call(sub form.Submitter, tx *world.Tx, b form.Button, index int) {
	if h != nil {
		h(&Event{Submitter: sub, Tx: tx, Button: b, Index: index})
	}
}

type menuButton struct {
	button  form.Button
	handler Handler
}

// MenuBuilder configures a menu form.
type MenuBuilder struct {
	title   string
	body    []string
	buttons []menuButton
	close   Handler
}

// NewMenu starts a menu titled title.
func NewMenu(title string) *MenuBuilder {
	return &MenuBuilder{title: title}
}

// Body sets the text shown above the buttons, one line per argument.
func (b *MenuBuilder) Body(lines ...string) *MenuBuilder {
	b.body = lines
	return b
}

// Button adds a button. image is a texture path or URL and may be empty.
func (b *MenuBuilder) Button(text, image string, h Handler) *MenuBuilder {
	b.buttons = append(b.buttons, menuButton{button: form.NewButton(text, image), handler: h})
	return b
}

// OnClose sets the handler run when the menu is closed.
func (b *MenuBuilder) OnClose(h Handler) *MenuBuilder {
	b.close = h
	return b
}

// Build returns the menu. It needs at least one button and no two buttons
// with the same text and image.
func (b *MenuBuilder) Build() (form.Menu, error) {
	if len(b.buttons) == 0 {
		return form.Menu{}, fmt.Errorf("%w: menu %q has no buttons", ErrInvalidArgument, b.title)
	}
	seen := make(map[form.Button]struct{}, len(b.buttons))
	buttons := make([]form.Button, len(b.buttons))
	for i, mb := range b.buttons {
		if _, dup := seen[mb.button]; dup {
			return form.Menu{}, fmt.Errorf("%w: menu %q has duplicate button %q", ErrInvalidArgument, b.title, mb.button.Text)
		}
		seen[mb.button] = struct{}{}
		buttons[i] = mb.button
	}
	m := menu{buttons: append([]menuButton(nil), b.buttons...), close: b.close}
	f := form.NewMenu(m, b.title).WithButtons(buttons...)
	if len(b.body) > 0 {
		f = f.WithBody(strings.Join(b.body, "\n"))
	}
	return f, nil
}

// menu dispatches a pressed button to its handler.
type menu struct {
	buttons []menuButton
	close   Handler
}

// Submit runs the handler of the pressed button.
func (m menu) Submit(sub form.Submitter, pressed form.Button, tx *world.Tx) {
	for i, mb := range m.buttons {
		if mb.button == pressed {
			mb.handler.call(sub, tx, pressed, i)
			return
		}
	}
}

func (m menu) Close(sub form.Submitter, tx *world.Tx) {
	m.close.call(sub, tx, form.Button{}, -1)
}

// ModalBuilder configures a two-button modal form.
type ModalBuilder struct {
	title         string
	body          []string
	confirm, deny *menuButton
	close         Handler
}

// NewModal starts a modal titled title.
func NewModal(title string) *ModalBuilder {
	return &ModalBuilder{title: title}
}

// Body sets the modal text, one line per argument.
func (b *ModalBuilder) Body(lines ...string) *ModalBuilder {
	b.body = lines
	return b
}

// Confirm sets the first button.
func (b *ModalBuilder) Confirm(text string, h Handler) *ModalBuilder {
	b.confirm = &menuButton{button: form.NewButton(text, ""), handler: h}
	return b
}

// Cancel sets the second button.
func (b *ModalBuilder) Cancel(text string, h Handler) *ModalBuilder {
	b.deny = &menuButton{button: form.NewButton(text, ""), handler: h}
	return b
}

// OnClose sets the handler run when the modal is closed.
func (b *ModalBuilder) OnClose(h Handler) *ModalBuilder {
	b.close = h
	return b
}

// Build returns the modal. Both buttons are required and must differ.
func (b *ModalBuilder) Build() (form.Modal, error) {
	if b.confirm == nil || b.deny == nil {
		return form.Modal{}, fmt.Errorf("%w: modal %q needs a confirm and a cancel button", ErrInvalidArgument, b.title)
	}
	if b.confirm.button == b.deny.button {
		return form.Modal{}, fmt.Errorf("%w: modal %q has two %q buttons", ErrInvalidArgument, b.title, b.confirm.button.Text)
	}
	m := modal{
		Confirm:   b.confirm.button,
		Cancel:    b.deny.button,
		onConfirm: b.confirm.handler,
		onCancel:  b.deny.handler,
		close:     b.close,
	}
	f := form.NewModal(m, b.title)
	if len(b.body) > 0 {
		f = f.WithBody(strings.Join(b.body, "\n"))
	}
	return f, nil
}

// modal holds the two buttons as the exported fields form.NewModal reads.
type modal struct {
	Confirm form.Button
	Cancel  form.Button

	onConfirm, onCancel Handler
	close               Handler
}

func (m modal) Submit(sub form.Submitter, pressed form.Button, tx *world.Tx) {
	switch pressed {
	case m.Confirm:
		m.onConfirm.call(sub, tx, pressed, 0)
	case m.Cancel:
		m.onCancel.call(sub, tx, pressed, 1)
	}
}

func (m modal) Close(sub form.Submitter, tx *world.Tx) {
	m.close.call(sub, tx, form.Button{}, -1)
}
