package app

import (
	"errors"
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/philipparndt/gobim/pkg/geometry"
)

// sectionPanel controls the section tool. Widget updates coming from viewer
// state are guarded so they do not call back into the viewer.
type sectionPanel struct {
	app      *App
	active   *widget.Check
	axis     *widget.RadioGroup
	offset   *widget.Slider
	value    *widget.Label
	updating bool
}

func (app *App) newSectionPanel() *sectionPanel {
	p := &sectionPanel{app: app}
	p.active = widget.NewCheck("Section", p.toggle)
	p.axis = widget.NewRadioGroup([]string{"X", "Y", "Z"}, p.selectAxis)
	p.axis.Horizontal = true
	p.offset = widget.NewSlider(0, 1)
	p.offset.OnChanged = p.move
	p.value = widget.NewLabel("")
	return p
}

func (p *sectionPanel) content() fyne.CanvasObject {
	return container.NewVBox(
		p.active,
		p.axis,
		p.offset,
		p.value,
	)
}

// show reflects a section snapshot in the widgets
func (p *sectionPanel) show(state viewer.SectionState) {
	p.updating = true
	defer func() { p.updating = false }()

	p.active.SetChecked(state.Active)
	p.axis.SetSelected(strings.ToUpper(state.Axis.String()))
	if !state.HasBounds {
		p.active.Disable()
		p.offset.Disable()
		p.value.SetText("No model to cut")
		return
	}
	p.active.Enable()
	p.offset.Min = state.Min()
	p.offset.Max = state.Max()
	if step := p.app.session.Viewer.Section.Step(); step > 0 {
		p.offset.Step = step
	}
	p.offset.SetValue(state.Offset)
	if state.Active {
		p.offset.Enable()
	} else {
		p.offset.Disable()
	}
	p.value.SetText(fmt.Sprintf("%s = %.2f  [%.2f, %.2f]", state.Axis, state.Offset, state.Min(), state.Max()))
}

func (p *sectionPanel) toggle(checked bool) {
	if p.updating {
		return
	}
	section := p.app.session.Viewer.Section
	if !checked {
		p.show(section.Deactivate(p.app.ctx))
		return
	}
	state, err := section.Activate(p.app.ctx, nil)
	if err != nil {
		p.fail(err)
	}
	p.show(state)
	p.app.view.Refresh()
}

func (p *sectionPanel) selectAxis(label string) {
	if p.updating || label == "" {
		return
	}
	axis, err := geometry.ParseAxis(label)
	if err != nil {
		p.fail(err)
		return
	}
	state, err := p.app.session.Viewer.Section.SetAxis(p.app.ctx, axis)
	if err != nil {
		p.fail(err)
	}
	p.show(state)
	p.app.view.Refresh()
}

func (p *sectionPanel) move(value float64) {
	if p.updating {
		return
	}
	state, err := p.app.session.Viewer.Section.SetOffset(p.app.ctx, value)
	if err != nil {
		p.fail(err)
	}
	p.show(state)
}

func (p *sectionPanel) fail(err error) {
	if errors.Is(err, viewer.ErrNoSectionBounds) {
		err = fmt.Errorf("load a model before using the section tool: %w", err)
	}
	dialog.ShowError(err, p.app.window)
}
