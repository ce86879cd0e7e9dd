package app

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/gobim/internal/viewer"
)

// showSelection fills the properties panel from a selection snapshot
func (app *App) showSelection(state viewer.SelectionState) {
	panel := app.UI.properties
	panel.RemoveAll()
	if state.Empty() {
		panel.Add(widget.NewLabel("Click an element to show its properties"))
		panel.Refresh()
		return
	}

	title := widget.NewLabel(state.ElementName)
	title.TextStyle = fyne.TextStyle{Bold: true}
	panel.Add(title)
	panel.Add(widget.NewLabel(fmt.Sprintf("Model: %s\nElement: #%d", state.ModelID, state.ElementID)))

	for _, set := range state.PropertySets {
		panel.Add(widget.NewSeparator())
		name := widget.NewLabel(set.Name)
		name.TextStyle = fyne.TextStyle{Bold: true}
		panel.Add(name)

		form := widget.NewForm()
		for _, p := range set.Properties {
			value := widget.NewLabel(p.Value)
			value.Wrapping = fyne.TextWrapWord
			form.Append(p.Name, value)
		}
		panel.Add(form)
	}
	panel.Refresh()
}

// selectElement selects a search result and shows it
func (app *App) selectElement(modelID string, localID int64) {
	go func() {
		if _, err := app.session.Viewer.Selection.Select(app.ctx, modelID, localID); err != nil {
			app.log.Warn("select failed", "model", modelID, "element", localID, "error", err)
		}
		state := app.session.Viewer.Selection.Selected()
		fyne.Do(func() { app.showSelection(state) })
	}()
}

// newSearchPanel builds the property search box with its result list
func (app *App) newSearchPanel() fyne.CanvasObject {
	app.UI.search = widget.NewEntry()
	app.UI.search.SetPlaceHolder("Search names, tags and properties")
	app.UI.results = container.NewVBox()
	app.UI.search.OnSubmitted = func(query string) { app.search(query) }
	return container.NewBorder(app.UI.search, nil, nil, nil, container.NewVScroll(app.UI.results))
}

func (app *App) search(query string) {
	go func() {
		matches, err := app.session.Index.Search(app.ctx, query, 50)
		fyne.Do(func() {
			app.UI.results.RemoveAll()
			if err != nil {
				app.UI.results.Add(widget.NewLabel(err.Error()))
				app.UI.results.Refresh()
				return
			}
			if len(matches) == 0 {
				app.UI.results.Add(widget.NewLabel("No matches"))
			}
			for _, m := range matches {
				label := fmt.Sprintf("%s #%d %s (%s)", m.ModelID, m.LocalID, m.Name, m.Category)
				app.UI.results.Add(widget.NewButton(label, func() {
					app.selectElement(m.ModelID, m.LocalID)
				}))
			}
			app.UI.results.Refresh()
		})
	}()
}
