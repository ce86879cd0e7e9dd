package app

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/gobim/internal/viewer"
)

// buildUI lays out the toolbar, the side panels and the scene view
func (app *App) buildUI() fyne.CanvasObject {
	app.UI.status = widget.NewLabel("")
	app.UI.models = container.NewVBox()
	app.UI.tree = container.NewVBox()
	app.UI.properties = container.NewVBox()
	app.UI.section = app.newSectionPanel()

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), app.showFileDialog),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomFitIcon(), app.fitCamera),
		widget.NewToolbarAction(theme.HomeIcon(), app.resetCameraView),
		widget.NewToolbarAction(theme.VisibilityIcon(), app.showAll),
		widget.NewToolbarAction(theme.GridIcon(), app.toggleGrid),
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.HelpIcon(), app.showHelp),
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("Models", container.NewVScroll(app.UI.models)),
		container.NewTabItem("Classification", container.NewVScroll(app.UI.tree)),
		container.NewTabItem("Search", app.newSearchPanel()),
	)
	left := container.NewBorder(nil,
		container.NewVBox(widget.NewSeparator(), app.UI.section.content()),
		nil, nil, tabs)

	properties := container.NewVScroll(app.UI.properties)
	properties.SetMinSize(fyne.NewSize(300, 0))

	split := container.NewHSplit(left, container.NewBorder(nil, nil, nil, properties, app.view))
	split.Offset = 0.22

	app.window.Canvas().SetOnTypedKey(app.handleKey)
	return container.NewBorder(toolbar, app.UI.status, nil, nil, split)
}

// refreshPanels rebuilds every panel from viewer state
func (app *App) refreshPanels() {
	app.refreshModels()
	app.refreshClassification()
	app.UI.section.show(app.session.Viewer.Section.State())
	app.showSelection(app.session.Viewer.Selection.Selected())
	app.refreshStatus()
}

func (app *App) refreshStatus() {
	models := app.session.Viewer.Registry.Models()
	elements := 0
	for _, m := range models {
		elements += m.ElementCount
	}
	text := fmt.Sprintf("%d model(s), %d element(s)", len(models), elements)
	if n := app.FileWatch.loading.Load(); n > 0 {
		text += fmt.Sprintf(" - loading %d", n)
	}
	if app.FileWatch.watching {
		text += " - watching for changes"
	}
	app.UI.status.SetText(text)
}

// refreshModels lists every configured or opened model with its actions
func (app *App) refreshModels() {
	list := app.UI.models
	list.RemoveAll()
	descriptors := app.session.Descriptors()
	if len(descriptors) == 0 {
		list.Add(widget.NewLabel("No models configured.\nOpen a file to start."))
	}
	for _, d := range descriptors {
		list.Add(app.modelRow(d))
	}
	list.Refresh()
}

func (app *App) modelRow(d viewer.Descriptor) fyne.CanvasObject {
	reg := app.session.Viewer.Registry
	rec, loaded := reg.Get(d.ID)

	name := d.Name
	if name == "" {
		name = d.ID
	}
	title := widget.NewLabel(name)
	title.TextStyle = fyne.TextStyle{Bold: loaded}
	title.Truncation = fyne.TextTruncateEllipsis

	if reg.Loading(d.ID) {
		return container.NewBorder(nil, nil, nil, widget.NewProgressBarInfinite(), title)
	}
	if !loaded {
		load := widget.NewButtonWithIcon("", theme.DownloadIcon(), func() { app.loadModel(d.ID) })
		return container.NewBorder(nil, nil, nil, load, title)
	}

	visible := widget.NewCheck("", nil)
	visible.SetChecked(rec.Visible)
	visible.OnChanged = func(bool) { app.toggleModel(d.ID) }
	save := widget.NewButtonWithIcon("", theme.DocumentSaveIcon(), func() { app.saveModel(d.ID) })
	remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() { app.removeModel(d.ID) })

	info := widget.NewLabel(fmt.Sprintf("%s, %d elements", strings.ToUpper(string(rec.SourceFormat)), rec.ElementCount))
	info.Importance = widget.LowImportance
	return container.NewBorder(nil, nil, visible, container.NewHBox(save, remove),
		container.NewVBox(title, info))
}

// refreshClassification shows one expandable group per model with a check
// per category
func (app *App) refreshClassification() {
	tree := app.UI.tree
	tree.RemoveAll()
	groups := app.session.Viewer.Classification.Groups()
	if len(groups) == 0 {
		tree.Add(widget.NewLabel("No models loaded"))
	}
	for _, g := range groups {
		icon := theme.MenuExpandIcon()
		if g.Expanded {
			icon = theme.MenuDropDownIcon()
		}
		key := g.Key
		header := widget.NewButtonWithIcon(g.Label, icon, func() { app.toggleGroup(key) })
		header.Alignment = widget.ButtonAlignLeading
		header.Importance = widget.LowImportance
		tree.Add(header)
		if !g.Expanded {
			continue
		}
		for _, item := range g.Items {
			category := item.Category
			check := widget.NewCheck(fmt.Sprintf("%s (%d)", category, len(item.ElementIDs)), nil)
			check.SetChecked(item.Visible)
			check.OnChanged = func(bool) { app.toggleCategory(key, category) }
			tree.Add(container.NewPadded(check))
		}
	}
	tree.Refresh()
}

func (app *App) loadModel(id string) {
	app.background("load "+id, func() error {
		_, err := app.session.Load(app.ctx, id)
		return err
	})
}

func (app *App) toggleModel(id string) {
	app.background("toggle "+id, func() error {
		_, err := app.session.Viewer.Registry.ToggleVisibility(app.ctx, id)
		return err
	})
}

func (app *App) removeModel(id string) {
	dialog.ShowConfirm("Remove model", fmt.Sprintf("Unload %s?", id), func(ok bool) {
		if !ok {
			return
		}
		app.background("remove "+id, func() error {
			return app.session.Viewer.Registry.Remove(app.ctx, id)
		})
	}, app.window)
}

func (app *App) toggleGroup(key string) {
	if _, err := app.session.Viewer.Classification.ToggleExpanded(key); err != nil {
		dialog.ShowError(err, app.window)
		return
	}
	app.refreshClassification()
}

func (app *App) toggleCategory(key, category string) {
	app.background("toggle "+category, func() error {
		_, err := app.session.Viewer.Classification.ToggleCategory(app.ctx, key, category)
		return err
	})
}

func (app *App) showAll() {
	app.background("show all", func() error {
		app.session.Viewer.Classification.ShowAll(app.ctx)
		return nil
	})
}

// saveModel writes a loaded model's fragment bytes to a user chosen file
func (app *App) saveModel(id string) {
	dl, err := app.session.Viewer.Registry.Download(id)
	if err != nil {
		dialog.ShowError(err, app.window)
		return
	}
	save := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, app.window)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()
		if _, err := w.Write(dl.Bytes); err != nil {
			dialog.ShowError(fmt.Errorf("failed to write file: %w", err), app.window)
			return
		}
		app.log.Info("model saved", "model", id, "path", w.URI().Path())
	}, app.window)
	save.SetFileName(dl.FileName)
	save.Show()
}

// showFileDialog opens IFC or fragment files next to the configured models
func (app *App) showFileDialog() {
	open := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, app.window)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		r.Close()
		app.openFile(path)
	}, app.window)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".ifc", ".frag"}))
	open.Show()
}

func (app *App) openFile(path string) {
	app.background("open "+path, func() error {
		_, err := app.session.AddFile(app.ctx, path)
		return err
	})
}

func (app *App) showHelp() {
	dialog.ShowInformation("Controls", strings.Join([]string{
		"Click: select element",
		"Drag: orbit, shift or right drag: pan",
		"Scroll: zoom, moves the plane while the section is active",
		"F: fit, R: reset view, W: wireframe, G: grid",
		"1-6: front, back, left, right, top, bottom",
		"Esc: clear selection",
	}, "\n"), app.window)
}
