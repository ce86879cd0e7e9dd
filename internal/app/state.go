package app

import (
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/gobim/pkg/geometry"
)

// CameraState remembers the fitted view so it can be restored
type CameraState struct {
	fitted        bool
	defaultDist   float64
	defaultAngleX float64
	defaultAngleY float64
	defaultTarget geometry.Vector3
}

// InteractionState tracks the pointer between events
type InteractionState struct {
	panning bool
}

// ViewSettings holds display settings
type ViewSettings struct {
	showWireframe bool
	showFilled    bool
	showGrid      bool
}

// FileWatchState tracks hot reload and background loads
type FileWatchState struct {
	watching bool
	loading  atomic.Int32
}

// UIState holds the widgets that are refreshed from viewer state
type UIState struct {
	status     *widget.Label
	models     *fyne.Container
	tree       *fyne.Container
	properties *fyne.Container
	section    *sectionPanel
	search     *widget.Entry
	results    *fyne.Container
}
