package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "house.frag", DownloadName("house.ifc", FormatIFC))
	assert.Equal(t, "house", DownloadName("house", FormatIFC))
	assert.Equal(t, "house.frag", DownloadName("house.frag", FormatFrag))
	assert.Equal(t, "a.ifc.frag", DownloadName("a.ifc.frag", FormatFrag))
}

func TestFormatFromName(t *testing.T) {
	assert.Equal(t, FormatIFC, FormatFromName("Model.IFC"))
	assert.Equal(t, FormatFrag, FormatFromName("model.frag"))
	assert.Equal(t, FormatFrag, FormatFromName("model"))
}
