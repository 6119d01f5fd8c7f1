package artifact

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snapstrip/internal/testutil"
)

func TestFilename_Pattern(t *testing.T) {
	ts := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)
	name := Filename(ts)
	assert.Regexp(t, regexp.MustCompile(`^photostrip_2026-08-31_[0-9A-HJKMNP-TV-Z]{26}\.png$`), name)
}

func TestFilename_SortsChronologically(t *testing.T) {
	early := Filename(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	late := Filename(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, early, late)
}

func TestSavePNG_WritesDecodableFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "strips")
	strip := testutil.SolidImage(20, 30, color.Black)

	path, err := SavePNG(strip, dir, time.Now())
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path), "nested output dir is created")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestPrintHTML(t *testing.T) {
	doc, err := PrintHTML("Photostrip", "photostrip_2026-08-31_X.png")
	require.NoError(t, err)

	s := string(doc)
	assert.Contains(t, s, `src="photostrip_2026-08-31_X.png"`)
	assert.Contains(t, s, "window.print()")
	assert.Contains(t, s, "<title>Photostrip</title>")
}

func TestPrintHTML_EscapesTitle(t *testing.T) {
	doc, err := PrintHTML("<script>", "x.png")
	require.NoError(t, err)
	assert.NotContains(t, string(doc), "<script>")
}
