// Package artifact writes finished photostrips to disk and produces
// the print-ready wrapper document.
package artifact

import (
	"bytes"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
)

// Filename returns the download name for a strip finished at ts:
// photostrip_YYYY-MM-DD_<ulid>.png. The ulid embeds ts so names sort
// chronologically.
func Filename(ts time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy())
	return fmt.Sprintf("photostrip_%s_%s.png", ts.Format("2006-01-02"), id)
}

// SavePNG encodes the strip into dir under a Filename-generated name
// and returns the full path.
func SavePNG(strip image.Image, dir string, ts time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, strip); err != nil {
		return "", fmt.Errorf("encode strip: %w", err)
	}
	path := filepath.Join(dir, Filename(ts))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write strip: %w", err)
	}
	return path, nil
}

// printDoc is the minimal page a dedicated print context loads. The
// image fills the page width and printing starts on load.
var printDoc = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}}</title>
<style>
  body { margin: 0; }
  img { width: 100%; display: block; }
  @page { margin: 0; }
</style>
</head>
<body onload="window.print()">
<img src="{{.Src}}" alt="photostrip">
</body>
</html>
`))

// PrintHTML renders the print wrapper for the strip at src (a file
// path or data URL).
func PrintHTML(title, src string) ([]byte, error) {
	var buf bytes.Buffer
	err := printDoc.Execute(&buf, struct {
		Title string
		Src   string
	}{Title: title, Src: src})
	if err != nil {
		return nil, fmt.Errorf("render print document: %w", err)
	}
	return buf.Bytes(), nil
}
