// Package vision locates UI elements inside window captures, via OCR text
// matching or image template matching. Results carry a confidence score; a
// miss is a nil result, never an error.
package vision

import (
	"fmt"
	"image"
	"os/exec"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"

	"github.com/Kblack0610/clickytheclicker/internal/window"
)

// Strategy names a way of resolving a target.
type Strategy string

const (
	StrategyCapture  Strategy = "capture"
	StrategyText     Strategy = "text"
	StrategyTemplate Strategy = "template"
)

// Match is a candidate hit inside a capture. Coordinates are relative to the
// captured window's top-left corner.
type Match struct {
	X          int
	Y          int
	Confidence float64
	// Unverified marks heuristic guesses that were never confirmed against
	// the capture. They must not be reported as OCR or template hits.
	Unverified bool
}

// Locator resolves targets within window captures. Supports reports the
// strategies negotiated at construction; calls for an unsupported strategy
// return a guaranteed miss.
type Locator interface {
	Capture(win *window.Window) (image.Image, error)
	FindText(text string, img image.Image) *Match
	FindTemplate(path string, img image.Image, threshold float64) *Match
	Supports(s Strategy) bool
}

// Screen is the production Locator: robotgo captures, tesseract OCR, gcv
// template matching.
type Screen struct {
	logger        zerolog.Logger
	tesseractPath string // empty when tesseract is not installed
}

func NewScreen(logger zerolog.Logger) *Screen {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		logger.Warn().Msg("tesseract not found; text matching disabled")
		path = ""
	}
	return &Screen{logger: logger, tesseractPath: path}
}

func (s *Screen) Supports(strategy Strategy) bool {
	switch strategy {
	case StrategyCapture, StrategyTemplate:
		return true
	case StrategyText:
		return s.tesseractPath != ""
	}
	return false
}

// Capture grabs the window's current content from the screen.
func (s *Screen) Capture(win *window.Window) (image.Image, error) {
	if win == nil {
		return nil, fmt.Errorf("capture: no window")
	}
	img, err := robotgo.CaptureImg(win.X, win.Y, win.Width, win.Height)
	if err != nil {
		return nil, fmt.Errorf("capture window %d: %w", win.ID, err)
	}
	return img, nil
}
