package vision

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/vcaesar/gcv"
)

// FindTemplate matches the template image against the capture and returns the
// center of the best match when its score clears the threshold.
func (s *Screen) FindTemplate(path string, img image.Image, threshold float64) *Match {
	if img == nil {
		return nil
	}

	tmpl, err := loadImage(path)
	if err != nil {
		s.logger.Debug().Str("template", path).Err(err).Msg("template load failed")
		return nil
	}

	_, maxVal, _, maxLoc := gcv.FindImg(tmpl, img)
	score := float64(maxVal)
	s.logger.Debug().Str("template", path).Float64("score", score).
		Float64("threshold", threshold).Msg("template match")
	if score < threshold {
		return nil
	}

	bounds := tmpl.Bounds()
	return &Match{
		X:          maxLoc.X + bounds.Dx()/2,
		Y:          maxLoc.Y + bounds.Dy()/2,
		Confidence: score,
	}
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}
