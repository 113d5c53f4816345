package vision

import (
	"bufio"
	"bytes"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-vgo/robotgo"
)

// runTesseract invokes the tesseract CLI in TSV output mode.
func runTesseract(bin, imgPath string) ([]byte, error) {
	cmd := exec.Command(bin, imgPath, "stdout", "tsv")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// wordBox is one OCR-detected word with its bounding box and confidence in
// the 0..1 range.
type wordBox struct {
	Text       string
	X, Y       int
	W, H       int
	Confidence float64
}

// FindText runs OCR over the capture and returns the best match for text, or
// nil when nothing sufficiently similar was found. Matching prefers an exact
// case-insensitive hit, then substring, then fuzzy similarity; multi-word
// targets fall back to token matching when at least half the tokens are
// found.
func (s *Screen) FindText(text string, img image.Image) *Match {
	if s.tesseractPath == "" || img == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	boxes, err := s.recognize(img)
	if err != nil {
		s.logger.Debug().Err(err).Msg("ocr failed")
		return nil
	}
	if len(boxes) == 0 {
		return nil
	}

	if m := bestDirectMatch(text, boxes); m != nil {
		s.logger.Debug().Str("text", text).Int("x", m.X).Int("y", m.Y).
			Float64("confidence", m.Confidence).Msg("direct text match")
		return m
	}
	if m := bestTokenMatch(text, boxes); m != nil {
		s.logger.Debug().Str("text", text).Int("x", m.X).Int("y", m.Y).
			Float64("confidence", m.Confidence).Msg("partial text match")
		return m
	}
	return nil
}

// recognize shells out to tesseract in TSV mode and parses the word boxes.
func (s *Screen) recognize(img image.Image) ([]wordBox, error) {
	tmp, err := os.CreateTemp("", "clicky-ocr-*.png")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	if err := robotgo.Save(img, tmpPath); err != nil {
		return nil, err
	}

	out, err := runTesseract(s.tesseractPath, tmpPath)
	if err != nil {
		return nil, err
	}
	return parseTSV(out), nil
}

// parseTSV extracts word-level boxes from tesseract's TSV output. Columns:
// level page block par line word left top width height conf text.
func parseTSV(out []byte) []wordBox {
	var boxes []wordBox
	scanner := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for scanner.Scan() {
		if first {
			first = false // header row
			continue
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue // non-word rows report conf -1
		}
		word := strings.TrimSpace(fields[11])
		if word == "" {
			continue
		}
		conf /= 100.0
		if conf < 0.2 {
			continue // drop extreme low-confidence noise
		}
		left, _ := strconv.Atoi(fields[6])
		top, _ := strconv.Atoi(fields[7])
		width, _ := strconv.Atoi(fields[8])
		height, _ := strconv.Atoi(fields[9])
		boxes = append(boxes, wordBox{
			Text:       word,
			X:          left,
			Y:          top,
			W:          width,
			H:          height,
			Confidence: conf,
		})
	}
	return boxes
}

// bestDirectMatch finds the highest-confidence box whose text matches the
// whole target.
func bestDirectMatch(text string, boxes []wordBox) *Match {
	var best *wordBox
	for i := range boxes {
		if !textMatches(boxes[i].Text, text, 0.75) {
			continue
		}
		if best == nil || boxes[i].Confidence > best.Confidence {
			best = &boxes[i]
		}
	}
	if best == nil {
		return nil
	}
	return &Match{
		X:          best.X + best.W/2,
		Y:          best.Y + best.H/2,
		Confidence: best.Confidence,
	}
}

// bestTokenMatch matches a multi-word target token by token. At least half
// the tokens must be found; the click point is the center of the union of the
// matched boxes and the confidence is the average token confidence weighted
// by the fraction matched.
func bestTokenMatch(text string, boxes []wordBox) *Match {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) < 2 {
		return nil
	}

	matched := make(map[string]wordBox, len(tokens))
	for _, tok := range tokens {
		for _, box := range boxes {
			boxText := strings.ToLower(box.Text)
			if !textMatches(boxText, tok, 0.8) && !strings.Contains(boxText, tok) {
				continue
			}
			if prev, ok := matched[tok]; !ok || box.Confidence > prev.Confidence {
				matched[tok] = box
			}
		}
	}

	fraction := float64(len(matched)) / float64(len(tokens))
	if fraction < 0.5 {
		return nil
	}

	minX, minY := int(^uint(0)>>1), int(^uint(0)>>1)
	maxX, maxY := 0, 0
	confSum := 0.0
	for _, box := range matched {
		if box.X < minX {
			minX = box.X
		}
		if box.Y < minY {
			minY = box.Y
		}
		if box.X+box.W > maxX {
			maxX = box.X + box.W
		}
		if box.Y+box.H > maxY {
			maxY = box.Y + box.H
		}
		confSum += box.Confidence
	}
	avgConf := confSum / float64(len(matched))

	return &Match{
		X:          minX + (maxX-minX)/2,
		Y:          minY + (maxY-minY)/2,
		Confidence: fraction * avgConf,
	}
}

// textMatches compares OCR output against a target with tolerance for common
// OCR noise: exact case-insensitive match, substring containment, then fuzzy
// similarity over the alphanumeric content.
func textMatches(found, target string, fuzzyThreshold float64) bool {
	if found == "" || target == "" {
		return false
	}
	foundLower := strings.ToLower(found)
	targetLower := strings.ToLower(target)
	if foundLower == targetLower {
		return true
	}
	if strings.Contains(foundLower, targetLower) {
		return true
	}
	foundClean := cleanAlnum(foundLower)
	targetClean := cleanAlnum(targetLower)
	if foundClean == "" || targetClean == "" {
		return false
	}
	return similarity(foundClean, targetClean) >= fuzzyThreshold
}

func cleanAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// similarity is 2*LCS/(len(a)+len(b)), a ratio in 0..1 where 1 means equal.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(b)]
	return 2 * float64(lcs) / float64(len(a)+len(b))
}
