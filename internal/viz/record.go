package viz

import (
	"fmt"
	"image"
	"image/gif"
	"os"
)

const (
	gifCellW = 8
	gifCellH = 16
	// maxFrames bounds memory while recording; later frames are dropped.
	maxFrames = 1800
)

// Recorder collects canvas frames for an animated GIF.
type Recorder struct {
	frames []*image.Paletted
	delay  int
}

// NewRecorder returns a recorder whose frames play back at fps.
func NewRecorder(fps int) *Recorder {
	delay := 2
	if fps > 0 {
		delay = max(1, 100/fps)
	}
	return &Recorder{delay: delay}
}

func (r *Recorder) Capture(c *Canvas) {
	if len(r.frames) >= maxFrames {
		return
	}
	r.frames = append(r.frames, c.Image(gifCellW, gifCellH))
}

func (r *Recorder) Len() int { return len(r.frames) }

func (r *Recorder) Save(path string) error {
	if len(r.frames) == 0 {
		return fmt.Errorf("no frames recorded")
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range r.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, r.delay)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(f, &anim); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
