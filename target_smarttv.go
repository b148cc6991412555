package livetable

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os/exec"

	"github.com/golang/glog"
	sprites "github.com/nimsforest/nimsforestsprites"
	smarttv "github.com/nimsforest/nimsforestsmarttv"
)

// SmartTVTarget shows the table on a Smart TV via DLNA, as a wall display
// for the testbed room. Each changed frame is drawn with nimsforestsprites
// and pushed as a JPEG with nimsforestsmarttv.
type SmartTVTarget struct {
	tv      *smarttv.TV
	display *smarttv.Renderer
	painter *sprites.Renderer

	painterOpts sprites.Options
	jfif        bool
	quality     int
	shown       []byte
}

// TVOption configures a SmartTVTarget.
type TVOption func(*SmartTVTarget)

// WithJFIF re-encodes pictures as JFIF, which some TVs insist on.
// Needs ffmpeg, and imagemagick when available.
func WithJFIF(enable bool) TVOption {
	return func(t *SmartTVTarget) {
		t.jfif = enable
	}
}

// WithSpriteOptions sets the sprite renderer options.
func WithSpriteOptions(opts sprites.Options) TVOption {
	return func(t *SmartTVTarget) {
		t.painterOpts = opts
	}
}

// WithJPEGQuality sets the quality of the built-in encoder, 1 to 100.
func WithJPEGQuality(q int) TVOption {
	return func(t *SmartTVTarget) {
		t.quality = q
	}
}

// NewSmartTVTarget creates a target that displays the table on tv.
func NewSmartTVTarget(tv *smarttv.TV, opts ...TVOption) (*SmartTVTarget, error) {
	t := &SmartTVTarget{
		tv:      tv,
		jfif:    true,
		quality: 85,
		painterOpts: sprites.Options{
			Width:     1920,
			Height:    1080,
			FrameRate: 1,
			UseGPU:    false,
		},
	}
	for _, opt := range opts {
		opt(t)
	}

	painter, err := sprites.New(t.painterOpts)
	if err != nil {
		return nil, fmt.Errorf("create sprite renderer: %w", err)
	}
	display, err := smarttv.NewRenderer()
	if err != nil {
		painter.Close()
		return nil, fmt.Errorf("create smarttv renderer: %w", err)
	}
	t.painter, t.display = painter, display
	return t, nil
}

// Name implements Target.
func (t *SmartTVTarget) Name() string {
	if t.tv == nil {
		return "SmartTV"
	}
	return "SmartTV(" + t.tv.Name + ")"
}

// Update implements Target. Frames that change nothing on screen are not sent.
func (t *SmartTVTarget) Update(ctx context.Context, frame *Frame) error {
	if frame.Patch.Empty() {
		return nil
	}

	picture := t.painter.Render(NewSpritesStateAdapter(frame))
	if picture == nil {
		return fmt.Errorf("render frame: sprites returned no image")
	}
	data, err := t.encode(picture)
	if err != nil {
		return fmt.Errorf("encode picture: %w", err)
	}

	// Content updates on hidden rows draw the same picture
	if bytes.Equal(data, t.shown) {
		glog.V(2).Infof("%s: unchanged picture, skipped", t.Name())
		return nil
	}
	if err := t.display.DisplayImageJPEG(ctx, t.tv, data); err != nil {
		return fmt.Errorf("display on TV: %w", err)
	}
	t.shown = data
	return nil
}

func (t *SmartTVTarget) encode(picture image.Image) ([]byte, error) {
	if t.jfif {
		return encodeJFIF(picture)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, toRGBA(picture), &jpeg.Options{Quality: t.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close implements Target.
func (t *SmartTVTarget) Close() error {
	if t.painter != nil {
		t.painter.Close()
	}
	if t.display != nil {
		t.display.Close()
	}
	return nil
}

// Stop stops playback on the TV.
func (t *SmartTVTarget) Stop(ctx context.Context) error {
	return t.display.Stop(ctx, t.tv)
}

// toRGBA returns img as an *image.RGBA, copying only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

// encodeJFIF pipes raw pixels through ffmpeg, then through imagemagick when
// it is installed.
func encodeJFIF(img image.Image) ([]byte, error) {
	rgba := toRGBA(img)
	size := rgba.Bounds().Size()

	var raw bytes.Buffer
	ffmpeg := exec.Command("ffmpeg", "-loglevel", "error",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", size.X, size.Y),
		"-i", "pipe:0",
		"-frames:v", "1", "-pix_fmt", "yuvj420p", "-q:v", "2",
		"-f", "image2pipe", "-c:v", "mjpeg", "pipe:1",
	)
	ffmpeg.Stdin = bytes.NewReader(rgba.Pix)
	ffmpeg.Stdout = &raw
	if err := ffmpeg.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}

	var jfif bytes.Buffer
	magick := exec.Command("magick", "jpg:-", "jpg:-")
	magick.Stdin = bytes.NewReader(raw.Bytes())
	magick.Stdout = &jfif
	if err := magick.Run(); err != nil {
		glog.V(1).Infof("smarttv: magick unavailable, sending ffmpeg output: %v", err)
		return raw.Bytes(), nil
	}
	return jfif.Bytes(), nil
}
