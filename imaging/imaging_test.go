package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
}

func (c *memCache) GetVariant(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) PutVariant(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	c.puts++
	return nil
}

func writePNG(t *testing.T, fs afero.Fs, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, afero.WriteFile(fs, name, buf.Bytes(), 0o644))
}

func decodeJPEG(t *testing.T, fs afero.Fs, name string) image.Image {
	t.Helper()
	data, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestFixedCropsToExactSize(t *testing.T) {
	src, out := afero.NewMemMapFs(), afero.NewMemMapFs()
	writePNG(t, src, "/posts/hello/cover.png", 400, 100)
	p := NewProcessor(src, out, nil, nil)

	v, err := p.Fixed(context.Background(), "/posts/hello/cover.png", FixedOptions{Width: 120, Height: 60, Quality: 75})
	require.NoError(t, err)
	assert.Equal(t, 120, v.Width)
	assert.Equal(t, 60, v.Height)
	assert.True(t, strings.HasPrefix(v.Src, "/static/"))
	assert.True(t, strings.HasSuffix(v.Src, "/cover-120x60.jpg"))

	img := decodeJPEG(t, out, v.Src)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestFixedRejectsInvalidSize(t *testing.T) {
	p := NewProcessor(afero.NewMemMapFs(), afero.NewMemMapFs(), nil, nil)
	_, err := p.Fixed(context.Background(), "x.png", FixedOptions{})
	assert.Error(t, err)
}

func TestFluidNeverUpscales(t *testing.T) {
	src, out := afero.NewMemMapFs(), afero.NewMemMapFs()
	writePNG(t, src, "/a.png", 600, 300)
	p := NewProcessor(src, out, nil, nil)

	f, err := p.Fluid(context.Background(), "/a.png", FluidOptions{
		MaxWidth:    1440,
		Quality:     100,
		Breakpoints: []int{200, 340, 520, 890, 1440},
	})
	require.NoError(t, err)

	widths := make([]int, len(f.Variants))
	for i, v := range f.Variants {
		widths[i] = v.Width
	}
	assert.Equal(t, []int{200, 340, 520, 600}, widths)
	assert.Equal(t, 600, f.Width)
	assert.Equal(t, 300, f.Height)
	assert.InDelta(t, 2.0, f.AspectRatio, 0.001)
	assert.Equal(t, "(max-width: 600px) 100vw, 600px", f.Sizes)
	assert.Contains(t, f.SrcSet, "-200x100.jpg 200w")
	assert.Contains(t, f.SrcSet, "-600x300.jpg 600w")
	for _, v := range f.Variants {
		ok, err := afero.Exists(out, v.Src)
		require.NoError(t, err)
		assert.True(t, ok, v.Src)
	}
}

func TestFluidPresentationWidthIsMaxWidth(t *testing.T) {
	assert.Equal(t, []int{100, 300, 590}, fluidWidths(1000, FluidOptions{MaxWidth: 590, Breakpoints: []int{100, 300}}))
	assert.Equal(t, []int{147, 295, 590, 885, 1000}, fluidWidths(1000, FluidOptions{MaxWidth: 590}))
	assert.Equal(t, []int{590}, fluidWidths(590, FluidOptions{MaxWidth: 590, Breakpoints: []int{590}}))
	assert.Equal(t, []int{200}, fluidWidths(200, FluidOptions{MaxWidth: 590, Breakpoints: []int{200, 400}}))
}

func TestFluidDefaultBreakpoints(t *testing.T) {
	src, out := afero.NewMemMapFs(), afero.NewMemMapFs()
	writePNG(t, src, "/wide.png", 2000, 1000)
	p := NewProcessor(src, out, nil, nil)

	f, err := p.Fluid(context.Background(), "/wide.png", FluidOptions{MaxWidth: 590})
	require.NoError(t, err)

	widths := make([]int, len(f.Variants))
	for i, v := range f.Variants {
		widths[i] = v.Width
	}
	assert.Equal(t, []int{147, 295, 590, 885, 1180, 1770}, widths)
	assert.Equal(t, 590, f.Width)
	assert.Contains(t, f.SrcSet, "-1770x885.jpg 1770w")
	assert.Equal(t, "(max-width: 590px) 100vw, 590px", f.Sizes)
}

func TestFixedRegeneratesRemovedFile(t *testing.T) {
	src, out := afero.NewMemMapFs(), afero.NewMemMapFs()
	writePNG(t, src, "/a.png", 80, 40)
	p := NewProcessor(src, out, nil, nil)
	opts := FixedOptions{Width: 20, Height: 20, Quality: 75}

	first, err := p.Fixed(context.Background(), "/a.png", opts)
	require.NoError(t, err)
	require.NoError(t, out.Remove(first.Src))

	second, err := p.Fixed(context.Background(), "/a.png", opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	ok, err := afero.Exists(out, second.Src)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPublishKeepsOriginal(t *testing.T) {
	src, out := afero.NewMemMapFs(), afero.NewMemMapFs()
	writePNG(t, src, "/a.png", 30, 20)
	p := NewProcessor(src, out, nil, nil)

	v, err := p.Publish(context.Background(), "/a.png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(v.Src, "/a.png"))
	assert.Equal(t, 30, v.Width)
	assert.Equal(t, 20, v.Height)

	orig, _ := afero.ReadFile(src, "/a.png")
	copied, err := afero.ReadFile(out, v.Src)
	require.NoError(t, err)
	assert.Equal(t, orig, copied)
}

func TestPublishNonImage(t *testing.T) {
	src, out := afero.NewMemMapFs(), afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/doc.pdf", []byte("%PDF-1.4"), 0o644))
	p := NewProcessor(src, out, nil, nil)

	v, err := p.Publish(context.Background(), "/doc.pdf")
	require.NoError(t, err)
	assert.Zero(t, v.Width)
	assert.True(t, strings.HasSuffix(v.Src, "/doc.pdf"))
}

func TestUnsupportedFormat(t *testing.T) {
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/notes.png", []byte("just text"), 0o644))
	p := NewProcessor(src, afero.NewMemMapFs(), nil, nil)

	_, err := p.Fixed(context.Background(), "/notes.png", FixedOptions{Width: 10, Height: 10})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestPersistentCacheReusedAndRegenerated(t *testing.T) {
	src, out := afero.NewMemMapFs(), afero.NewMemMapFs()
	writePNG(t, src, "/a.png", 50, 50)
	cache := &memCache{}
	opts := FixedOptions{Width: 10, Height: 10, Quality: 75}

	first, err := NewProcessor(src, out, cache, nil).Fixed(context.Background(), "/a.png", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	// A fresh processor trusts the persistent cache while the file exists.
	second, err := NewProcessor(src, out, cache, nil).Fixed(context.Background(), "/a.png", opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.puts)

	// Missing output forces regeneration.
	require.NoError(t, out.Remove(first.Src))
	third, err := NewProcessor(src, out, cache, nil).Fixed(context.Background(), "/a.png", opts)
	require.NoError(t, err)
	assert.Equal(t, first, third)
	assert.Equal(t, 2, cache.puts)
	ok, _ := afero.Exists(out, third.Src)
	assert.True(t, ok)
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("a/b/Cover.JPG"))
	assert.True(t, IsImage("x.webp"))
	assert.False(t, IsImage("x.pdf"))
	assert.False(t, IsImage("x"))
}
