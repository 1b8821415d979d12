// Package imaging derives the fixed-size and responsive variants of the
// images referenced by posts and publishes them under /static.
package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// ErrUnsupportedFormat is returned for files that cannot be decoded as
// raster images.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// StaticPrefix is the URL (and output directory) under which published
// files live.
const StaticPrefix = "/static"

var imageExtensions = []string{".jpeg", ".jpg", ".png", ".gif", ".webp"}

// IsImage reports whether name has a raster image extension.
func IsImage(name string) bool {
	return lo.Contains(imageExtensions, strings.ToLower(path.Ext(name)))
}

// Variant is a single rendered file.
type Variant struct {
	Src    string `json:"src"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Fluid is a responsive set of widths sharing one aspect ratio.
type Fluid struct {
	Src         string    `json:"src"`
	SrcSet      string    `json:"srcSet"`
	Sizes       string    `json:"sizes"`
	AspectRatio float64   `json:"aspectRatio"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Variants    []Variant `json:"variants"`
}

// FixedOptions controls a cover-cropped variant.
type FixedOptions struct {
	Width   int
	Height  int
	Quality int
}

// FluidOptions controls a responsive variant set. Breakpoints larger than
// the source are dropped; MaxWidth is the presentation width.
type FluidOptions struct {
	MaxWidth    int
	Quality     int
	Breakpoints []int
}

// Cache persists computed variants across builds. Values are opaque JSON.
type Cache interface {
	GetVariant(ctx context.Context, key string) ([]byte, bool, error)
	PutVariant(ctx context.Context, key string, value []byte) error
}

// Processor reads sources from one filesystem and writes variants to
// another. Results are memoised in memory and, when a Cache is set, across
// runs.
type Processor struct {
	src   afero.Fs
	out   afero.Fs
	cache Cache
	log   *zap.SugaredLogger

	mu   sync.Mutex
	memo map[string][]byte
	sf   singleflight.Group
}

// NewProcessor returns a Processor. cache may be nil.
func NewProcessor(src, out afero.Fs, cache Cache, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		src:   src,
		out:   out,
		cache: cache,
		log:   logger.Sugar().Named("imaging"),
		memo:  make(map[string][]byte),
	}
}

type source struct {
	data []byte
	hash string
	name string
}

func (p *Processor) read(file string) (source, error) {
	data, err := afero.ReadFile(p.src, file)
	if err != nil {
		return source{}, fmt.Errorf("read %s: %w", file, err)
	}
	base := path.Base(file)
	return source{
		data: data,
		hash: strconv.FormatUint(xxhash.Sum64(data), 16),
		name: strings.TrimSuffix(base, path.Ext(base)),
	}, nil
}

func (s source) url(file string) string {
	return path.Join(StaticPrefix, s.hash, file)
}

// cached runs compute once per key. A hit is only trusted while every file
// it names still exists in the output filesystem.
func (p *Processor) cached(ctx context.Context, key string, out any, files func(any) []string, compute func() (any, error)) error {
	v, err, _ := p.sf.Do(key, func() (any, error) {
		p.mu.Lock()
		raw, ok := p.memo[key]
		p.mu.Unlock()
		if ok {
			if p.present(raw, out, files) {
				return raw, nil
			}
			p.forget(key)
		}

		if p.cache != nil {
			raw, ok, err := p.cache.GetVariant(ctx, key)
			if err != nil {
				p.log.Warnw("variant cache lookup failed", "key", key, "err", err)
			} else if ok && p.present(raw, out, files) {
				p.remember(key, raw)
				return raw, nil
			}
		}

		res, err := compute()
		if err != nil {
			return nil, err
		}
		raw, err = json.Marshal(res)
		if err != nil {
			return nil, err
		}
		if p.cache != nil {
			if err := p.cache.PutVariant(ctx, key, raw); err != nil {
				p.log.Warnw("variant cache store failed", "key", key, "err", err)
			}
		}
		p.remember(key, raw)
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), out)
}

func (p *Processor) remember(key string, raw []byte) {
	p.mu.Lock()
	p.memo[key] = raw
	p.mu.Unlock()
}

func (p *Processor) forget(key string) {
	p.mu.Lock()
	delete(p.memo, key)
	p.mu.Unlock()
}

func (p *Processor) present(raw []byte, out any, files func(any) []string) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	for _, f := range files(out) {
		if ok, _ := afero.Exists(p.out, f); !ok {
			return false
		}
	}
	return true
}

func (p *Processor) write(name string, data []byte) error {
	if err := p.out.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(p.out, name, data, 0o644)
}

func decode(data []byte) (image.Image, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return img, nil
}

// encode flattens transparency onto white and encodes as JPEG.
func encode(img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)

	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func scale(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// cover crops img around its centre to the target aspect ratio, then scales.
func cover(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	cw, ch := sw, sw*height/width
	if ch > sh {
		cw, ch = sh*width/height, sh
	}
	x0 := b.Min.X + (sw-cw)/2
	y0 := b.Min.Y + (sh-ch)/2
	crop := image.Rect(x0, y0, x0+cw, y0+ch)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Over, nil)
	return dst
}

func variantFiles(v any) []string {
	return []string{v.(*Variant).Src}
}

func fluidFiles(v any) []string {
	return lo.Map(v.(*Fluid).Variants, func(x Variant, _ int) string { return x.Src })
}

// Fixed renders file cropped to exactly opts.Width × opts.Height.
func (p *Processor) Fixed(ctx context.Context, file string, opts FixedOptions) (Variant, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return Variant{}, fmt.Errorf("fixed %s: invalid size %dx%d", file, opts.Width, opts.Height)
	}
	src, err := p.read(file)
	if err != nil {
		return Variant{}, err
	}
	key := fmt.Sprintf("fixed:%s:%dx%d:q%d", src.hash, opts.Width, opts.Height, opts.Quality)

	var v Variant
	err = p.cached(ctx, key, &v, variantFiles, func() (any, error) {
		img, err := decode(src.data)
		if err != nil {
			return nil, fmt.Errorf("fixed %s: %w", file, err)
		}
		data, err := encode(cover(img, opts.Width, opts.Height), opts.Quality)
		if err != nil {
			return nil, fmt.Errorf("fixed %s: %w", file, err)
		}
		out := Variant{
			Src:    src.url(fmt.Sprintf("%s-%dx%d.jpg", src.name, opts.Width, opts.Height)),
			Width:  opts.Width,
			Height: opts.Height,
		}
		if err := p.write(out.Src, data); err != nil {
			return nil, fmt.Errorf("fixed %s: %w", file, err)
		}
		p.log.Debugw("rendered fixed variant", "file", file, "src", out.Src)
		return out, nil
	})
	return v, err
}

// defaultBreakpoints spans a quarter to three times the presentation
// width, so inline images still get a useful srcset.
func defaultBreakpoints(maxWidth int) []int {
	return []int{maxWidth / 4, maxWidth / 2, maxWidth, maxWidth * 3 / 2, maxWidth * 2, maxWidth * 3}
}

// fluidWidths returns the sorted widths to render for a source of width w.
// When a breakpoint had to be dropped the source width itself is kept.
func fluidWidths(w int, opts FluidOptions) []int {
	present := w
	if opts.MaxWidth > 0 && opts.MaxWidth < w {
		present = opts.MaxWidth
	}
	breakpoints := opts.Breakpoints
	if len(breakpoints) == 0 && opts.MaxWidth > 0 {
		breakpoints = defaultBreakpoints(opts.MaxWidth)
	}
	widths := lo.Filter(breakpoints, func(b int, _ int) bool { return b > 0 && b <= w })
	if len(widths) < len(breakpoints) {
		widths = append(widths, w)
	}
	widths = lo.Uniq(append(widths, present))
	sort.Ints(widths)
	return widths
}

// Fluid renders file at every breakpoint not wider than the source.
func (p *Processor) Fluid(ctx context.Context, file string, opts FluidOptions) (Fluid, error) {
	src, err := p.read(file)
	if err != nil {
		return Fluid{}, err
	}
	key := fmt.Sprintf("fluid:%s:%d:q%d:%v", src.hash, opts.MaxWidth, opts.Quality, opts.Breakpoints)

	var f Fluid
	err = p.cached(ctx, key, &f, fluidFiles, func() (any, error) {
		img, err := decode(src.data)
		if err != nil {
			return nil, fmt.Errorf("fluid %s: %w", file, err)
		}
		b := img.Bounds()
		ratio := float64(b.Dx()) / float64(b.Dy())

		out := Fluid{AspectRatio: ratio}
		present := b.Dx()
		if opts.MaxWidth > 0 && opts.MaxWidth < present {
			present = opts.MaxWidth
		}
		var srcset []string
		for _, w := range fluidWidths(b.Dx(), opts) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			h := max(1, int(float64(w)/ratio+0.5))
			data, err := encode(scale(img, w, h), opts.Quality)
			if err != nil {
				return nil, fmt.Errorf("fluid %s: %w", file, err)
			}
			v := Variant{
				Src:    src.url(fmt.Sprintf("%s-%dx%d.jpg", src.name, w, h)),
				Width:  w,
				Height: h,
			}
			if err := p.write(v.Src, data); err != nil {
				return nil, fmt.Errorf("fluid %s: %w", file, err)
			}
			out.Variants = append(out.Variants, v)
			srcset = append(srcset, fmt.Sprintf("%s %dw", v.Src, w))
			if w == present {
				out.Src, out.Width, out.Height = v.Src, v.Width, v.Height
			}
		}
		out.SrcSet = strings.Join(srcset, ",\n")
		out.Sizes = fmt.Sprintf("(max-width: %dpx) 100vw, %dpx", present, present)
		p.log.Debugw("rendered fluid variants", "file", file, "count", len(out.Variants))
		return out, nil
	})
	return f, err
}

// Publish copies file unchanged to /static/<hash>/<base>. For images the
// returned variant carries the original dimensions.
func (p *Processor) Publish(ctx context.Context, file string) (Variant, error) {
	src, err := p.read(file)
	if err != nil {
		return Variant{}, err
	}
	key := "publish:" + src.hash + ":" + path.Base(file)

	var v Variant
	err = p.cached(ctx, key, &v, variantFiles, func() (any, error) {
		out := Variant{Src: src.url(path.Base(file))}
		if IsImage(file) {
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(src.data)); err == nil {
				out.Width, out.Height = cfg.Width, cfg.Height
			}
		}
		if err := p.write(out.Src, src.data); err != nil {
			return nil, fmt.Errorf("publish %s: %w", file, err)
		}
		return out, nil
	})
	return v, err
}
