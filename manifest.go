package splotch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"

	"github.com/stjepangolemac/splotch/imaging"
)

// Icon sizes generated from the favicon for the web app manifest.
var iconSizes = []int{48, 72, 96, 144, 192, 256, 384, 512}

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

type webManifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	StartURL        string         `json:"start_url"`
	BackgroundColor string         `json:"background_color"`
	ThemeColor      string         `json:"theme_color"`
	Display         string         `json:"display"`
	Icons           []manifestIcon `json:"icons"`
}

func (a *App) faviconPath() string {
	return path.Join(a.Config.StaticDir, "favicon.png")
}

// renderManifest returns the web app manifest. Icons are square crops of
// favicon.png in the static directory; without one the list is empty.
func (a *App) renderManifest(ctx context.Context) ([]byte, error) {
	m := webManifest{
		Name:            a.Config.Title,
		ShortName:       a.Config.Title,
		StartURL:        "/",
		BackgroundColor: a.Config.BackgroundColor,
		ThemeColor:      a.Config.ThemeColor,
		Display:         "standalone",
		Icons:           []manifestIcon{},
	}
	for _, size := range iconSizes {
		v, err := a.images.Fixed(ctx, a.faviconPath(), imaging.FixedOptions{Width: size, Height: size, Quality: 90})
		if errors.Is(err, fs.ErrNotExist) {
			a.log.Debug("no favicon, manifest without icons")
			break
		}
		if err != nil {
			return nil, fmt.Errorf("manifest icon %d: %w", size, err)
		}
		s := strconv.Itoa(size)
		m.Icons = append(m.Icons, manifestIcon{Src: v.Src, Sizes: s + "x" + s, Type: "image/jpeg"})
	}
	return json.MarshalIndent(m, "", "  ")
}

// avatar returns the 50x50 bio picture, or a zero Variant when the assets
// directory has none.
func (a *App) avatar(ctx context.Context) (imaging.Variant, error) {
	v, err := a.images.Fixed(ctx, path.Join(a.Config.AssetsDir, "profile-pic.jpg"), imaging.FixedOptions{Width: 50, Height: 50, Quality: 90})
	if errors.Is(err, fs.ErrNotExist) {
		return imaging.Variant{}, nil
	}
	return v, err
}
