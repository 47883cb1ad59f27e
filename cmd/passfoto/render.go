package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/passfoto/PassFoto/asset"
	"github.com/passfoto/PassFoto/config"
	"github.com/passfoto/PassFoto/pkg/country"
	"github.com/passfoto/PassFoto/pkg/i18n"
	"github.com/passfoto/PassFoto/pkg/photo"
	"github.com/passfoto/PassFoto/util/log"
)

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	in := fs.String("in", "", "input image (PNG or JPEG)")
	out := fs.String("out", "", "output PNG (default <in>_<country>.png)")
	photoType := fs.String("type", string(country.Passport), "photo type: passport or visa")
	code := fs.String("country", "", "country code for visa photos")
	bg := fs.String("bg", "", "background colour (default: the country's recommendation)")
	dpi := fs.Float64("dpi", config.DefaultDPI, "output resolution")
	anchor := fs.String("anchor", config.DefaultCropAnchor, "crop anchor: center, face or smart")
	faceModel := fs.String("face-model", "", "pigo cascade file for -anchor face")
	_ = fs.Parse(args)

	if *in == "" {
		fs.Usage()
		return fmt.Errorf("-in is required")
	}

	countries, err := country.LoadEmbedded(asset.NewManager())
	if err != nil {
		return err
	}
	c, err := countries.Resolve(country.PhotoType(*photoType), *code)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	capture, err := photo.NewCapturedImage(data)
	if err != nil {
		return err
	}

	engine, err := newEngine(*anchor, *faceModel)
	if err != nil {
		return err
	}
	result, err := engine.Transform(context.Background(), capture, c.Spec(*bg), *dpi)
	if err != nil {
		return err
	}

	target := *out
	if target == "" {
		base := strings.TrimSuffix(*in, filepath.Ext(*in))
		target = fmt.Sprintf("%s_%s.png", base, strings.ToLower(c.Code))
	}
	if err := os.WriteFile(target, result.PNG, 0644); err != nil {
		return err
	}
	log.Printf("Wrote %s (%dx%d @ %g dpi)", target, result.Width, result.Height, result.DPI)
	return nil
}

func runCountries(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("countries", flag.ExitOnError)
	lang := fs.String("lang", i18n.Fallback, "language for names")
	dpi := fs.Float64("dpi", config.DefaultDPI, "resolution for pixel sizes")
	_ = fs.Parse(args)

	am := asset.NewManager()
	countries, err := country.LoadEmbedded(am)
	if err != nil {
		return err
	}
	catalog, err := i18n.LoadEmbedded(am)
	if err != nil {
		return err
	}

	passport := countries.DefaultPassport().Code
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tSIZE (mm)\tPIXELS\tBACKGROUND\t")
	for _, c := range countries.All() {
		wPx, hPx, err := c.Spec("").PixelSize(*dpi)
		if err != nil {
			return err
		}
		name := c.Name(*lang)
		if c.Code == passport {
			name += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%gx%g\t%dx%d\t%s\t\n", c.Code, name, c.WidthMM, c.HeightMM, wPx, hPx,
			catalog.Lookup(*lang, "color."+c.Background))
	}
	return tw.Flush()
}
