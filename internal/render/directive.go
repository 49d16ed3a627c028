package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/page"

	"chromium-pdf/internal/config"
	"chromium-pdf/internal/domain"
)

// pixelsPerInch is the CSS reference pixel density used by Chromium.
const pixelsPerInch = 96.0

// Directive is the set of capture instructions derived from RenderOptions.
// The format name is carried verbatim; resolution against the paper-size
// table happens when the print parameters are built.
type Directive struct {
	Format          string
	Landscape       bool
	PrintBackground bool
	Margins         map[string]string
	Scale           float64
	FitToContent    bool
}

// translate maps the public options onto a capture directive. Margins are
// included only when present; absent ones stay absent instead of
// defaulting to zero. Scale passes through only when non-zero, unclamped.
func translate(opts domain.RenderOptions) Directive {
	opts = opts.WithDefaults()

	d := Directive{
		Format:          opts.Format,
		Landscape:       opts.Landscape,
		PrintBackground: *opts.PrintBackground,
		Scale:           opts.Scale,
		FitToContent:    *opts.FitToContent,
	}

	margins := map[string]string{}
	if opts.MarginTop != "" {
		margins["top"] = opts.MarginTop
	}
	if opts.MarginBottom != "" {
		margins["bottom"] = opts.MarginBottom
	}
	if opts.MarginLeft != "" {
		margins["left"] = opts.MarginLeft
	}
	if opts.MarginRight != "" {
		margins["right"] = opts.MarginRight
	}
	if len(margins) > 0 {
		d.Margins = margins
	}

	return d
}

// printParams builds the Page.printToPDF parameters. Under the content-fit
// policy the measured pixel geometry supersedes the named format, margins
// are forced to zero and backgrounds are always printed; otherwise the
// directive is honored verbatim.
func printParams(d Directive, geo *domain.Geometry, papers map[string]config.PaperSize, defaultPaper string) (*page.PrintToPDFParams, error) {
	p := page.PrintToPDF().WithLandscape(d.Landscape)

	if d.Scale != 0 {
		p = p.WithScale(d.Scale)
	}

	if d.FitToContent && geo != nil {
		return p.
			WithPaperWidth(float64(geo.Width) / pixelsPerInch).
			WithPaperHeight(float64(geo.Height) / pixelsPerInch).
			WithPrintBackground(true).
			WithMarginTop(0).
			WithMarginBottom(0).
			WithMarginLeft(0).
			WithMarginRight(0), nil
	}

	paper, ok := papers[strings.ToUpper(d.Format)]
	if !ok {
		// Unknown names are not an error; the default paper answers them.
		paper = papers[strings.ToUpper(defaultPaper)]
	}
	p = p.
		WithPaperWidth(paper.Width).
		WithPaperHeight(paper.Height).
		WithPrintBackground(d.PrintBackground)

	for side, raw := range d.Margins {
		inches, err := parseCSSLength(raw)
		if err != nil {
			return nil, fmt.Errorf("margin %s: %w", side, err)
		}
		switch side {
		case "top":
			p = p.WithMarginTop(inches)
		case "bottom":
			p = p.WithMarginBottom(inches)
		case "left":
			p = p.WithMarginLeft(inches)
		case "right":
			p = p.WithMarginRight(inches)
		}
	}

	return p, nil
}

// parseCSSLength converts a CSS length ("1cm", "0.5in", "12px") to inches.
// Bare numbers are treated as pixels, matching how browsers resolve
// unitless lengths in print margins.
func parseCSSLength(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	units := []struct {
		suffix  string
		perInch float64
	}{
		{"px", 96},
		{"pt", 72},
		{"mm", 25.4},
		{"cm", 2.54},
		{"in", 1},
	}

	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, u.suffix)), 64)
			if err != nil {
				return 0, fmt.Errorf("invalid css length %q", s)
			}
			return v / u.perInch, nil
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid css length %q", s)
	}
	return v / 96, nil
}
