// Package domain contains the core business concepts for the chromium-pdf
// service. Keep this package free of transport (HTTP) and infrastructure
// (Redis/Chrome) concerns.
package domain

// RenderOptions carries caller-facing PDF generation options. A value is
// never mutated after construction; WithDefaults returns a filled-in copy.
type RenderOptions struct {
	// Format is a paper format name ("A4", "Letter", ...). It is resolved
	// against the configured paper-size table; unknown names fall back to
	// the default paper.
	Format string `json:"format,omitempty"`

	Landscape       bool  `json:"landscape,omitempty"`
	PrintBackground *bool `json:"printBackground,omitempty"`

	// Margins use CSS length syntax ("1cm", "0.5in", "12px"). Absent
	// margins are omitted from the capture directive, not defaulted.
	MarginTop    string `json:"marginTop,omitempty"`
	MarginBottom string `json:"marginBottom,omitempty"`
	MarginLeft   string `json:"marginLeft,omitempty"`
	MarginRight  string `json:"marginRight,omitempty"`

	// Scale of the page rendering. Chromium accepts 0.1 to 2; the value is
	// passed through unclamped and out-of-range values are the renderer's
	// problem.
	Scale float64 `json:"scale,omitempty"`

	// FitToContent selects the sizing policy. When true (the default) the
	// output page matches the measured content bounds exactly and
	// format/margins are superseded. When false the format and margins
	// above are honored verbatim.
	FitToContent *bool `json:"fitToContent,omitempty"`
}

// WithDefaults returns a copy with unset fields materialized.
func (o RenderOptions) WithDefaults() RenderOptions {
	if o.Format == "" {
		o.Format = "A4"
	}
	if o.PrintBackground == nil {
		t := true
		o.PrintBackground = &t
	}
	if o.FitToContent == nil {
		t := true
		o.FitToContent = &t
	}
	return o
}

// RenderRequest is one unit of work for the render pipeline. HTML is
// guaranteed non-empty by the HTTP boundary before a request reaches the
// core.
type RenderRequest struct {
	HTML    string
	Options RenderOptions
}

// Geometry is the measured pixel size of the content intended for capture.
// Computed once per request, used immediately, discarded.
type Geometry struct {
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}
