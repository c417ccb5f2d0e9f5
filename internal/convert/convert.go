package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labelgw/label-gateway/internal/model"
)

var ErrUnsupported = fmt.Errorf("convert: unsupported conversion")

// Converter normalizes a label artifact to the format a printer
// accepts.
type Converter interface {
	Convert(ctx context.Context, artifact model.LabelArtifact, target model.LabelFormat) (model.LabelArtifact, error)
}

// HTTPConverter handles PDF→ZPL/EPL through a Labelary-compatible
// rasterizer service. Matching formats are returned unchanged and the
// two thermal languages pass through to each other, since the relay
// submits both as raw bytes.
type HTTPConverter struct {
	baseURL  string
	dpmm     int
	widthIn  float64
	heightIn float64
	client   *http.Client
}

type Opts struct {
	BaseURL  string
	DPMM     int     // dots per millimeter; 8 => 203dpi
	WidthIn  float64 // label width in inches
	HeightIn float64
	Timeout  time.Duration
}

func NewHTTPConverter(opts Opts) *HTTPConverter {
	if opts.DPMM <= 0 {
		opts.DPMM = 8
	}
	if opts.WidthIn <= 0 {
		opts.WidthIn = 4
	}
	if opts.HeightIn <= 0 {
		opts.HeightIn = 6
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &HTTPConverter{
		baseURL:  opts.BaseURL,
		dpmm:     opts.DPMM,
		widthIn:  opts.WidthIn,
		heightIn: opts.HeightIn,
		client:   &http.Client{Timeout: opts.Timeout},
	}
}

var _ Converter = (*HTTPConverter)(nil)

func (c *HTTPConverter) Convert(ctx context.Context, artifact model.LabelArtifact, target model.LabelFormat) (model.LabelArtifact, error) {
	if !target.Valid() {
		return model.LabelArtifact{}, fmt.Errorf("target %q: %w", target, ErrUnsupported)
	}

	// identity: already what the printer wants
	if artifact.Format == target {
		return artifact, nil
	}

	// both thermal languages ship to the relay as raw bytes
	if artifact.Format.Thermal() && target.Thermal() {
		out := artifact
		out.Format = target
		return out, nil
	}

	if artifact.Format == model.FormatPDF && target.Thermal() {
		return c.rasterize(ctx, artifact, target)
	}

	return model.LabelArtifact{}, fmt.Errorf("%s to %s: %w", artifact.Format, target, ErrUnsupported)
}

// rasterize posts the PDF to the converter service, which answers with
// the thermal-language rendering.
func (c *HTTPConverter) rasterize(ctx context.Context, artifact model.LabelArtifact, target model.LabelFormat) (model.LabelArtifact, error) {
	path := fmt.Sprintf("/v1/printers/%ddpmm/labels/%gx%g/", c.dpmm, c.widthIn, c.heightIn)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(artifact.Content))
	if err != nil {
		return model.LabelArtifact{}, err
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", acceptFor(target))

	res, err := c.client.Do(req)
	if err != nil {
		return model.LabelArtifact{}, fmt.Errorf("converter request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return model.LabelArtifact{}, fmt.Errorf("converter status=%d", res.StatusCode)
	}

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return model.LabelArtifact{}, fmt.Errorf("read converter response: %w", err)
	}

	return model.LabelArtifact{
		Content:   content,
		Format:    target,
		SourceURL: artifact.SourceURL,
	}, nil
}

func acceptFor(f model.LabelFormat) string {
	if f == model.FormatEPL {
		return "application/epl"
	}
	return "application/zpl"
}
