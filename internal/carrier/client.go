package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labelgw/label-gateway/internal/model"
)

var (
	ErrNotFound            = fmt.Errorf("carrier: not found")
	ErrAuthFailed          = fmt.Errorf("carrier: authentication failed")
	ErrUpstreamUnavailable = fmt.Errorf("carrier: upstream unavailable")
	ErrNoLabel             = fmt.Errorf("carrier: shipment has no label yet")
	ErrAmbiguousShipment   = fmt.Errorf("carrier: tracking code matches multiple shipments")
	ErrUnknownLabelFormat  = fmt.Errorf("carrier: unrecognized label file type")
)

// Client talks to the carrier REST API. The API key is a per-call
// argument so one tenant's credentials can never leak into another
// tenant's request.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetTracker fetches a tracker by carrier id.
func (c *Client) GetTracker(ctx context.Context, apiKey, trackerID string) (model.Tracker, error) {
	var t model.Tracker
	err := c.getJSON(ctx, apiKey, "/v2/trackers/"+url.PathEscape(trackerID), &t)
	if err != nil {
		return model.Tracker{}, err
	}
	if t.TrackingCode == "" {
		return model.Tracker{}, fmt.Errorf("tracker %s has no tracking code: %w", trackerID, ErrNotFound)
	}
	return t, nil
}

type shipmentList struct {
	Shipments []model.Shipment `json:"shipments"`
}

// FindShipment resolves the shipment for a tracking code. Asking for
// two rows lets us detect an ambiguous match instead of silently
// printing the first one.
func (c *Client) FindShipment(ctx context.Context, apiKey, trackingCode string) (model.Shipment, error) {
	q := url.Values{}
	q.Set("tracking_code", trackingCode)
	q.Set("page_size", "2")

	var list shipmentList
	if err := c.getJSON(ctx, apiKey, "/v2/shipments?"+q.Encode(), &list); err != nil {
		return model.Shipment{}, err
	}

	switch len(list.Shipments) {
	case 0:
		return model.Shipment{}, fmt.Errorf("no shipment for tracking code %s: %w", trackingCode, ErrNotFound)
	case 1:
		return list.Shipments[0], nil
	default:
		return model.Shipment{}, fmt.Errorf("tracking code %s: %w", trackingCode, ErrAmbiguousShipment)
	}
}

// DownloadLabel fetches the label bytes referenced by the shipment's
// postage label. A shipment without a label is a transient condition:
// the carrier may attach one moments after tracker creation.
func (c *Client) DownloadLabel(ctx context.Context, shipment model.Shipment) (model.LabelArtifact, error) {
	if shipment.PostageLabel == nil || shipment.PostageLabel.LabelURL == "" {
		return model.LabelArtifact{}, fmt.Errorf("shipment %s: %w", shipment.ID, ErrNoLabel)
	}

	format, ok := model.ParseLabelFormat(shipment.PostageLabel.LabelFileType)
	if !ok {
		return model.LabelArtifact{}, fmt.Errorf("shipment %s file type %q: %w", shipment.ID, shipment.PostageLabel.LabelFileType, ErrUnknownLabelFormat)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shipment.PostageLabel.LabelURL, nil)
	if err != nil {
		return model.LabelArtifact{}, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return model.LabelArtifact{}, fmt.Errorf("download label: %v: %w", err, ErrUpstreamUnavailable)
	}
	defer res.Body.Close()

	if err := classifyStatus(res.StatusCode); err != nil {
		return model.LabelArtifact{}, fmt.Errorf("download label status=%d: %w", res.StatusCode, err)
	}

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return model.LabelArtifact{}, fmt.Errorf("read label body: %v: %w", err, ErrUpstreamUnavailable)
	}

	return model.LabelArtifact{
		Content:   content,
		Format:    format,
		SourceURL: shipment.PostageLabel.LabelURL,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, apiKey, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	// carrier API authenticates with the key as basic-auth username
	req.SetBasicAuth(apiKey, "")
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("carrier request %s: %v: %w", path, err, ErrUpstreamUnavailable)
	}
	defer res.Body.Close()

	if err := classifyStatus(res.StatusCode); err != nil {
		return fmt.Errorf("carrier request %s status=%d: %w", path, res.StatusCode, err)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode carrier response %s: %w", path, err)
	}
	return nil
}

func classifyStatus(code int) error {
	switch {
	case code/100 == 2:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthFailed
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUpstreamUnavailable
	}
}
