package printrelay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labelgw/label-gateway/internal/model"
)

var (
	ErrPrinterNotFound     = fmt.Errorf("relay: printer not found")
	ErrAuthFailed          = fmt.Errorf("relay: authentication failed")
	ErrUpstreamUnavailable = fmt.Errorf("relay: upstream unavailable")
)

// Client submits print jobs to the cloud print relay. There is no
// local queue: submission is fire-and-confirm against the relay's own
// queue, and the relay API key is a per-call argument.
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

type printJobReq struct {
	PrinterID   int64           `json:"printerId"`
	Title       string          `json:"title"`
	ContentType string          `json:"contentType"` // pdf_base64 | raw_base64
	Content     string          `json:"content"`
	Source      string          `json:"source"`
	Options     printJobOptions `json:"options"`
}

type printJobOptions struct {
	Paper string `json:"paper"`
	Color bool   `json:"color"`
}

// Submit sends the artifact to the given printer and returns the
// relay-assigned job id. Thermal formats go out as raw bytes, PDF as a
// PDF document; both are base64 on the wire.
func (c *Client) Submit(ctx context.Context, apiKey string, printerID int64, artifact model.LabelArtifact, title string) (model.PrintJob, error) {
	contentType := "pdf_base64"
	if artifact.Format.Thermal() {
		contentType = "raw_base64"
	}

	body, _ := json.Marshal(printJobReq{
		PrinterID:   printerID,
		Title:       title,
		ContentType: contentType,
		Content:     base64.StdEncoding.EncodeToString(artifact.Content),
		Source:      "label-gateway",
		Options:     printJobOptions{Paper: "4x6"},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/printjobs", bytes.NewReader(body))
	if err != nil {
		return model.PrintJob{}, err
	}
	req.SetBasicAuth(apiKey, "")
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return model.PrintJob{}, fmt.Errorf("relay submit: %v: %w", err, ErrUpstreamUnavailable)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode/100 == 2:
		// fall through to decode
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return model.PrintJob{}, fmt.Errorf("relay submit status=%d: %w", res.StatusCode, ErrAuthFailed)
	case res.StatusCode == http.StatusNotFound:
		return model.PrintJob{}, fmt.Errorf("printer %d: %w", printerID, ErrPrinterNotFound)
	default:
		return model.PrintJob{}, fmt.Errorf("relay submit status=%d: %w", res.StatusCode, ErrUpstreamUnavailable)
	}

	// the relay answers with the bare job id
	var jobID int64
	if err := json.NewDecoder(res.Body).Decode(&jobID); err != nil {
		return model.PrintJob{}, fmt.Errorf("decode relay response: %w", err)
	}

	return model.PrintJob{
		RelayJobID:     jobID,
		RelayPrinterID: printerID,
		Title:          title,
		SubmittedAt:    time.Now(),
	}, nil
}
