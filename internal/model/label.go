package model

import "strings"

type LabelFormat string

const (
	FormatPDF LabelFormat = "pdf"
	FormatZPL LabelFormat = "zpl"
	FormatEPL LabelFormat = "epl"
)

func (f LabelFormat) String() string { return string(f) }

func (f LabelFormat) Valid() bool {
	return f == FormatPDF || f == FormatZPL || f == FormatEPL
}

// Thermal reports whether the format is a raw thermal printer language.
func (f LabelFormat) Thermal() bool {
	return f == FormatZPL || f == FormatEPL
}

// ParseLabelFormat normalizes carrier-reported file types ("PDF",
// "EPL2", ...) to a LabelFormat. Returns (value, true) if recognized.
func ParseLabelFormat(s string) (LabelFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, true
	case "zpl":
		return FormatZPL, true
	case "epl", "epl2":
		return FormatEPL, true
	default:
		return "", false
	}
}

// LabelArtifact is the printable rendering of a shipping label.
type LabelArtifact struct {
	Content   []byte
	Format    LabelFormat
	SourceURL string
}

// Tracker is the carrier's tracking entity for a shipment.
type Tracker struct {
	ID           string `json:"id"`
	TrackingCode string `json:"tracking_code"`
	Carrier      string `json:"carrier"`
	Status       string `json:"status"`
}

// PostageLabel is the label reference embedded in a carrier shipment.
type PostageLabel struct {
	ID            string `json:"id"`
	LabelURL      string `json:"label_url"`
	LabelFileType string `json:"label_file_type"`
	CreatedAt     string `json:"created_at"`
}

type Shipment struct {
	ID           string        `json:"id"`
	TrackingCode string        `json:"tracking_code"`
	PostageLabel *PostageLabel `json:"postage_label"`
}
