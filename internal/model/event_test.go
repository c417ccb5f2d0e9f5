package model

import "testing"

func TestParseInboundEvent(t *testing.T) {
	body := []byte(`{"id":"evt_1","description":"tracker.created","result":{"id":"trk_1","tracking_code":"9400TEST"}}`)

	ev, err := ParseInboundEvent(body, "acct_A")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.ID != "evt_1" || ev.Type != EventTrackerCreated || ev.TrackerID != "trk_1" || ev.AccountID != "acct_A" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestParseInboundEvent_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `{oops`},
		{"missing id", `{"description":"tracker.created"}`},
		{"missing type", `{"id":"evt_1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseInboundEvent([]byte(tc.body), "acct_A"); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestParseLabelFormat(t *testing.T) {
	cases := []struct {
		in   string
		want LabelFormat
		ok   bool
	}{
		{"PDF", FormatPDF, true},
		{"pdf", FormatPDF, true},
		{"ZPL", FormatZPL, true},
		{"EPL2", FormatEPL, true},
		{"epl", FormatEPL, true},
		{"PNG", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseLabelFormat(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseLabelFormat(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
