package monitor

import (
	"strings"
	"testing"
	"time"
)

func reportFixtures() (Site, CheckResult, Summary, time.Time) {
	site := Site{
		Name:    "alpha",
		URL:     "https://alpha.example.com/status?probe=1",
		Channel: "ops",
	}
	result := CheckResult{Site: "alpha", Status: StatusUp, HTTPStatus: 200}
	sum := Summary{
		Day:   Counter{Up: 1},
		Week:  Counter{Up: 5, Down: 2},
		Month: Counter{Up: 20, PartiallyUp: 5, Down: 5},
		Year:  Counter{Up: 300, Down: 65},
	}
	generatedAt := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	return site, result, sum, generatedAt
}

func TestRender_Raw(t *testing.T) {
	site, result, sum, generatedAt := reportFixtures()

	msg := Render("raw", site, result, sum, generatedAt)

	if msg.Channel != "ops" {
		t.Errorf("Channel = %q, want %q", msg.Channel, "ops")
	}
	if msg.Site != "alpha" {
		t.Errorf("Site = %q, want %q", msg.Site, "alpha")
	}
	if msg.Status != StatusUp {
		t.Errorf("Status = %q, want %q", msg.Status, StatusUp)
	}
	if len(msg.Fields) != 0 {
		t.Errorf("Fields = %v, want none in raw mode", msg.Fields)
	}

	lines := strings.Split(msg.Body, "\n")
	want := []string{
		"Website '(https://alpha.example.com)' is UP and Operational",
		"Full url: https://alpha.example.com/status?probe=1",
		"Last updated: 2026-03-15 09:30:00",
		"Uptime Summary",
		"Day: up 1 | partial 0 | down 0 | unknown 0 (100.0% up)",
		"Week: up 5 | partial 0 | down 2 | unknown 0 (71.4% up)",
		"Month: up 20 | partial 5 | down 5 | unknown 0 (66.7% up)",
		"Year: up 300 | partial 0 | down 65 | unknown 0 (82.2% up)",
	}
	if len(lines) != len(want) {
		t.Fatalf("Body has %d lines, want %d:\n%s", len(lines), len(want), msg.Body)
	}
	for i, line := range lines {
		if line != want[i] {
			t.Errorf("line %d = %q, want %q", i, line, want[i])
		}
	}
}

func TestRender_Markdown(t *testing.T) {
	site, result, sum, generatedAt := reportFixtures()

	msg := Render("markdown", site, result, sum, generatedAt)

	lines := strings.Split(msg.Body, "\n")
	if len(lines) != 8 {
		t.Fatalf("Body has %d lines, want 8:\n%s", len(lines), msg.Body)
	}
	if want := "Website '(https://alpha.example.com)' is **UP and Operational**"; lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
	if want := "**Full url**: https://alpha.example.com/status?probe=1"; lines[1] != want {
		t.Errorf("line 1 = %q, want %q", lines[1], want)
	}
	if want := "**Last updated**: 2026-03-15 09:30:00"; lines[2] != want {
		t.Errorf("line 2 = %q, want %q", lines[2], want)
	}
	if want := "**Uptime Summary**"; lines[3] != want {
		t.Errorf("line 3 = %q, want %q", lines[3], want)
	}
	if want := "> **Day**: up 1 | partial 0 | down 0 | unknown 0 (100.0% up)"; lines[4] != want {
		t.Errorf("line 4 = %q, want %q", lines[4], want)
	}
	if !strings.HasPrefix(lines[7], "> **Year**: ") {
		t.Errorf("line 7 = %q, want a quoted Year line", lines[7])
	}
}

func TestRender_Embed(t *testing.T) {
	site, result, sum, generatedAt := reportFixtures()

	msg := Render("embed", site, result, sum, generatedAt)

	if msg.Body != "" {
		t.Errorf("Body = %q, want empty in embed mode", msg.Body)
	}
	if len(msg.Fields) != 8 {
		t.Fatalf("Fields has %d entries, want 8: %+v", len(msg.Fields), msg.Fields)
	}

	checks := []struct {
		idx   int
		name  string
		value string
	}{
		{0, "'(https://alpha.example.com)'", "UP and Operational"},
		{1, "Full url", "https://alpha.example.com/status?probe=1"},
		{2, "Last updated", "2026-03-15 09:30:00"},
		{3, "Uptime Summary", ""},
		{4, "Day", "up 1 | partial 0 | down 0 | unknown 0 (100.0% up)"},
		{7, "Year", "up 300 | partial 0 | down 65 | unknown 0 (82.2% up)"},
	}
	for _, c := range checks {
		if got := msg.Fields[c.idx].Name; got != c.name {
			t.Errorf("Fields[%d].Name = %q, want %q", c.idx, got, c.name)
		}
		if got := msg.Fields[c.idx].Value; got != c.value {
			t.Errorf("Fields[%d].Value = %q, want %q", c.idx, got, c.value)
		}
	}
}

func TestRender_UnknownModeFallsBackToRaw(t *testing.T) {
	site, result, sum, generatedAt := reportFixtures()

	raw := Render("raw", site, result, sum, generatedAt)
	got := Render("teletype", site, result, sum, generatedAt)

	if got.Body != raw.Body {
		t.Errorf("Body = %q, want the raw rendering %q", got.Body, raw.Body)
	}
}

func TestRender_DownStatusWording(t *testing.T) {
	site, _, sum, generatedAt := reportFixtures()
	result := CheckResult{Site: "alpha", Status: StatusDown, HTTPStatus: 503}

	msg := Render("raw", site, result, sum, generatedAt)

	if !strings.HasPrefix(msg.Body, "Website '(https://alpha.example.com)' is DOWN") {
		t.Errorf("Body = %q, want a DOWN headline", msg.Body)
	}
	if msg.Status != StatusDown {
		t.Errorf("Status = %q, want %q", msg.Status, StatusDown)
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"path and query trimmed", "https://alpha.example.com/status?probe=1", "https://alpha.example.com"},
		{"port kept", "http://alpha.example.com:8080/health", "http://alpha.example.com:8080"},
		{"bare host passes through", "alpha.example.com/health", "alpha.example.com/health"},
		{"plain text passes through", "not a url", "not a url"},
		{"empty passes through", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanURL(tt.in); got != tt.want {
				t.Errorf("cleanURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
