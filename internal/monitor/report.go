package monitor

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/sitewatch/internal/infrastructure/database"
)

// Field is one name/value pair of an embed-mode message.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Message is one rendered status update ready for publishing. Raw and
// markdown modes fill Body; embed mode fills Fields.
type Message struct {
	Channel string  `json:"channel"`
	Site    string  `json:"site"`
	Status  Status  `json:"status"`
	Body    string  `json:"body,omitempty"`
	Fields  []Field `json:"fields,omitempty"`
}

// Render builds the status message for one check outcome in the requested
// output mode. Unknown modes fall back to raw text.
func Render(mode string, site Site, result CheckResult, sum Summary, generatedAt time.Time) Message {
	msg := Message{Channel: site.Channel, Site: site.Name, Status: result.Status}
	display := cleanURL(site.URL)
	stamp := generatedAt.UTC().Format(database.TimestampLayout)

	switch mode {
	case "embed":
		fields := []Field{
			{Name: fmt.Sprintf("'(%s)'", display), Value: result.Status.Label()},
			{Name: "Full url", Value: site.URL},
			{Name: "Last updated", Value: stamp},
			{Name: "Uptime Summary", Value: ""},
		}
		for _, w := range sum.Windows() {
			fields = append(fields, Field{Name: windowTitle(w.Name), Value: counterLine(w.Counter)})
		}
		msg.Fields = fields
	case "markdown":
		lines := []string{
			fmt.Sprintf("Website '(%s)' is **%s**", display, result.Status.Label()),
			fmt.Sprintf("**Full url**: %s", site.URL),
			fmt.Sprintf("**Last updated**: %s", stamp),
			"**Uptime Summary**",
		}
		for _, w := range sum.Windows() {
			lines = append(lines, fmt.Sprintf("> **%s**: %s", windowTitle(w.Name), counterLine(w.Counter)))
		}
		msg.Body = strings.Join(lines, "\n")
	default:
		lines := []string{
			fmt.Sprintf("Website '(%s)' is %s", display, result.Status.Label()),
			fmt.Sprintf("Full url: %s", site.URL),
			fmt.Sprintf("Last updated: %s", stamp),
			"Uptime Summary",
		}
		for _, w := range sum.Windows() {
			lines = append(lines, fmt.Sprintf("%s: %s", windowTitle(w.Name), counterLine(w.Counter)))
		}
		msg.Body = strings.Join(lines, "\n")
	}
	return msg
}

// cleanURL reduces a raw URL to scheme://host[:port] for display, falling
// back to the raw text when it does not parse as a URL.
func cleanURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	scheme := ""
	if parsed.Scheme != "" {
		scheme = parsed.Scheme + "://"
	}
	return scheme + parsed.Host
}

func counterLine(c Counter) string {
	return fmt.Sprintf("up %d | partial %d | down %d | unknown %d (%.1f%% up)",
		c.Up, c.PartiallyUp, c.Down, c.Unknown, c.UpPercent())
}

func windowTitle(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
