package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Sitewatch MQTT hierarchy.
//
// Per-site topics use the flat scheme: sitewatch/site/{site}/{kind}.
// Site names are slugged before use so configured display names with
// spaces or MQTT specials cannot break the hierarchy.
const (
	// TopicPrefix is the base for all Sitewatch topics.
	TopicPrefix = "sitewatch"

	// TopicPrefixSite is the base for per-site topics.
	TopicPrefixSite = "sitewatch/site"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "sitewatch/system"

	// TopicPrefixCommand is the base for inbound command topics.
	TopicPrefixCommand = "sitewatch/command"
)

// topicSlugger folds the characters that MQTT treats specially, plus
// whitespace, into hyphens.
var topicSlugger = strings.NewReplacer(
	"/", "-",
	"+", "-",
	"#", "-",
	" ", "-",
	"\t", "-",
)

// Topics provides builders for Sitewatch MQTT topics. Using these helpers
// keeps topic naming consistent between the publisher and any subscriber.
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.SiteStatus("My Blog")
//	// Returns: "sitewatch/site/my-blog/status"
type Topics struct{}

// SiteSlug returns the topic segment used for a site name: lowercased,
// with separators and MQTT specials replaced by hyphens.
func (Topics) SiteSlug(site string) string {
	return topicSlugger.Replace(strings.ToLower(strings.TrimSpace(site)))
}

// SiteStatus returns the topic carrying the bare status of one site.
//
// Example: sitewatch/site/my-blog/status
func (t Topics) SiteStatus(site string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixSite, t.SiteSlug(site))
}

// SiteReport returns the topic carrying the rendered uptime report.
//
// Example: sitewatch/site/my-blog/report
func (t Topics) SiteReport(site string) string {
	return fmt.Sprintf("%s/%s/report", TopicPrefixSite, t.SiteSlug(site))
}

// SiteTransition returns the topic for status change events of one site.
//
// Example: sitewatch/site/my-blog/transition
func (t Topics) SiteTransition(site string) string {
	return fmt.Sprintf("%s/%s/transition", TopicPrefixSite, t.SiteSlug(site))
}

// SystemStatus returns the service online/offline topic. The Last Will
// and Testament is registered here as well.
//
// Example: sitewatch/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// CommandRefresh returns the topic that triggers an immediate check cycle.
//
// Example: sitewatch/command/refresh
func (Topics) CommandRefresh() string {
	return fmt.Sprintf("%s/refresh", TopicPrefixCommand)
}

// AllSiteStatuses returns a pattern matching every site status topic.
//
// Pattern: sitewatch/site/+/status
func (Topics) AllSiteStatuses() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixSite)
}

// AllSiteReports returns a pattern matching every site report topic.
//
// Pattern: sitewatch/site/+/report
func (Topics) AllSiteReports() string {
	return fmt.Sprintf("%s/+/report", TopicPrefixSite)
}

// AllSiteTransitions returns a pattern matching every transition topic.
//
// Pattern: sitewatch/site/+/transition
func (Topics) AllSiteTransitions() string {
	return fmt.Sprintf("%s/+/transition", TopicPrefixSite)
}

// AllCommands returns a pattern matching every inbound command.
//
// Pattern: sitewatch/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/+", TopicPrefixCommand)
}

// AllTopics returns a pattern matching all Sitewatch topics.
// Use with caution, this receives all traffic.
//
// Pattern: sitewatch/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
