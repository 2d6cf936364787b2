// Package transform converts native source rows into Common Billing Format
// records: per-source field mappings, decimal cost derivations, service
// classification, and the trailing date-window filter.
package transform

import (
	"regexp"
	"strings"
)

var (
	linodeSize    = regexp.MustCompile(`Linode \d+GB`)
	nanodeSize    = regexp.MustCompile(`Nanode \d+GB`)
	dedicatedSize = regexp.MustCompile(`Dedicated \d+GB`)
)

// Classify derives a service category from a free-text resource identifier.
// Ordered rules, first match wins. Pure function; the flat-file datasets
// already carry an explicit service and never go through here.
func Classify(resourceID string) string {
	switch {
	case strings.Contains(resourceID, "LKE"):
		return "LKE"
	case strings.Contains(resourceID, "NodeBalancer"):
		return "NodeBalancer"
	case strings.Contains(resourceID, "Storage Volume"):
		return "Storage Volume"
	case strings.Contains(resourceID, "Linode"):
		return matchOr(linodeSize, resourceID, "Linode")
	case strings.Contains(resourceID, "Nanode"):
		return matchOr(nanodeSize, resourceID, "Nanode")
	case strings.Contains(resourceID, "Dedicated"):
		return matchOr(dedicatedSize, resourceID, "Dedicated")
	}
	return "None"
}

func matchOr(re *regexp.Regexp, s, fallback string) string {
	if m := re.FindString(s); m != "" {
		return m
	}
	return fallback
}
