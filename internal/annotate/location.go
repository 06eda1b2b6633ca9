package annotate

import (
	"context"
	"regexp"
	"strings"
)

// RegexLocator extracts street addresses, city areas and landmarks from a
// transcript with pattern matching.
type RegexLocator struct{}

var addressPatterns = []*regexp.Regexp{
	// Numbered street addresses: "123 Main St", "456 Oak Ave".
	regexp.MustCompile(`(?i)\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl)\.?`),
	// Proper-name streets without a number.
	regexp.MustCompile(`[A-Z][a-z]+\s+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl)`),
	// Highway references: "Highway 101 near Exit 15".
	regexp.MustCompile(`(?i)(?:Highway|Hwy|Interstate|I-|Route)\s*\d+(?:\s+near\s+Exit\s+\d+)?`),
	// City areas.
	regexp.MustCompile(`(?i)(?:Downtown|Uptown|Midtown|City Center|Central Business District|CBD)`),
	// Landmarks.
	regexp.MustCompile(`[A-Z][a-z]+\s+(?:Park|Square|Mall|Center|Plaza|Hospital|School|University|Airport|Station)`),
	// "City, ST 12345" format.
	regexp.MustCompile(`[A-Z][a-z]+,\s*[A-Z]{2}(?:\s+\d{5})?`),
}

func (RegexLocator) Locate(ctx context.Context, transcript string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return UnknownLocation, 0, err
	}

	var locations []string
	seen := map[string]bool{}
	for _, pattern := range addressPatterns {
		for _, match := range pattern.FindAllString(transcript, -1) {
			match = strings.TrimSpace(match)
			key := strings.ToLower(match)
			if match != "" && !seen[key] {
				seen[key] = true
				locations = append(locations, match)
			}
		}
	}

	if len(locations) == 0 {
		return UnknownLocation, 0, nil
	}

	joined := strings.Join(locations, ", ")
	// Longer extractions tend to be real addresses; cap below certainty and
	// floor above noise since something did match.
	conf := float64(len(joined)) / 50.0
	if conf > 0.9 {
		conf = 0.9
	}
	if conf < 0.3 {
		conf = 0.3
	}
	return joined, conf, nil
}
