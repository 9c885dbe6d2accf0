package caltrans

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"driveweather.app/server/internal/lib/roads"
)

// QuickMap's cc.kml is the statewide chain-control feed. It lags the
// district CWWP2 JSON feeds but covers districts they miss, so it is merged
// in as a supplement.

type kmlFile struct {
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Folders    []kmlFolder    `xml:"Folder"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlFolder struct {
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	StyleURL    string `xml:"styleUrl"`
}

var (
	chainLevelPattern = regexp.MustCompile(`\bR-?([123])\b`)
	highwayIDPattern  = regexp.MustCompile(`(?i)\b((?:I|US|SR|CA|Hwy\.?|Highway|Route|Rte\.?)[-\s]*\d+)\b`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// GetQuickMapChainControls fetches and parses the QuickMap KML feed into
// chain-control entries. Placemarks without a recognizable restriction
// level or highway are skipped.
func (c *Client) GetQuickMapChainControls(ctx context.Context) ([]roads.ChainControl, error) {
	var cached []roads.ChainControl
	if found, err := c.cache.Get("caltrans_quickmap", &cached); err == nil && found {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.quickMapKMLURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download KML: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("KML feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read KML response: %w", err)
	}

	controls, err := parseQuickMapKML(body)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set("caltrans_quickmap", controls, c.cacheTTL, "caltrans"); err != nil {
		return nil, err
	}
	return controls, nil
}

func parseQuickMapKML(data []byte) ([]roads.ChainControl, error) {
	var file kmlFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse KML: %w", err)
	}

	placemarks := file.Document.Placemarks
	for _, folder := range file.Document.Folders {
		placemarks = append(placemarks, folder.Placemarks...)
	}

	var controls []roads.ChainControl
	for _, placemark := range placemarks {
		control := placemarkToChainControl(placemark)
		if control != nil {
			controls = append(controls, *control)
		}
	}
	return controls, nil
}

func placemarkToChainControl(placemark kmlPlacemark) *roads.ChainControl {
	text := extractTextFromHTML(placemark.Description)
	combined := placemark.Name + " " + text

	levelMatch := chainLevelPattern.FindStringSubmatch(combined)
	if levelMatch == nil {
		return nil
	}
	highwayMatch := highwayIDPattern.FindString(combined)
	if highwayMatch == "" {
		return nil
	}

	return &roads.ChainControl{
		Highway:     strings.ToUpper(whitespacePattern.ReplaceAllString(highwayMatch, "-")),
		Level:       "R" + levelMatch[1],
		Description: text,
	}
}

// extractTextFromHTML removes HTML tags and decodes HTML entities
func extractTextFromHTML(htmlContent string) string {
	text := htmlTagPattern.ReplaceAllString(htmlContent, " ")
	text = html.UnescapeString(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
