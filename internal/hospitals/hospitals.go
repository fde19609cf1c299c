// Package hospitals looks up nearby hospitals through the Overpass API.
package hospitals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultURL    = "https://overpass-api.de/api/interpreter"
	DefaultRadius = 5000

	unknownName    = "Unknown Hospital"
	unknownAddress = "Address not available"
)

var ErrBadCoordinates = errors.New("coordinates out of range")

type Hospital struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type Client struct {
	baseURL string
	radius  int
	http    *http.Client
}

func NewClient(baseURL string, radius int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if radius <= 0 {
		radius = DefaultRadius
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: baseURL, radius: radius, http: &http.Client{Timeout: timeout}}
}

func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || math.IsNaN(lat) || math.IsNaN(lon) {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrBadCoordinates, lat, lon)
	}
	return nil
}

// Query renders the Overpass QL for hospital nodes within radius meters.
func Query(lat, lon float64, radius int) string {
	return fmt.Sprintf(`[out:json];node["amenity"="hospital"](around:%d,%g,%g);out;`, radius, lat, lon)
}

type overpassResponse struct {
	Elements []struct {
		Lat  *float64         `json:"lat"`
		Lon  *float64         `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

func (c *Client) Nearby(ctx context.Context, lat, lon float64) ([]Hospital, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	u := c.baseURL + "?data=" + url.QueryEscape(Query(lat, lon, c.radius))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	out := make([]Hospital, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		if el.Lat == nil || el.Lon == nil {
			continue
		}
		out = append(out, Hospital{
			Name:    tagOr(el.Tags, unknownName, "name"),
			Address: tagOr(el.Tags, unknownAddress, "addr:full", "addr:street"),
			Lat:     *el.Lat,
			Lon:     *el.Lon,
		})
	}
	return out, nil
}

// tagOr returns the first present key's value, or def.
func tagOr(tags map[string]string, def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := tags[k]; ok {
			return v
		}
	}
	return def
}
