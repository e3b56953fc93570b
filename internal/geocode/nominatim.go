// Package geocode resolves venue addresses through OpenStreetMap Nominatim.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Defaults for the public Nominatim instance.
const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "FWSVenueGeocoder/1.0"
	DefaultCountry   = "France"
)

// Config controls the geocoder.
type Config struct {
	BaseURL   string
	UserAgent string
	Country   string
}

// Limiter paces requests to a shared host.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Nominatim implements venue.Geocoder.
type Nominatim struct {
	cfg        Config
	httpClient *http.Client
	limiter    Limiter
	logger     *zap.Logger
}

// New creates a Nominatim geocoder.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Nominatim {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Nominatim{cfg: cfg, httpClient: httpClient, logger: logger}
}

// WithLimiter paces every lookup through l. The public instance allows one
// request per second.
func (n *Nominatim) WithLimiter(l Limiter) *Nominatim {
	n.limiter = l
	return n
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Query returns the search string sent for address: trimmed, with the
// configured country appended when the address does not already name it.
func (n *Nominatim) Query(address string) string {
	addr := strings.TrimSpace(address)
	if !strings.Contains(strings.ToLower(addr), strings.ToLower(n.cfg.Country)) {
		addr += ", " + n.cfg.Country
	}
	return addr
}

// Geocode looks up address and returns the first hit. ok is false when the
// service has no result; err is set only for transport failures.
func (n *Nominatim) Geocode(ctx context.Context, address string) (float64, float64, bool, error) {
	params := url.Values{}
	params.Set("q", n.Query(address))
	params.Set("format", "json")
	params.Set("limit", "1")

	endpoint := n.cfg.BaseURL + "/search?" + params.Encode()
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx, endpoint); err != nil {
			return 0, 0, false, fmt.Errorf("geocode %q: %w", address, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", n.cfg.UserAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, 0, false, fmt.Errorf("geocode %q: %w", address, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, false, fmt.Errorf("read geocode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		n.logger.Warn("geocoder returned non-200", zap.Int("status", resp.StatusCode))
		return 0, 0, false, nil
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil || len(places) == 0 {
		return 0, 0, false, nil
	}
	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false, nil
	}
	return lat, lon, true, nil
}
