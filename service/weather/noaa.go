package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/lgr"
)

const (
	cacheTTL = 300 * time.Second

	// Failed fetches are cached too, for a shorter window, so an API outage
	// does not cost several 10 s request timeouts on every capture cycle.
	failureCacheTTL = 60 * time.Second
)

var cardinals = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

type cacheEntry struct {
	snapshot model.WeatherSnapshot
	fetched  time.Time
	ttl      time.Duration
}

type noaaService struct {
	baseURL string
	client  *http.Client
	lock    sync.Mutex
	cache   map[string]cacheEntry
}

// NewNOAA returns a weather client backed by api.weather.gov. Results are
// cached per coordinate pair for the TTL.
func NewNOAA() IService {
	return &noaaService{
		baseURL: "https://api.weather.gov",
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   map[string]cacheEntry{},
	}
}

// newWithBase is used by tests to point the client at a local server.
func newWithBase(baseURL string) *noaaService {
	svc := NewNOAA().(*noaaService)
	svc.baseURL = baseURL
	return svc
}

func (svc *noaaService) Current(ctx context.Context, lat, lon float64) model.WeatherSnapshot {
	key := fmt.Sprintf("%g,%g", lat, lon)

	svc.lock.Lock()
	if entry, ok := svc.cache[key]; ok && time.Since(entry.fetched) < entry.ttl {
		svc.lock.Unlock()
		return entry.snapshot
	}
	svc.lock.Unlock()

	snapshot, err := svc.fetch(ctx, lat, lon)
	ttl := cacheTTL
	if err != nil {
		lgr.Logger.Warn("weather data fetch failed", slog.Any("error", err))
		snapshot = fallbackSnapshot()
		ttl = failureCacheTTL
	}

	svc.lock.Lock()
	svc.cache[key] = cacheEntry{snapshot: snapshot, fetched: time.Now(), ttl: ttl}
	svc.lock.Unlock()

	return snapshot
}

// NOAA point/forecast/observation payloads, trimmed to the fields we read.
// Pointers keep partial responses from zeroing real values.
type pointsResponse struct {
	Properties struct {
		Forecast            string `json:"forecast"`
		ObservationStations string `json:"observationStations"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []struct {
			Temperature   *float64 `json:"temperature"`
			ShortForecast string   `json:"shortForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

type stationsResponse struct {
	Features []struct {
		Properties struct {
			StationIdentifier string `json:"stationIdentifier"`
		} `json:"properties"`
	} `json:"features"`
}

type measured struct {
	Value *float64 `json:"value"`
}

type observationResponse struct {
	Properties struct {
		Temperature           measured `json:"temperature"`
		RelativeHumidity      measured `json:"relativeHumidity"`
		SnowDepth             measured `json:"snowDepth"`
		PrecipitationLastHour measured `json:"precipitationLastHour"`
		WindSpeed             measured `json:"windSpeed"`
		WindDirection         measured `json:"windDirection"`
		TextDescription       string   `json:"textDescription"`
	} `json:"properties"`
}

func (svc *noaaService) fetch(ctx context.Context, lat, lon float64) (model.WeatherSnapshot, error) {
	snapshot := fallbackSnapshot()
	snapshot.Source = "NOAA"
	snapshot.Timestamp = time.Now()

	var points pointsResponse
	url := fmt.Sprintf("%s/points/%g,%g", svc.baseURL, lat, lon)
	if err := svc.getJSON(ctx, url, &points); err != nil {
		return model.WeatherSnapshot{}, err
	}

	// Forecast gives a coarse temperature and conditions; the station
	// observation below overrides with measured values when present.
	if points.Properties.Forecast != "" {
		var forecast forecastResponse
		if err := svc.getJSON(ctx, points.Properties.Forecast, &forecast); err == nil &&
			len(forecast.Properties.Periods) > 0 {
			period := forecast.Properties.Periods[0]
			if period.Temperature != nil {
				snapshot.Temperature = *period.Temperature
			}
			if period.ShortForecast != "" {
				snapshot.Conditions = period.ShortForecast
			}
		}
	}

	if points.Properties.ObservationStations != "" {
		var stations stationsResponse
		if err := svc.getJSON(ctx, points.Properties.ObservationStations, &stations); err == nil &&
			len(stations.Features) > 0 {
			stationID := stations.Features[0].Properties.StationIdentifier
			obsURL := fmt.Sprintf("%s/stations/%s/observations/latest", svc.baseURL, stationID)

			var obs observationResponse
			if err := svc.getJSON(ctx, obsURL, &obs); err == nil {
				applyObservation(&snapshot, obs)
			}
		}
	}

	estimateAccumulation(&snapshot)
	return snapshot, nil
}

func applyObservation(snapshot *model.WeatherSnapshot, obs observationResponse) {
	props := obs.Properties

	if props.Temperature.Value != nil {
		// Celsius to Fahrenheit
		snapshot.Temperature = round1(*props.Temperature.Value*9/5 + 32)
	}
	if props.RelativeHumidity.Value != nil {
		snapshot.Humidity = math.Round(*props.RelativeHumidity.Value)
	}
	if props.SnowDepth.Value != nil {
		// meters to inches
		snapshot.SnowDepthInches = round1(*props.SnowDepth.Value * 39.3701)
	}
	if props.PrecipitationLastHour.Value != nil {
		// millimeters to inches
		snapshot.PrecipitationRate = round2(*props.PrecipitationLastHour.Value * 0.0393701)
	}
	if props.WindSpeed.Value != nil {
		// m/s to mph
		snapshot.WindSpeed = round1(*props.WindSpeed.Value * 2.23694)
	}
	if props.WindDirection.Value != nil {
		snapshot.WindDirection = degreesToCardinal(*props.WindDirection.Value)
	}
	if props.TextDescription != "" {
		snapshot.Conditions = props.TextDescription
	}
}

// estimateAccumulation fills snow accumulation from the liquid precipitation
// rate when the station does not report it directly. The 10:1 liquid-to-snow
// ratio is a heuristic, not ground truth.
func estimateAccumulation(snapshot *model.WeatherSnapshot) {
	if snapshot.Temperature <= 32 && snapshot.PrecipitationRate > 0 {
		snapshot.SnowAccum1Hr = round1(snapshot.PrecipitationRate * 10)
		snapshot.SnowAccum3Hr = round1(snapshot.SnowAccum1Hr * 3)
		snapshot.SnowAccum6Hr = round1(snapshot.SnowAccum1Hr * 6)
	}
}

func (svc *noaaService) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "snowcam/1.0")

	resp, err := svc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather API returned status %d for %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func fallbackSnapshot() model.WeatherSnapshot {
	return model.WeatherSnapshot{
		Temperature:   45,
		Humidity:      45,
		Conditions:    "Clear",
		WindDirection: "N",
		Timestamp:     time.Now(),
		Source:        "fallback",
	}
}

func degreesToCardinal(degrees float64) string {
	index := int(math.Round(degrees/22.5)) % 16
	if index < 0 {
		index += 16
	}
	return cardinals[index]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
