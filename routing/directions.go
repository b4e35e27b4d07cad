package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

var (
	ErrNoAccessToken = errors.New("directions access token is not set")
	ErrNoRoute       = errors.New("directions returned no usable route")
)

// DirectionsClient calls a Mapbox-style driving directions endpoint.
type DirectionsClient struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Routes  []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

func NewDirectionsClient(baseURL, accessToken string) *DirectionsClient {
	return &DirectionsClient{
		BaseURL:     baseURL,
		AccessToken: accessToken,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func lngLat(c models.Coordinate) string {
	return strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

// Route issues a single request and returns the geometry in driver to user
// order. Any non-200, non-"Ok" or empty response is an error; the caller
// decides what to fall back to.
func (c *DirectionsClient) Route(ctx context.Context, origin, destination models.Coordinate) ([]models.Coordinate, error) {
	if c.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	q := url.Values{}
	q.Set("steps", "true")
	q.Set("geometries", "geojson")
	q.Set("access_token", c.AccessToken)
	endpoint := fmt.Sprintf("%s/%s;%s?%s", c.BaseURL, lngLat(origin), lngLat(destination), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	requestID := resp.Header.Get("X-Request-Id")
	audit := models.APILog{
		Provider:       "Mapbox",
		Endpoint:       "/directions/v5/mapbox/driving",
		RequestID:      &requestID,
		RequestPayload: map[string]string{"origin": lngLat(origin), "destination": lngLat(destination)},
		StatusCode:     resp.StatusCode,
		DurationMs:     int(time.Since(start).Milliseconds()),
	}

	if resp.StatusCode != http.StatusOK {
		audit.ResponsePayload = string(bodyBytes)
		utils.LogExternalAPI(audit)
		return nil, fmt.Errorf("directions api error: %s", resp.Status)
	}

	var result directionsResponse
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		audit.ResponsePayload = string(bodyBytes)
		utils.LogExternalAPI(audit)
		return nil, fmt.Errorf("decode directions: %w", err)
	}
	audit.ResponsePayload = map[string]any{"code": result.Code, "routes": len(result.Routes)}
	utils.LogExternalAPI(audit)

	if result.Code != "Ok" {
		return nil, fmt.Errorf("%w: code %q %s", ErrNoRoute, result.Code, result.Message)
	}
	if len(result.Routes) == 0 {
		return nil, ErrNoRoute
	}

	raw := result.Routes[0].Geometry.Coordinates
	points := make([]models.Coordinate, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: malformed coordinate", ErrNoRoute)
		}
		points = append(points, models.Coordinate{Lat: pair[1], Lng: pair[0]})
	}
	if len(points) < 2 {
		return nil, ErrNoRoute
	}
	return points, nil
}
