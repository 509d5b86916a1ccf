/* external.go
 * Contains the client for the league game tracker, which records per pilot stats for games played on tracked
 * servers. Requests are rate limited, the tracker is a small community service.
 */

package external

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "OTLBot/1.0"

// Tracker fetches game data from the tracker API
type Tracker struct {
	BaseURL string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewTracker creates a tracker client allowing perSecond requests per second with a burst of one
// Preconditions: Receives the tracker base URL (e.g. https://tracker.otl.gg) and a request rate
// Postconditions: Returns the client, or an error if the URL is invalid
func NewTracker(baseURL string, perSecond float64) (*Tracker, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid tracker url %q", baseURL)
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Tracker{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
		Limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}, nil
}

// GetGame fetches one game by its tracker ID
// Preconditions: Receives a context and the tracker game ID
// Postconditions: Returns the game with its pilot stat lines, or an error if the request or decode fails
func (t *Tracker) GetGame(ctx context.Context, gameID int) (Game, error) {
	body, err := t.get(ctx, fmt.Sprintf("%s/api/game/%d", t.BaseURL, gameID))
	if err != nil {
		return Game{}, err
	}
	var game Game
	if err := json.Unmarshal(body, &game); err != nil {
		return Game{}, fmt.Errorf("failed to decode game %d: %w", gameID, err)
	}
	if game.ID == 0 {
		game.ID = gameID
	}
	return game, nil
}

func (t *Tracker) get(ctx context.Context, target string) ([]byte, error) {
	if err := t.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tracker rate limit: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Accept-Encoding", "gzip")

	response, err := t.Client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("tracker request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return nil, ErrGameNotFound
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker returned status %d", response.StatusCode)
	}

	var reader io.Reader = response.Body
	if response.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(response.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
