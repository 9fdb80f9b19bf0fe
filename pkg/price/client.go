package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var httpClient = &http.Client{
	Timeout: time.Second * 30,
}

const DefaultBaseURL = "https://api.energidataservice.dk"

// Client fetches day-ahead spot prices from the energidataservice
// Elspotprices dataset. HTTP and JSON details stay in here; callers only
// see the resulting Schedule.
type Client struct {
	baseURL string
	area    string
}

func NewClient(baseURL, area string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		area:    area,
	}
}

type elspotResponse struct {
	Records []elspotRecord `json:"records"`
}

type elspotRecord struct {
	HourDK       string  `json:"HourDK"`
	SpotPriceEUR float64 `json:"SpotPriceEUR"`
}

// FetchToday retrieves the spot prices covering the day that contains
// now. The request is bounded by the client timeout; a failure leaves
// whatever schedule the caller already has untouched.
func (c *Client) FetchToday(ctx context.Context, now time.Time) (Schedule, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	q := url.Values{}
	q.Set("start", day.Format("2006-01-02"))
	q.Set("end", day.AddDate(0, 0, 1).Format("2006-01-02"))
	q.Set("filter", fmt.Sprintf(`{"PriceArea":["%s"]}`, c.area))

	u := fmt.Sprintf("%s/dataset/Elspotprices?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("error fetching spot prices StatusCode: %d", resp.StatusCode)
	}

	response := &elspotResponse{}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return nil, fmt.Errorf("error decoding spot prices: %w", err)
	}

	schedule := make(Schedule, 0, len(response.Records))
	for _, r := range response.Records {
		ts, err := time.ParseInLocation("2006-01-02T15:04:05", r.HourDK, now.Location())
		if err != nil {
			logrus.Warnf("price: skipping record with bad timestamp %q: %v", r.HourDK, err)
			continue
		}
		schedule = append(schedule, Entry{
			Time: ts,
			// The feed prices EUR/MWh; decisions are made in EUR/kWh.
			Price: decimal.NewFromFloat(r.SpotPriceEUR).Div(decimal.NewFromInt(1000)),
		})
	}

	schedule = schedule.normalize()
	logrus.Debugf("price: fetched %d price entries", len(schedule))
	return schedule, nil
}
