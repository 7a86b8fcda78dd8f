package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"termbot/internal/progress"
)

const (
	DefaultEndpoint = "https://quickchart.io/chart"
	maxImageBytes   = 10 << 20
)

// StatusError is returned when the chart service answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chart service: status %d", e.Code)
	}
	return fmt.Sprintf("chart service: status %d: %s", e.Code, e.Body)
}

// Fetcher downloads the bar from a QuickChart-compatible endpoint.
type Fetcher struct {
	endpoint string
	client   *http.Client
	style    Style
}

func NewFetcher(endpoint string, timeout time.Duration, style Style) *Fetcher {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{endpoint: endpoint, client: &http.Client{Timeout: timeout}, style: style}
}

func (f *Fetcher) Produce(ctx context.Context, percentage float64, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	u, err := f.URL(percentage, width, height)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("chart read: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("chart service returned an empty body")
	}
	return body, nil
}

// URL encodes the chart request for percentage at the given size.
func (f *Fetcher) URL(percentage float64, width, height int) (string, error) {
	chart, err := ChartConfig(percentage, f.style)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("c", chart)
	q.Set("w", strconv.Itoa(width))
	q.Set("h", strconv.Itoa(height))
	q.Set("f", "png")
	q.Set("bkg", hexString(f.style.Background))
	return f.endpoint + "?" + q.Encode(), nil
}

// ChartConfig builds a stacked horizontal bar (filled share + remainder)
// titled with the percentage label, in Chart.js v2 form.
func ChartConfig(percentage float64, style Style) (string, error) {
	pct := clampPercent(percentage)
	remaining := progress.FormatPercent(math.Round((100-pct)*100) / 100)

	filled, err := dataset(progress.FormatPercent(pct), hexString(style.Bar))
	if err != nil {
		return "", err
	}
	rest, err := dataset(remaining, hexString(style.Remaining))
	if err != nil {
		return "", err
	}

	steps := []struct {
		path string
		raw  string
		val  any
	}{
		{path: "type", val: "horizontalBar"},
		{path: "data.labels", raw: `[""]`},
		{path: "data.datasets", raw: "[" + filled + "," + rest + "]"},
		{path: "options.legend.display", val: false},
		{path: "options.title.display", val: true},
		{path: "options.title.text", val: progress.FormatPercent(pct) + "%"},
		{path: "options.title.fontSize", val: style.FontSize},
		{path: "options.title.fontStyle", val: "bold"},
		{path: "options.title.fontColor", val: hexString(style.Text)},
		{path: "options.scales.xAxes", raw: `[{"stacked":true,"display":false,"ticks":{"min":0,"max":100}}]`},
		{path: "options.scales.yAxes", raw: `[{"stacked":true,"display":false}]`},
	}
	cfg := "{}"
	for _, s := range steps {
		if s.raw != "" {
			cfg, err = sjson.SetRaw(cfg, s.path, s.raw)
		} else {
			cfg, err = sjson.Set(cfg, s.path, s.val)
		}
		if err != nil {
			return "", fmt.Errorf("chart config %s: %w", s.path, err)
		}
	}
	return cfg, nil
}

func dataset(value, color string) (string, error) {
	ds, err := sjson.SetRaw("{}", "data", "["+value+"]")
	if err != nil {
		return "", err
	}
	ds, err = sjson.Set(ds, "backgroundColor", color)
	if err != nil {
		return "", err
	}
	return sjson.Set(ds, "borderWidth", 0)
}
