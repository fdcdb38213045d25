// Package video searches YouTube for highlight clips.
package video

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/pkg/breaker"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

const component = "video"

// Sentinel kinds for search errors.
var (
	ErrMissingAPIKey = errors.New("youtube api key is required")
	ErrVideoNotFound = errors.New("video not found")
)

// YouTube implements clip.VideoSearch against the Data API v3.
type YouTube struct {
	svc     *youtube.Service
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
	log     logger.Logger

	endpoint string
	rps      float64
	burst    int
}

// NewYouTube builds a client that authenticates every request with apiKey.
// The http client is owned by the caller and its transport is wrapped, not
// replaced.
func NewYouTube(ctx context.Context, httpClient *http.Client, apiKey string, opts ...Option) (*YouTube, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	y := &YouTube{
		log:   logger.Nop(),
		rps:   5,
		burst: 5,
	}
	for _, opt := range opts {
		opt(y)
	}
	if y.limiter == nil {
		y.limiter = rate.NewLimiter(rate.Limit(y.rps), y.burst)
	}
	if y.cb == nil {
		y.cb = breaker.New(component, breaker.Defaults(), y.log)
	}

	keyed := &http.Client{
		Transport: &transport.APIKey{Key: apiKey, Transport: httpClient.Transport},
		Timeout:   httpClient.Timeout,
	}
	clientOpts := []option.ClientOption{option.WithHTTPClient(keyed)}
	if y.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(y.endpoint))
	}
	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating youtube service: %w", err)
	}
	y.svc = svc
	return y, nil
}

// Search returns up to maxResults videos for q, with duration and view count
// filled from one batched details lookup.
func (y *YouTube) Search(ctx context.Context, q string, maxResults int, publishedAfter time.Time) ([]model.Video, error) {
	start := time.Now()
	videos, err := breaker.Execute(y.cb, func() ([]model.Video, error) {
		return y.search(ctx, q, maxResults, publishedAfter)
	})
	y.observe(start, err)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", q, err)
	}
	return videos, nil
}

func (y *YouTube) search(ctx context.Context, q string, maxResults int, publishedAfter time.Time) ([]model.Video, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	call := y.svc.Search.List([]string{"id", "snippet"}).
		Q(q).
		Type("video").
		Order("relevance").
		MaxResults(int64(maxResults)).
		Context(ctx)
	if !publishedAfter.IsZero() {
		call = call.PublishedAfter(publishedAfter.UTC().Format(time.RFC3339))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, err
	}

	videos := make([]model.Video, 0, len(resp.Items))
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		id := item.Id.VideoId
		published, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		videos = append(videos, model.Video{
			ID:          id,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			Channel:     item.Snippet.ChannelTitle,
			PublishedAt: published,
			URL:         "https://www.youtube.com/watch?v=" + id,
			EmbedURL:    "https://www.youtube.com/embed/" + id,
		})
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return videos, nil
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	details, err := y.svc.Videos.List([]string{"contentDetails", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*youtube.Video, len(details.Items))
	for _, v := range details.Items {
		byID[v.Id] = v
	}

	// Results without details were removed or made private since indexing.
	out := videos[:0]
	for _, v := range videos {
		d, ok := byID[v.ID]
		if !ok {
			continue
		}
		if d.ContentDetails != nil {
			v.Duration, _ = ParseDuration(d.ContentDetails.Duration)
		}
		if d.Statistics != nil {
			v.ViewCount = int64(d.Statistics.ViewCount)
		}
		out = append(out, v)
	}
	return out, nil
}

// FetchDescription returns the full description of one video.
func (y *YouTube) FetchDescription(ctx context.Context, videoID string) (string, error) {
	start := time.Now()
	desc, err := breaker.Execute(y.cb, func() (string, error) {
		if err := y.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := y.svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
			return "", fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
		}
		return resp.Items[0].Snippet.Description, nil
	})
	y.observe(start, err)
	if err != nil {
		return "", fmt.Errorf("fetching description of %s: %w", videoID, err)
	}
	return desc, nil
}

func (y *YouTube) observe(start time.Time, err error) {
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordUpstream(component, "error", latency)
		return
	}
	metrics.RecordUpstream(component, "ok", latency)
}

// ParseDuration reads the ISO 8601 durations the API reports, such as
// "PT1H2M3S" or "P1DT5M". Week and month designators are not used by the API.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	var (
		total  time.Duration
		inTime bool
		num    int
		digits bool
		units  int
	)
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			num = num*10 + int(c-'0')
			digits = true
			continue
		case c == 'T':
			if digits || inTime {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			inTime = true
			continue
		}
		if !digits {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		var unit time.Duration
		switch {
		case c == 'D' && !inTime:
			unit = 24 * time.Hour
		case c == 'H' && inTime:
			unit = time.Hour
		case c == 'M' && inTime:
			unit = time.Minute
		case c == 'S' && inTime:
			unit = time.Second
		default:
			return 0, fmt.Errorf("invalid duration %q: unexpected %s", s, strconv.QuoteRune(rune(c)))
		}
		total += time.Duration(num) * unit
		num, digits = 0, false
		units++
	}
	if digits || units == 0 || s[len(s)-1] == 'T' {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total, nil
}
