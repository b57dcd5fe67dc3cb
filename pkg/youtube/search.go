package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"nous-core/pkg/gateway"
)

const unknown = "Unknown"

var videoIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/)([A-Za-z0-9_-]{11})`)

// ParseVideoID extracts the 11-character id from a watch or short link.
func ParseVideoID(link string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(link)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// Searcher finds candidate videos through the YouTube Data API.
type Searcher struct {
	svc *yt.Service
}

var _ gateway.VideoSearcher = (*Searcher)(nil)

func NewSearcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Searcher, error) {
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Searcher{svc: svc}, nil
}

func (s *Searcher) SearchVideos(ctx context.Context, keywords []string, limit int) ([]gateway.VideoCandidate, error) {
	if limit <= 0 {
		limit = 10
	}
	query := strings.TrimSpace(strings.Join(keywords, " "))
	if query == "" {
		return []gateway.VideoCandidate{}, nil
	}

	resp, err := s.svc.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}

	out := make([]gateway.VideoCandidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		out = append(out, gateway.VideoCandidate{
			VideoID:   item.Id.VideoId,
			Title:     item.Snippet.Title,
			Thumbnail: thumbnail(item.Snippet.Thumbnails),
			Channel:   channel(item.Snippet.ChannelTitle),
			Duration:  unknown,
			Views:     unknown,
			URL:       WatchURL(item.Id.VideoId),
		})
	}
	return out, nil
}

// LookupVideo returns one video's details, including duration and views.
func (s *Searcher) LookupVideo(ctx context.Context, id string) (*gateway.VideoCandidate, error) {
	resp, err := s.svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, gateway.New(gateway.NotFound, "Video not found.", gateway.ErrNotFound)
	}

	v := resp.Items[0]
	c := &gateway.VideoCandidate{
		VideoID:   v.Id,
		Title:     v.Snippet.Title,
		Thumbnail: thumbnail(v.Snippet.Thumbnails),
		Channel:   channel(v.Snippet.ChannelTitle),
		Duration:  unknown,
		Views:     unknown,
		URL:       WatchURL(v.Id),
	}
	if v.ContentDetails != nil && v.ContentDetails.Duration != "" {
		c.Duration = v.ContentDetails.Duration
	}
	if v.Statistics != nil {
		c.Views = strconv.FormatUint(v.Statistics.ViewCount, 10)
	}
	return c, nil
}

func thumbnail(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func channel(name string) string {
	if name == "" {
		return "Unknown Channel"
	}
	return name
}

// classify maps Data API failures onto gateway kinds.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return gateway.Wrap(gateway.Transient, err)
	}
	switch {
	case gerr.Code == http.StatusForbidden && isQuotaReason(gerr):
		return gateway.New(gateway.Permanent, gateway.QuotaExceededMessage, err)
	case gerr.Code == http.StatusTooManyRequests:
		return gateway.New(gateway.Permanent, gateway.QuotaExceededMessage, err)
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return gateway.Wrap(gateway.Unauthorized, err)
	case gerr.Code == http.StatusNotFound:
		return gateway.Wrap(gateway.NotFound, err)
	case gerr.Code >= 500:
		return gateway.Wrap(gateway.Transient, err)
	}
	return gateway.Wrap(gateway.Permanent, err)
}

func isQuotaReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}
