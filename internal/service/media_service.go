package service

import (
	"context"

	"nous-core/internal/constant"
	"nous-core/pkg/gateway"
	"nous-core/pkg/youtube"
)

// VideoCatalog searches videos and looks single videos up by id.
// *youtube.Searcher implements it.
type VideoCatalog interface {
	gateway.VideoSearcher
	LookupVideo(ctx context.Context, id string) (*gateway.VideoCandidate, error)
}

type IMediaService interface {
	SearchYoutube(ctx context.Context, keywords []string, maxResults int) ([]gateway.VideoCandidate, error)
	AddYoutubeVideo(ctx context.Context, link string) (*gateway.VideoCandidate, error)
}

type mediaService struct {
	catalog VideoCatalog
}

func NewMediaService(catalog VideoCatalog) IMediaService {
	return &mediaService{catalog: catalog}
}

func (s *mediaService) SearchYoutube(ctx context.Context, keywords []string, maxResults int) ([]gateway.VideoCandidate, error) {
	if maxResults <= 0 {
		maxResults = constant.VideoSearchLimit
	}
	videos, err := s.catalog.SearchVideos(ctx, keywords, maxResults)
	if err != nil {
		return nil, err
	}
	if videos == nil {
		videos = []gateway.VideoCandidate{}
	}
	return videos, nil
}

// AddYoutubeVideo resolves a pasted watch or short link into a candidate.
func (s *mediaService) AddYoutubeVideo(ctx context.Context, link string) (*gateway.VideoCandidate, error) {
	id, ok := youtube.ParseVideoID(link)
	if !ok {
		return nil, gateway.New(gateway.Malformed, "Invalid YouTube link.", nil)
	}
	video, err := s.catalog.LookupVideo(ctx, id)
	if err != nil {
		if gateway.IsKind(err, gateway.NotFound) {
			return nil, gateway.New(gateway.NotFound, "Video not found.", err)
		}
		return nil, err
	}
	return video, nil
}
