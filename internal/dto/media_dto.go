package dto

import "nous-core/pkg/gateway"

type SearchYoutubeRequest struct {
	Keywords   []string `json:"keywords" validate:"required,min=1,dive,required"`
	MaxResults int      `json:"max_results" validate:"omitempty,min=1,max=50"`
}

type SearchYoutubeResponse struct {
	Videos []gateway.VideoCandidate `json:"videos"`
}

type AddYoutubeVideoRequest struct {
	Link string `json:"link" validate:"required"`
}

type AddYoutubeVideoResponse struct {
	Video gateway.VideoCandidate `json:"video"`
}
