package controller

import (
	"nous-core/internal/dto"
	"nous-core/internal/pkg/serverutils"
	"nous-core/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IMediaController interface {
	RegisterRoutes(r fiber.Router)
	SearchYoutube(ctx *fiber.Ctx) error
	AddYoutubeVideo(ctx *fiber.Ctx) error
}

type mediaController struct {
	service service.IMediaService
}

func NewMediaController(service service.IMediaService) IMediaController {
	return &mediaController{service: service}
}

func (c *mediaController) RegisterRoutes(r fiber.Router) {
	r.Post("/search-youtube", c.SearchYoutube)
	r.Post("/add-youtube-video", c.AddYoutubeVideo)
}

func (c *mediaController) SearchYoutube(ctx *fiber.Ctx) error {
	var req dto.SearchYoutubeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	videos, err := c.service.SearchYoutube(ctx.UserContext(), req.Keywords, req.MaxResults)
	if err != nil {
		return err
	}
	return ctx.JSON(dto.SearchYoutubeResponse{Videos: videos})
}

func (c *mediaController) AddYoutubeVideo(ctx *fiber.Ctx) error {
	var req dto.AddYoutubeVideoRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	video, err := c.service.AddYoutubeVideo(ctx.UserContext(), req.Link)
	if err != nil {
		return err
	}
	return ctx.JSON(dto.AddYoutubeVideoResponse{Video: *video})
}
