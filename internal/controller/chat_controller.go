package controller

import (
	"nous-core/internal/dto"
	"nous-core/internal/pkg/serverutils"
	"nous-core/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
	Context(ctx *fiber.Ctx) error
	RelatedLessons(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	Cleanup(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatbotService
}

func NewChatController(service service.IChatbotService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat")
	h.Post("/send", c.Send)
	h.Get("/context/:lesson_id", serverutils.JwtMiddleware, c.Context)
	h.Get("/related-lessons/:lesson_id", serverutils.JwtMiddleware, c.RelatedLessons)
	h.Get("/health", c.Health)
	h.Post("/cleanup", c.Cleanup)
}

// Send answers one chat turn. LLM failures come back as a 200 with the
// fallback reply.
func (c *chatController) Send(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	token := serverutils.ExtractToken(ctx)
	session := c.service.GetOrCreate(req.ConversationID, req.LessonID.String(), serverutils.UserIDFromToken(token))
	reply := c.service.Respond(ctx.UserContext(), session, req.Message, req.Mode, token)
	return ctx.JSON(reply)
}

func (c *chatController) Context(ctx *fiber.Ctx) error {
	token, _ := ctx.Locals(serverutils.LocalsToken).(string)
	res, err := c.service.LessonContext(ctx.UserContext(), ctx.Params("lesson_id"), token)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) RelatedLessons(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	token, _ := ctx.Locals(serverutils.LocalsToken).(string)
	lessons, err := c.service.RelatedLessons(ctx.UserContext(), ctx.Params("lesson_id"), limit, token)
	if err != nil {
		return err
	}
	return ctx.JSON(dto.RelatedLessonsResponse{RelatedLessons: lessons})
}

func (c *chatController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Health(ctx.UserContext()))
}

func (c *chatController) Cleanup(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Cleanup())
}
