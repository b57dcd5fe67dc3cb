package controller

import (
	"errors"
	"fmt"
	"strings"

	"nous-core/internal/constant"
	"nous-core/internal/dto"
	"nous-core/internal/pkg/serverutils"
	"nous-core/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IGenerationController interface {
	RegisterRoutes(r fiber.Router)
	ProcessPdf(ctx *fiber.Ctx) error
	Progress(ctx *fiber.Ctx) error
	LessonResult(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Finish(ctx *fiber.Ctx) error
	Cleanup(ctx *fiber.Ctx) error
	FoundationPrompt(ctx *fiber.Ctx) error
}

type generationController struct {
	generation service.IGenerationService
	assembler  service.IAssemblerService
}

func NewGenerationController(generation service.IGenerationService, assembler service.IAssemblerService) IGenerationController {
	return &generationController{generation: generation, assembler: assembler}
}

func (c *generationController) RegisterRoutes(r fiber.Router) {
	r.Post("/process-pdf", c.ProcessPdf)
	r.Get("/progress/:session_id", c.Progress)
	r.Get("/lesson-result/:session_id", c.LessonResult)
	r.Post("/cancel-lesson-generation/:session_id", c.Cancel)
	r.Post("/finish", c.Finish)
	r.Post("/cleanup/:session_id", c.Cleanup)
	r.Get("/foundation-prompt", c.FoundationPrompt)
}

func (c *generationController) ProcessPdf(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "A PDF file is required")
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return fiber.NewError(fiber.StatusBadRequest, "Only PDF files are allowed")
	}

	var req dto.ProcessPdfRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.AuthToken == "" {
		req.AuthToken = serverutils.ExtractToken(ctx)
	}

	document, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer document.Close()

	sessionID, err := c.generation.Submit(ctx.UserContext(), service.SubmitRequest{
		FileName: file.Filename,
		Document: document,
		Title:    req.Title,
		CourseID: req.CourseID,
		Token:    req.AuthToken,
		Prompt:   req.Prompt,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(dto.ProcessPdfResponse{
		SessionID: sessionID,
		Status:    "processing",
		Message:   constant.MsgGenerationStarted,
	})
}

func (c *generationController) Progress(ctx *fiber.Ctx) error {
	rec, ok := c.generation.Progress(ctx.Params("session_id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	return ctx.JSON(rec)
}

// LessonResult hands the finished draft out once. A running session answers
// 202 and is left untouched.
func (c *generationController) LessonResult(ctx *fiber.Ctx) error {
	res, err := c.generation.TakeResult(ctx.Params("session_id"))
	if errors.Is(err, service.ErrResultPending) {
		return ctx.Status(fiber.StatusAccepted).JSON(dto.StatusResponse{
			Status:  "processing",
			Message: "Lesson generation still in progress",
		})
	}
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *generationController) Cancel(ctx *fiber.Ctx) error {
	if err := c.generation.Cancel(ctx.UserContext(), ctx.Params("session_id")); err != nil {
		return err
	}
	return ctx.JSON(dto.StatusResponse{
		Status:  "cancelled",
		Message: "Lesson generation cancelled successfully",
	})
}

func (c *generationController) Finish(ctx *fiber.Ctx) error {
	var req dto.FinishRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.AuthToken == "" {
		req.AuthToken = serverutils.ExtractToken(ctx)
	}

	res, err := c.assembler.Finish(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *generationController) Cleanup(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("session_id")
	if err := c.generation.RequestCleanup(ctx.UserContext(), sessionID); err != nil {
		return err
	}
	return ctx.JSON(dto.CleanupResponse{
		Status:  "queued",
		Message: "Cleanup requested for session " + sessionID,
	})
}

func (c *generationController) FoundationPrompt(ctx *fiber.Ctx) error {
	return ctx.JSON(c.generation.FoundationPrompt())
}
