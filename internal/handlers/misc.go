package handlers

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"kobapay/internal/apperr"
	"kobapay/internal/pipeline"
	"kobapay/internal/services/location"
	"kobapay/internal/services/media"
)

// MediaHandler serves the upload catalog and file uploads.
type MediaHandler struct {
	pipe  *pipeline.Pipeline
	media *media.Service
}

func NewMediaHandler(pipe *pipeline.Pipeline, mediaService *media.Service) *MediaHandler {
	return &MediaHandler{pipe: pipe, media: mediaService}
}

func (h *MediaHandler) Catalog() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
	}, func(c *pipeline.Ctx) (any, error) {
		return h.media.Catalog()
	})
}

func (h *MediaHandler) Upload() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth:  true,
		DisableAudit:  true,
		SuccessStatus: fiber.StatusCreated,
	}, func(c *pipeline.Ctx) (any, error) {
		file, err := c.Fiber.FormFile("file")
		if err != nil {
			return nil, apperr.User("A file is required")
		}
		mediaName := c.Fiber.FormValue("media")
		if mediaName == "" {
			return nil, apperr.User("The media kind is required")
		}

		src, err := file.Open()
		if err != nil {
			return nil, apperr.Server(err, "media.Upload")
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			return nil, apperr.Server(err, "media.Upload")
		}

		return h.media.Upload(c.Actor, mediaName, file.Filename, data)
	})
}

// LocationHandler serves reference data lookups.
type LocationHandler struct {
	pipe      *pipeline.Pipeline
	locations *location.Service
}

func NewLocationHandler(pipe *pipeline.Pipeline, locations *location.Service) *LocationHandler {
	return &LocationHandler{pipe: pipe, locations: locations}
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, apperr.User(name + " is not a number")
	}
	return uint(id), nil
}

func (h *LocationHandler) Countries() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{}, func(c *pipeline.Ctx) (any, error) {
		return h.locations.Countries(c.Fiber.Context())
	})
}

func (h *LocationHandler) States() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{}, func(c *pipeline.Ctx) (any, error) {
		id, err := paramID(c.Fiber, "countryId")
		if err != nil {
			return nil, err
		}
		return h.locations.States(c.Fiber.Context(), id)
	})
}

func (h *LocationHandler) Cities() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{}, func(c *pipeline.Ctx) (any, error) {
		id, err := paramID(c.Fiber, "stateId")
		if err != nil {
			return nil, err
		}
		return h.locations.Cities(c.Fiber.Context(), id)
	})
}
