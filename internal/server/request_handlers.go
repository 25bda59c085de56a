package server

import (
	"docroute/internal/models"
	"docroute/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateRequest handles POST /api/requests
// @Summary Create a routing request
// @Description Creates a request owned by the caller at the platoon stage.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateRequestInput true "New request"
// @Success 201 {object} models.Request
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /requests [post]
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return nil
	}

	var in service.CreateRequestInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	req, err := s.requests.Create(c.UserContext(), actor, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// ListRequests handles GET /api/requests
// @Summary List requests
// @Description box=inbox (default) lists what the caller holds, mine what they own, all everything in their scope.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param box query string false "inbox, mine or all"
// @Param stage query string false "Stage filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Request
// @Failure 400 {object} models.ErrorResponse
// @Router /requests [get]
func (s *Server) ListRequests(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	var stage models.Stage
	if raw := c.Query("stage"); raw != "" {
		if stage, err = models.ParseStage(raw); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
		}
	}

	reqs, err := s.requests.List(c.UserContext(), actor, service.ListInput{
		Box:    c.Query("box"),
		Stage:  stage,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reqs)
}

// GetRequest handles GET /api/requests/:id
// @Summary Get a request
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} models.Request
// @Failure 404 {object} models.ErrorResponse
// @Router /requests/{id} [get]
func (s *Server) GetRequest(c *fiber.Ctx) error {
	if _, err := requireActor(c); err != nil {
		return nil
	}
	req, err := s.requests.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// UpdateRequest handles PATCH /api/requests/:id
// @Summary Edit a request
// @Description Owner-only while the request is still editable.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param request body service.EditRequestInput true "Changed fields"
// @Success 200 {object} models.Request
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /requests/{id} [patch]
func (s *Server) UpdateRequest(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return nil
	}

	var in service.EditRequestInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	req, err := s.requests.Edit(c.UserContext(), actor, c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// DeleteRequest handles DELETE /api/requests/:id
// @Summary Delete a request
// @Tags requests
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param version query int false "Expected version"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /requests/{id} [delete]
func (s *Server) DeleteRequest(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return nil
	}
	version, err := parseVersion(c)
	if err != nil {
		return nil
	}

	if err := s.requests.Delete(c.UserContext(), actor, c.Params("id"), version); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TransitionRequest handles POST /api/requests/:id/transitions
// @Summary Apply a routing action
// @Description Runs one workflow action (forward, commander_decision, archive, ...) as the caller.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param request body service.TransitionInput true "Routing action"
// @Success 200 {object} models.Request
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /requests/{id}/transitions [post]
func (s *Server) TransitionRequest(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return nil
	}

	var in service.TransitionInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	req, err := s.requests.Transition(c.UserContext(), c.Params("id"), actor, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// GetRequestPermissions handles GET /api/requests/:id/permissions
// @Summary Caller capabilities on a request
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} service.Permissions
// @Failure 404 {object} models.ErrorResponse
// @Router /requests/{id}/permissions [get]
func (s *Server) GetRequestPermissions(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return nil
	}
	p, err := s.requests.Permissions(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}
