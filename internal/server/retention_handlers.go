package server

import (
	"docroute/internal/models"
	"docroute/internal/ssic"

	"github.com/gofiber/fiber/v2"
)

// GetRetentionSchedule handles GET /api/retention/schedule
// @Summary Filed records by disposal year
// @Tags retention
// @Produce json
// @Security BearerAuth
// @Success 200 {object} retention.Schedule
// @Router /retention/schedule [get]
func (s *Server) GetRetentionSchedule(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return nil
	}
	sched, err := s.requests.RetentionSchedule(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sched)
}

// PreviewDisposal handles GET /api/requests/:id/retention
// @Summary Preview a request's disposal date
// @Description Uses the stored classification, or the ssic query parameter when given.
// @Tags retention
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param ssic query string false "SSIC to preview instead of the stored one"
// @Success 200 {object} retention.Preview
// @Failure 404 {object} models.ErrorResponse
// @Router /requests/{id}/retention [get]
func (s *Server) PreviewDisposal(c *fiber.Ctx) error {
	if _, err := requireActor(c); err != nil {
		return nil
	}
	preview, err := s.requests.DisposalPreview(c.UserContext(), c.Params("id"), c.Query("ssic"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(preview)
}

// ListSSIC handles GET /api/ssic
// @Summary List the SSIC catalog
// @Tags ssic
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ssic.Entry
// @Router /ssic [get]
func (s *Server) ListSSIC(c *fiber.Ctx) error {
	return c.JSON(s.requests.SSICEntries())
}

// ssicLookup pairs the matched catalog row with the classification a request
// would receive for the requested code.
type ssicLookup struct {
	Entry          ssic.Entry            `json:"entry"`
	Classification models.Classification `json:"classification"`
}

// LookupSSIC handles GET /api/ssic/:code
// @Summary Resolve an SSIC
// @Description Codes without an exact row fall back to their subject group.
// @Tags ssic
// @Produce json
// @Security BearerAuth
// @Param code path string true "SSIC"
// @Success 200 {object} server.ssicLookup
// @Failure 404 {object} models.ErrorResponse
// @Router /ssic/{code} [get]
func (s *Server) LookupSSIC(c *fiber.Ctx) error {
	code := c.Params("code")
	entry, err := s.requests.LookupSSIC(code)
	if err != nil {
		return respondError(c, err)
	}
	classification, err := s.requests.Classify(code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ssicLookup{Entry: entry, Classification: classification})
}
