// Package service implements the request routing use cases on top of the
// repository, the workflow machine and the authorization engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"docroute/internal/authz"
	"docroute/internal/models"
	"docroute/internal/notifications"
	"docroute/internal/observability"
	"docroute/internal/repository"
	"docroute/internal/retention"
	"docroute/internal/ssic"
	"docroute/internal/validation"
	"docroute/internal/workflow"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// List boxes.
const (
	BoxMine  = "mine"
	BoxInbox = "inbox"
	BoxAll   = "all"
)

// RequestService coordinates every read and write of routed requests.
type RequestService struct {
	repo     repository.RequestRepository
	engine   *authz.Engine
	machine  *workflow.Machine
	catalog  *ssic.Catalog
	notifier notifications.Publisher
	locks    *keyedMutex
	reads    singleflight.Group
	newID    func() string
	now      func() time.Time
	log      *observability.StructuredLogger
}

// Option configures a RequestService.
type Option func(*RequestService)

// WithCatalog sets the SSIC catalog used by classify and previews.
func WithCatalog(c *ssic.Catalog) Option {
	return func(s *RequestService) { s.catalog = c }
}

// WithNotifier publishes routing events after every committed change.
func WithNotifier(p notifications.Publisher) Option {
	return func(s *RequestService) { s.notifier = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *RequestService) { s.now = now }
}

// WithIDGenerator overrides how new request ids are minted.
func WithIDGenerator(f func() string) Option {
	return func(s *RequestService) { s.newID = f }
}

// NewRequestService wires a service. A nil engine uses default options.
func NewRequestService(repo repository.RequestRepository, engine *authz.Engine, opts ...Option) *RequestService {
	if engine == nil {
		engine = authz.NewEngine(authz.Options{})
	}
	s := &RequestService{
		repo:   repo,
		engine: engine,
		locks:  newKeyedMutex(),
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
		log:    observability.NewStructuredLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.machine = workflow.NewMachine(engine, workflow.WithClock(s.now))
	return s
}

// Engine returns the authorization engine in use.
func (s *RequestService) Engine() *authz.Engine {
	return s.engine
}

// CreateRequestInput describes a new request.
type CreateRequestInput struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	UnitUIC        string `json:"unit_uic"`
	InstallationID string `json:"installation_id"`
	Comment        string `json:"comment"`
}

// EditRequestInput changes the owner-editable fields. Nil fields are kept.
type EditRequestInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Version     int64   `json:"version"`
}

// TransitionInput is one routing action. Version, when set, must match the
// stored version. SSIC is resolved through the catalog for classify.
type TransitionInput struct {
	workflow.Input
	SSIC    string `json:"ssic,omitempty"`
	Version int64  `json:"version,omitempty"`
}

// ListInput selects a listing.
type ListInput struct {
	Box    string
	Stage  models.Stage
	Limit  int
	Offset int
}

// Permissions is the capability summary plus the actions the actor may try now.
type Permissions struct {
	authz.Capabilities
	Stage   models.Stage      `json:"stage"`
	Version int64             `json:"version"`
	Actions []workflow.Action `json:"actions"`
}

// Create validates input and stores a new request owned by actor.
func (s *RequestService) Create(ctx context.Context, actor authz.Actor, in CreateRequestInput) (*models.Request, error) {
	if actor.ID == "" {
		return nil, models.NewUnauthorizedError("actor is required")
	}
	title, err := validation.ValidateTitle(in.Title)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateComment(in.Comment); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	uic := strings.TrimSpace(in.UnitUIC)
	if uic == "" {
		uic = actor.UnitUIC
	}
	if err := validation.ValidateUIC(uic); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if actor.UnitUIC != "" && actor.UnitUIC != uic {
		return nil, models.NewForbiddenError("requests can only be created for your own unit")
	}

	var installation *string
	instID := strings.TrimSpace(in.InstallationID)
	if instID == "" {
		instID = actor.InstallationID
	}
	if instID != "" {
		if err := validation.ValidateInstallationID(instID); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		installation = &instID
	}

	req, err := s.machine.Create(workflow.CreateInput{
		ID:             s.newID(),
		Title:          title,
		Description:    in.Description,
		Owner:          actor,
		UnitUIC:        uic,
		InstallationID: installation,
		Comment:        strings.TrimSpace(in.Comment),
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &req); err != nil {
		return nil, mapRepoError(err, req.ID)
	}

	s.log.LogServiceCall(ctx, "RequestService", "Create", map[string]interface{}{
		"request_id": req.ID,
		"unit_uic":   req.UnitUIC,
	})
	s.publish(ctx, notifications.NewRoutingEvent(notifications.EventRequestCreated, "create", "", &req, actor))
	return &req, nil
}

// Get returns a snapshot of the request. Concurrent reads of the same id
// share one repository call.
func (s *RequestService) Get(ctx context.Context, id string) (*models.Request, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.reads.Do(id, func() (interface{}, error) {
		return s.repo.GetByID(shared, id)
	})
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	snapshot := v.(*models.Request).Clone()
	return &snapshot, nil
}

// Edit changes the title or description while the owner may still edit.
// Edits do not add ledger entries.
func (s *RequestService) Edit(ctx context.Context, actor authz.Actor, id string, in EditRequestInput) (*models.Request, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.CanRequesterEdit(req, actor.ID) {
		return nil, models.NewForbiddenError("request can no longer be edited")
	}
	if err := checkVersion(req, in.Version); err != nil {
		return nil, err
	}

	next := req.Clone()
	if in.Title != nil {
		title, err := validation.ValidateTitle(*in.Title)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		next.Title = title
	}
	if in.Description != nil {
		if err := validation.ValidateDescription(*in.Description); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		next.Description = *in.Description
	}
	next.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, &next, req.Version); err != nil {
		return nil, mapRepoError(err, id)
	}
	s.publish(ctx, notifications.NewRoutingEvent(notifications.EventRequestUpdated, "edit", req.CurrentStage, &next, actor))
	return &next, nil
}

// Delete removes a request the owner may still delete. version 0 skips the
// caller-side version check; the stored version is always enforced.
func (s *RequestService) Delete(ctx context.Context, actor authz.Actor, id string, version int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !s.engine.CanDeleteRequest(req, actor.ID) {
		return models.NewForbiddenError("request can no longer be deleted")
	}
	if err := checkVersion(req, version); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, req.Version); err != nil {
		return mapRepoError(err, id)
	}

	s.log.LogServiceCall(ctx, "RequestService", "Delete", map[string]interface{}{"request_id": id})
	s.publish(ctx, notifications.NewRoutingEvent(notifications.EventRequestDeleted, "delete", req.CurrentStage, req, actor))
	return nil
}

// Transition authorizes and applies one routing action, then persists the
// result against the version it was computed from.
func (s *RequestService) Transition(ctx context.Context, id string, actor authz.Actor, in TransitionInput) (*models.Request, error) {
	action := string(in.Action)
	ctx, span := observability.GetTraceLayer().TraceTransition(ctx, id, action)
	defer span.End()

	next, from, err := s.transition(ctx, id, actor, in)
	observability.RecordTransition(action, outcomeFor(err))
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		return nil, err
	}

	s.log.LogTransition(ctx, id, action, string(from), string(next.CurrentStage), next.Version)
	s.publish(ctx, notifications.NewRoutingEvent(notifications.EventRequestTransitioned, action, from, next, actor))
	return next, nil
}

func (s *RequestService) transition(ctx context.Context, id string, actor authz.Actor, in TransitionInput) (*models.Request, models.Stage, error) {
	if actor.ID == "" {
		return nil, "", models.NewUnauthorizedError("actor is required")
	}
	if err := validateTransitionInput(in); err != nil {
		return nil, "", err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := checkVersion(req, in.Version); err != nil {
		return nil, req.CurrentStage, err
	}

	wf := in.Input
	wf.Actor = actor
	if err := s.authorize(req, actor, &wf, in.SSIC); err != nil {
		return nil, req.CurrentStage, err
	}

	next, err := s.machine.Apply(*req, wf)
	if err != nil {
		return nil, req.CurrentStage, err
	}
	if err := s.repo.Save(ctx, &next, req.Version); err != nil {
		return nil, req.CurrentStage, mapRepoError(err, id)
	}
	return &next, req.CurrentStage, nil
}

// authorize checks that actor may perform wf on req and fills in the
// archive level and classification the machine needs.
func (s *RequestService) authorize(req *models.Request, actor authz.Actor, wf *workflow.Input, ssicCode string) error {
	switch wf.Action {
	case workflow.ActionArchive, workflow.ActionFile:
		level := wf.Level
		if level == "" {
			level = actor.Level
			if s.engine.OriginatorArchiveOnly(req, actor.ID) {
				level = authz.LevelOriginator
			}
		}
		switch {
		case level == authz.LevelOriginator:
			if req.UploadedByID != actor.ID {
				return models.NewForbiddenError("only the originator may act at the originator level")
			}
		case level != actor.Level:
			return models.NewForbiddenError("actor does not operate at level " + string(level))
		}
		wf.Level = level
		return nil

	case workflow.ActionClassify:
		caps := s.engine.Summarize(req, actor)
		if req.UploadedByID != actor.ID && !caps.CanAct && !caps.CanArchive {
			return models.NewForbiddenError("actor may not classify this request")
		}
		c, err := s.resolveClassification(ssicCode, wf.Classification)
		if err != nil {
			return err
		}
		wf.Classification = &c
		return nil
	}

	if !s.engine.CanActOnStage(req, actor) {
		return models.NewForbiddenError("actor does not hold this request at " + string(req.CurrentStage))
	}
	return nil
}

// resolveClassification prefers the catalog. Without a catalog an explicit
// classification is accepted as given.
func (s *RequestService) resolveClassification(code string, explicit *models.Classification) (models.Classification, error) {
	code = strings.TrimSpace(code)
	if code == "" && explicit != nil {
		code = strings.TrimSpace(explicit.SSIC)
	}
	if code == "" {
		return models.Classification{}, models.NewValidationError("SSIC is required")
	}
	if s.catalog == nil {
		if explicit == nil {
			return models.Classification{}, models.NewValidationError("classification details are required")
		}
		c := *explicit
		c.SSIC = code
		return c, nil
	}
	c, err := s.catalog.Classify(code)
	if err != nil {
		return models.Classification{}, models.NewValidationError("unknown SSIC " + code)
	}
	return c, nil
}

// Permissions summarizes what actor may do with the request right now.
func (s *RequestService) Permissions(ctx context.Context, actor authz.Actor, id string) (*Permissions, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	caps := s.engine.Summarize(req, actor)
	p := &Permissions{
		Capabilities: caps,
		Stage:        req.CurrentStage,
		Version:      req.Version,
		Actions:      []workflow.Action{},
	}
	if caps.CanAct {
		for _, a := range routingActions {
			if workflow.Allowed(a, req.CurrentStage) {
				p.Actions = append(p.Actions, a)
			}
		}
	}
	if (req.UploadedByID == actor.ID || caps.CanAct || caps.CanArchive) && !req.IsFiled() {
		p.Actions = append(p.Actions, workflow.ActionClassify)
	}
	if caps.CanArchive {
		p.Actions = append(p.Actions, workflow.ActionArchive)
	}
	if caps.CanFile {
		p.Actions = append(p.Actions, workflow.ActionFile)
	}
	return p, nil
}

var routingActions = []workflow.Action{
	workflow.ActionForward,
	workflow.ActionCommanderDecision,
	workflow.ActionReturnToOriginator,
	workflow.ActionResubmit,
	workflow.ActionRouteToInstallation,
	workflow.ActionInstallationRoute,
	workflow.ActionInstallationDecision,
	workflow.ActionSubmitToHQMC,
	workflow.ActionHQMCDecision,
	workflow.ActionSendToExternal,
	workflow.ActionExternalRoute,
	workflow.ActionReturnToUnit,
}

// List returns requests in the actor's box.
func (s *RequestService) List(ctx context.Context, actor authz.Actor, in ListInput) ([]*models.Request, error) {
	if in.Stage != "" && !in.Stage.Valid() {
		return nil, models.NewValidationError("unknown stage " + string(in.Stage))
	}
	limit, offset := pageBounds(in.Limit, in.Offset)

	switch in.Box {
	case BoxMine:
		f := repository.ListFilter{OwnerID: actor.ID, Limit: limit, Offset: offset}
		if in.Stage != "" {
			f.Stages = []models.Stage{in.Stage}
		}
		return s.list(ctx, f)
	case "", BoxInbox:
		return s.inbox(ctx, actor, in.Stage, limit, offset)
	case BoxAll:
		f := s.scopeFilter(actor)
		f.Limit, f.Offset = limit, offset
		if in.Stage != "" {
			f.Stages = []models.Stage{in.Stage}
		}
		return s.list(ctx, f)
	}
	return nil, models.NewValidationError("box must be mine, inbox or all")
}

// inbox lists requests the actor currently holds, newest first.
func (s *RequestService) inbox(ctx context.Context, actor authz.Actor, stage models.Stage, limit, offset int) ([]*models.Request, error) {
	var filters []repository.ListFilter
	if actor.ID != "" {
		filters = append(filters, repository.ListFilter{OwnerID: actor.ID, Stages: []models.Stage{models.StageOriginatorReview}})
	}
	switch actor.Level {
	case authz.LevelUnit:
		if actor.UnitUIC != "" {
			filters = append(filters,
				repository.ListFilter{UnitUIC: actor.UnitUIC, Stages: []models.Stage{
					models.StagePlatoonReview, models.StageCompanyReview,
					models.StageBattalionReview, models.StageCommanderReview,
				}},
				repository.ListFilter{ExternalUnitUIC: actor.UnitUIC, Stages: []models.Stage{models.StageExternalReview}},
			)
		}
	case authz.LevelExternal:
		if actor.UnitUIC != "" {
			filters = append(filters, repository.ListFilter{ExternalUnitUIC: actor.UnitUIC, Stages: []models.Stage{models.StageExternalReview}})
		}
	case authz.LevelInstallation:
		if actor.InstallationID != "" {
			filters = append(filters, repository.ListFilter{InstallationID: actor.InstallationID, Stages: []models.Stage{models.StageInstallationReview}})
		}
	case authz.LevelHQMC:
		f := repository.ListFilter{Stages: []models.Stage{models.StageHQMCReview}}
		if s.engine.Options().StrictHQMCScope {
			f.RouteSection = actor.Division
		}
		if f.RouteSection != "" || !s.engine.Options().StrictHQMCScope {
			filters = append(filters, f)
		}
	}

	seen := make(map[string]bool)
	out := []*models.Request{}
	for _, f := range filters {
		reqs, err := s.list(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, r := range reqs {
			if seen[r.ID] || (stage != "" && r.CurrentStage != stage) {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if offset >= len(out) {
		return []*models.Request{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// scopeFilter limits broad listings to the actor's organization.
func (s *RequestService) scopeFilter(actor authz.Actor) repository.ListFilter {
	switch actor.Level {
	case authz.LevelUnit:
		if actor.UnitUIC != "" {
			return repository.ListFilter{UnitUIC: actor.UnitUIC}
		}
	case authz.LevelInstallation:
		if actor.InstallationID != "" {
			return repository.ListFilter{InstallationID: actor.InstallationID}
		}
	case authz.LevelHQMC:
		return repository.ListFilter{}
	}
	return repository.ListFilter{OwnerID: actor.ID}
}

func (s *RequestService) list(ctx context.Context, f repository.ListFilter) ([]*models.Request, error) {
	reqs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if reqs == nil {
		reqs = []*models.Request{}
	}
	return reqs, nil
}

// RetentionSchedule groups the filed requests visible to actor by disposal year.
func (s *RequestService) RetentionSchedule(ctx context.Context, actor authz.Actor) (retention.Schedule, error) {
	reqs, err := s.repo.ListFiled(ctx, s.scopeFilter(actor))
	if err != nil {
		return retention.Schedule{}, models.NewInternalError(err)
	}
	return retention.GroupFiledByDisposalYear(reqs), nil
}

// DisposalPreview projects retention for the request. A non-empty ssicCode
// previews that classification instead of the stored one. Missing
// classification yields an "Unknown" preview, not an error.
func (s *RequestService) DisposalPreview(ctx context.Context, id, ssicCode string) (retention.Preview, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return retention.Preview{}, err
	}
	c := req.Classification
	if strings.TrimSpace(ssicCode) != "" {
		if c, err = s.Classify(ssicCode); err != nil {
			return retention.Preview{}, err
		}
	}
	return retention.PreviewFor(c, retention.ReferenceDate(req)), nil
}

// Classify resolves code against the catalog.
func (s *RequestService) Classify(code string) (models.Classification, error) {
	if s.catalog == nil {
		return models.Classification{}, models.NewNotFoundError("SSIC", code)
	}
	return s.catalog.Classify(code)
}

// LookupSSIC returns the catalog row that code resolves to.
func (s *RequestService) LookupSSIC(code string) (ssic.Entry, error) {
	if s.catalog != nil {
		if e, ok := s.catalog.Lookup(code); ok {
			return e, nil
		}
	}
	return ssic.Entry{}, models.NewNotFoundError("SSIC", code)
}

// SSICEntries lists the catalog.
func (s *RequestService) SSICEntries() []ssic.Entry {
	if s.catalog == nil {
		return []ssic.Entry{}
	}
	return s.catalog.Entries()
}

// load reads the request a write will be computed from.
func (s *RequestService) load(ctx context.Context, id string) (*models.Request, error) {
	req, err := s.repo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return req, nil
}

func (s *RequestService) publish(ctx context.Context, ev notifications.RoutingEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishRouting(ctx, ev); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "routing notification failed",
			slog.String("request_id", ev.RequestID),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

func validateTransitionInput(in TransitionInput) error {
	if err := validation.ValidateComment(in.Comment); err != nil {
		return models.NewValidationError(err.Error())
	}
	if section := strings.TrimSpace(in.Section); section != "" {
		if err := validation.ValidateSectionCode(section); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	if uic := strings.TrimSpace(in.ExternalUnitUIC); uic != "" {
		if err := validation.ValidateUIC(uic); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	if id := strings.TrimSpace(in.InstallationID); id != "" {
		if err := validation.ValidateInstallationID(id); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	if in.Level != "" && authz.ParseLevel(string(in.Level)) == "" {
		return models.NewValidationError("unknown level " + string(in.Level))
	}
	return nil
}

func checkVersion(req *models.Request, expected int64) error {
	if expected != 0 && expected != req.Version {
		return models.NewConflictError("Request", req.ID,
			fmt.Errorf("expected version %d, stored version %d", expected, req.Version))
	}
	return nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func mapRepoError(err error, id string) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return models.NewNotFoundError("Request", id)
	case errors.Is(err, repository.ErrConflict):
		return models.NewConflictError("Request", id, err)
	}
	return models.NewInternalError(err)
}

func outcomeFor(err error) string {
	var appErr *models.AppError
	if err == nil {
		return "ok"
	}
	if !errors.As(err, &appErr) {
		return "error"
	}
	switch appErr.Code {
	case models.CodeConflict:
		return "conflict"
	case models.CodeForbidden, models.CodeUnauthorized:
		return "forbidden"
	case models.CodeInvalidTransition:
		return "invalid"
	case models.CodeValidation:
		return "rejected_input"
	case models.CodeNotFound:
		return "not_found"
	}
	return "error"
}
