package activity

import (
	"context"
	"time"

	"agencycrm/auth"
	"agencycrm/directory"

	"github.com/google/uuid"
)

// BulkAction names a uniform mutation applied across a set of activities.
type BulkAction string

const (
	BulkArchive        BulkAction = "archive"
	BulkHide           BulkAction = "hide"
	BulkShow           BulkAction = "show"
	BulkDelete         BulkAction = "delete"
	BulkAddTag         BulkAction = "addTag"
	BulkRemoveTag      BulkAction = "removeTag"
	BulkChangePriority BulkAction = "changePriority"
)

// BulkRequest is the payload of the bulk endpoint. Value is required for tag
// and priority actions and must be absent otherwise.
type BulkRequest struct {
	ActivityIDs []string
	Action      BulkAction
	Value       string
}

// BulkResult reports the requested mutation. Affected is the requested count
// after de-duplication, not a verified per-document count.
type BulkResult struct {
	Affected int
	Action   BulkAction
	Value    string
}

// RequestMeta carries request-scoped context recorded on created activities.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Expanded is an activity enriched with display projections of its agent,
// user and client references.
type Expanded struct {
	Activity
	Agent  *directory.Person
	User   *directory.Person
	Client *directory.Person
}

// ListResult bundles one page of expanded activities with its pagination
// window.
type ListResult struct {
	Activities []Expanded
	Pagination Pagination
}

// DirectoryReader resolves display projections for referenced people.
type DirectoryReader interface {
	UsersByIDs(ctx context.Context, ids []string) (map[string]directory.Person, error)
	ClientsByIDs(ctx context.Context, ids []string) (map[string]directory.Person, error)
}

// Service implements the activity feed operations: filtered listing, stats,
// search, create/update, soft delete and bulk mutations, with role-based
// visibility applied throughout.
type Service struct {
	repo  Repository
	dir   DirectoryReader
	now   func() time.Time
	idGen func() string
}

// NewService builds a Service over the given repository and directory reader.
func NewService(repo Repository, dir DirectoryReader) *Service {
	return &Service{
		repo:  repo,
		dir:   dir,
		now:   time.Now,
		idGen: func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator overrides the id source, for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

// List returns one page of activities matching q, scoped to what actor may
// see.
func (s *Service) List(ctx context.Context, q ListQuery, actor Actor) (ListResult, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	tree := buildListFilter(q, actor, s.now())
	offset := (q.Page - 1) * q.Limit

	items, total, err := s.repo.List(ctx, tree, q.SortBy, q.SortOrder, q.Limit, offset)
	if err != nil {
		return ListResult{}, err
	}

	expanded, err := s.expand(ctx, items)
	if err != nil {
		return ListResult{}, err
	}

	totalPages := (total + q.Limit - 1) / q.Limit
	return ListResult{
		Activities: expanded,
		Pagination: Pagination{
			CurrentPage: q.Page,
			TotalPages:  totalPages,
			TotalCount:  total,
			HasNextPage: q.Page < totalPages,
			HasPrevPage: q.Page > 1,
			Limit:       q.Limit,
		},
	}, nil
}

// GetByID fetches one activity by id. Hidden activities remain fetchable;
// agents are refused (not told "not found") when the activity is neither
// owned by nor attributed to them.
func (s *Service) GetByID(ctx context.Context, id string, actor Actor) (Expanded, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Expanded{}, err
	}
	if !canAccess(a, actor) {
		return Expanded{}, ErrAccessDenied
	}
	return s.expandOne(ctx, a)
}

// Create validates and persists a new activity, defaulting the acting user
// and recording the request IP and user agent into the metadata.
func (s *Service) Create(ctx context.Context, in CreateInput, meta RequestMeta, actor Actor) (Expanded, error) {
	if in.UserID == "" {
		in.UserID = actor.ID
	}
	if in.UserName == "" {
		in.UserName = actor.FullName()
	}

	if err := validationError(validateCreate(in)); err != nil {
		return Expanded{}, err
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	in.Metadata.IPAddress = meta.IPAddress
	in.Metadata.UserAgent = meta.UserAgent

	a := Activity{
		ID:                s.idGen(),
		Type:              in.Type,
		EntityType:        in.EntityType,
		EntityID:          in.EntityID,
		EntityName:        in.EntityName,
		Action:            in.Action,
		Description:       in.Description,
		Details:           in.Details,
		AgentID:           in.AgentID,
		AgentName:         in.AgentName,
		UserID:            in.UserID,
		UserName:          in.UserName,
		ClientID:          in.ClientID,
		Metadata:          in.Metadata,
		Priority:          priority,
		Status:            StatusActive,
		IsVisible:         true,
		Tags:              tags,
		IsSystemGenerated: in.IsSystemGenerated,
		CreatedBy:         actor.ID,
		UpdatedBy:         actor.ID,
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Expanded{}, err
	}
	return s.expandOne(ctx, created)
}

// Update applies the mutable fields of patch to the activity. Immutable
// fields have no representation in UpdatePatch, so whatever the caller sent
// for them was already dropped at the boundary.
func (s *Service) Update(ctx context.Context, id string, patch UpdatePatch, actor Actor) (Expanded, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Expanded{}, err
	}
	if !canAccess(a, actor) {
		return Expanded{}, ErrAccessDenied
	}

	if err := validationError(validateUpdate(patch)); err != nil {
		return Expanded{}, err
	}

	applyPatch(&a, patch)
	a.UpdatedBy = actor.ID

	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return Expanded{}, err
	}
	return s.expandOne(ctx, updated)
}

// Delete soft-deletes the activity: status becomes hidden and the record
// disappears from every list/search/stat read. Only managers and super
// admins may delete, regardless of ownership. Idempotent.
func (s *Service) Delete(ctx context.Context, id string, actor Actor) error {
	if actor.Role != auth.RoleManager && actor.Role != auth.RoleSuperAdmin {
		return ErrAccessDenied
	}
	return s.repo.SoftDelete(ctx, id, actor.ID)
}

// Stats aggregates activity counts for the requested period.
func (s *Service) Stats(ctx context.Context, q StatsQuery, actor Actor) (Stats, error) {
	if errs := validateStatsQuery(q); errs != nil {
		return Stats{}, validationError(errs)
	}

	base := buildStatsFilter(q, actor)
	now := s.now()
	window := resolveStatsWindow(q, now)

	st, err := s.repo.Stats(ctx, base, window, q.GroupBy, now)
	if err != nil {
		return Stats{}, err
	}

	st.Period = q.Period
	if st.Period == "" {
		st.Period = DateLast30Days
	}
	return st, nil
}

// Search returns a fixed-size relevance-ranked list of active activities.
func (s *Service) Search(ctx context.Context, q SearchQuery, actor Actor) ([]Expanded, error) {
	if err := validationError(validateSearch(q)); err != nil {
		return nil, err
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 10
	}

	tree := buildSearchFilter(q, actor)
	items, err := s.repo.Search(ctx, tree, q.Query, q.Limit)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, items)
}

// Bulk applies one action across a set of activity ids. Authorization is
// all-or-nothing: if any requested id does not resolve to an activity the
// actor may touch, nothing is mutated. Input ids are de-duplicated before
// the eligibility comparison so duplicates cannot mask a missing id.
func (s *Service) Bulk(ctx context.Context, req BulkRequest, actor Actor) (BulkResult, error) {
	if err := validationError(validateBulk(req)); err != nil {
		return BulkResult{}, err
	}

	if req.Action == BulkDelete &&
		actor.Role != auth.RoleManager && actor.Role != auth.RoleSuperAdmin {
		return BulkResult{}, ErrAccessDenied
	}

	ids := dedupe(req.ActivityIDs)

	var owner *string
	if actor.Role == auth.RoleAgent {
		owner = &actor.ID
	}

	eligible, err := s.repo.CountEligible(ctx, ids, owner)
	if err != nil {
		return BulkResult{}, err
	}
	if eligible != len(ids) {
		return BulkResult{}, ErrAccessDenied
	}

	if err := s.repo.ApplyBulk(ctx, ids, req.Action, req.Value, actor.ID); err != nil {
		return BulkResult{}, err
	}

	return BulkResult{
		Affected: len(ids),
		Action:   req.Action,
		Value:    req.Value,
	}, nil
}

// canAccess implements the agent ownership rule for single-record reads and
// writes: an agent must own the activity or be the attributed user.
func canAccess(a Activity, actor Actor) bool {
	if actor.Role != auth.RoleAgent {
		return true
	}
	return a.AgentID == actor.ID || a.UserID == actor.ID
}

func applyPatch(a *Activity, p UpdatePatch) {
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.EntityName != nil {
		a.EntityName = *p.EntityName
	}
	if p.Action != nil {
		a.Action = *p.Action
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Details != nil {
		a.Details = *p.Details
	}
	if p.AgentID != nil {
		a.AgentID = *p.AgentID
	}
	if p.AgentName != nil {
		a.AgentName = *p.AgentName
	}
	if p.UserID != nil {
		a.UserID = *p.UserID
	}
	if p.UserName != nil {
		a.UserName = *p.UserName
	}
	if p.ClientID != nil {
		a.ClientID = p.ClientID
	}
	if p.Metadata != nil {
		a.Metadata = *p.Metadata
	}
	if p.Priority != nil {
		a.Priority = *p.Priority
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.IsVisible != nil {
		a.IsVisible = *p.IsVisible
	}
	if p.Tags != nil {
		a.Tags = *p.Tags
	}
	if p.IsSystemGenerated != nil {
		a.IsSystemGenerated = *p.IsSystemGenerated
	}
}

func validateStatsQuery(q StatsQuery) []FieldError {
	var errs []FieldError
	switch q.Period {
	case "", DateToday, DateYesterday, DateLast7Days, DateLast30Days, DateLast90Days, PeriodCustom:
	default:
		errs = append(errs, FieldError{"period", "unknown period"})
	}
	if q.Period == PeriodCustom && (q.StartDate == nil || q.EndDate == nil) {
		errs = append(errs, FieldError{"period", "custom period requires startDate and endDate"})
	}
	switch q.GroupBy {
	case "", "type", "agent", "client", "day", "week", "month":
	default:
		errs = append(errs, FieldError{"groupBy", "unknown grouping"})
	}
	return errs
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) expandOne(ctx context.Context, a Activity) (Expanded, error) {
	out, err := s.expand(ctx, []Activity{a})
	if err != nil {
		return Expanded{}, err
	}
	return out[0], nil
}

// expand attaches display projections for every agent/user/client referenced
// by the page. Two batched lookups regardless of page size.
func (s *Service) expand(ctx context.Context, items []Activity) ([]Expanded, error) {
	out := make([]Expanded, len(items))
	for i, a := range items {
		out[i] = Expanded{Activity: a}
	}
	if s.dir == nil || len(items) == 0 {
		return out, nil
	}

	userSet := make(map[string]struct{})
	clientSet := make(map[string]struct{})
	for _, a := range items {
		if a.AgentID != "" {
			userSet[a.AgentID] = struct{}{}
		}
		if a.UserID != "" {
			userSet[a.UserID] = struct{}{}
		}
		if a.ClientID != nil && *a.ClientID != "" {
			clientSet[*a.ClientID] = struct{}{}
		}
	}

	users, err := s.dir.UsersByIDs(ctx, keys(userSet))
	if err != nil {
		return nil, err
	}
	clients, err := s.dir.ClientsByIDs(ctx, keys(clientSet))
	if err != nil {
		return nil, err
	}

	for i := range out {
		if p, ok := users[out[i].AgentID]; ok {
			agent := p
			out[i].Agent = &agent
		}
		if p, ok := users[out[i].UserID]; ok {
			user := p
			out[i].User = &user
		}
		if out[i].ClientID != nil {
			if p, ok := clients[*out[i].ClientID]; ok {
				client := p
				out[i].Client = &client
			}
		}
	}
	return out, nil
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
