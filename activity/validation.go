package activity

import (
	"fmt"
	"strings"
)

// Validation constraints for activity payloads.
const (
	MinActionLen      = 2
	MaxActionLen      = 200
	MinDescriptionLen = 2
	MaxDescriptionLen = 1000
	MaxDetailsLen     = 2000
	MaxTagLen         = 50
	MaxValueLen       = 500
	MaxIPAddressLen   = 45
	MaxUserAgentLen   = 500
	MinSearchLen      = 2
	MaxBulkIDs        = 100
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// ValidationError aggregates per-field failures for one request. It is
// returned before any persistence access happens.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "activity: validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return "activity: validation failed: " + strings.Join(msgs, "; ")
}

func validationError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

// CreateInput is the caller-supplied payload for creating an activity.
// UserID and UserName default to the acting user when omitted.
type CreateInput struct {
	Type              Type
	EntityType        EntityType
	EntityID          string
	EntityName        string
	Action            string
	Description       string
	Details           string
	AgentID           string
	AgentName         string
	UserID            string
	UserName          string
	ClientID          *string
	Metadata          Metadata
	Priority          Priority
	Tags              []string
	IsSystemGenerated bool
}

// UpdatePatch carries the mutable fields of an activity. Nil fields are left
// untouched. Immutable fields (entityType, entityId, createdBy, createdAt)
// intentionally have no representation here.
type UpdatePatch struct {
	Type              *Type
	EntityName        *string
	Action            *string
	Description       *string
	Details           *string
	AgentID           *string
	AgentName         *string
	UserID            *string
	UserName          *string
	ClientID          *string
	Metadata          *Metadata
	Priority          *Priority
	Status            *Status
	IsVisible         *bool
	Tags              *[]string
	IsSystemGenerated *bool
}

func validateCreate(in CreateInput) []FieldError {
	var errs []FieldError

	if in.Action == "" {
		errs = append(errs, FieldError{"action", "required"})
	} else if l := len(in.Action); l < MinActionLen || l > MaxActionLen {
		errs = append(errs, FieldError{"action", fmt.Sprintf("length must be %d-%d", MinActionLen, MaxActionLen)})
	}

	if in.Description == "" {
		errs = append(errs, FieldError{"description", "required"})
	} else if l := len(in.Description); l < MinDescriptionLen || l > MaxDescriptionLen {
		errs = append(errs, FieldError{"description", fmt.Sprintf("length must be %d-%d", MinDescriptionLen, MaxDescriptionLen)})
	}

	if len(in.Details) > MaxDetailsLen {
		errs = append(errs, FieldError{"details", fmt.Sprintf("max length %d", MaxDetailsLen)})
	}

	if in.Type == "" {
		errs = append(errs, FieldError{"type", "required"})
	} else if !ValidType(in.Type) {
		errs = append(errs, FieldError{"type", "unknown activity type"})
	}

	if in.EntityType == "" {
		errs = append(errs, FieldError{"entityType", "required"})
	} else if !ValidEntityType(in.EntityType) {
		errs = append(errs, FieldError{"entityType", "unknown entity type"})
	}

	if in.EntityID == "" {
		errs = append(errs, FieldError{"entityId", "required"})
	}
	if in.EntityName == "" {
		errs = append(errs, FieldError{"entityName", "required"})
	}
	if in.AgentID == "" {
		errs = append(errs, FieldError{"agentId", "required"})
	}
	if in.AgentName == "" {
		errs = append(errs, FieldError{"agentName", "required"})
	}

	if in.Priority != "" && !ValidPriority(in.Priority) {
		errs = append(errs, FieldError{"priority", "unknown priority"})
	}

	errs = append(errs, validateTags("tags", in.Tags)...)
	errs = append(errs, validateMetadata(in.Metadata)...)

	return errs
}

func validateUpdate(p UpdatePatch) []FieldError {
	var errs []FieldError

	if p.Action != nil {
		if l := len(*p.Action); l < MinActionLen || l > MaxActionLen {
			errs = append(errs, FieldError{"action", fmt.Sprintf("length must be %d-%d", MinActionLen, MaxActionLen)})
		}
	}
	if p.Description != nil {
		if l := len(*p.Description); l < MinDescriptionLen || l > MaxDescriptionLen {
			errs = append(errs, FieldError{"description", fmt.Sprintf("length must be %d-%d", MinDescriptionLen, MaxDescriptionLen)})
		}
	}
	if p.Details != nil && len(*p.Details) > MaxDetailsLen {
		errs = append(errs, FieldError{"details", fmt.Sprintf("max length %d", MaxDetailsLen)})
	}
	if p.Type != nil && !ValidType(*p.Type) {
		errs = append(errs, FieldError{"type", "unknown activity type"})
	}
	if p.EntityName != nil && *p.EntityName == "" {
		errs = append(errs, FieldError{"entityName", "must be non-empty"})
	}
	if p.Priority != nil && !ValidPriority(*p.Priority) {
		errs = append(errs, FieldError{"priority", "unknown priority"})
	}
	if p.Status != nil && !ValidStatus(*p.Status) {
		errs = append(errs, FieldError{"status", "unknown status"})
	}
	if p.Tags != nil {
		errs = append(errs, validateTags("tags", *p.Tags)...)
	}
	if p.Metadata != nil {
		errs = append(errs, validateMetadata(*p.Metadata)...)
	}

	return errs
}

func validateTags(field string, tags []string) []FieldError {
	var errs []FieldError
	for i, tag := range tags {
		if tag == "" {
			errs = append(errs, FieldError{fmt.Sprintf("%s[%d]", field, i), "must be non-empty"})
			continue
		}
		if len(tag) > MaxTagLen {
			errs = append(errs, FieldError{fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("max length %d", MaxTagLen)})
		}
	}
	return errs
}

func validateMetadata(m Metadata) []FieldError {
	var errs []FieldError
	if m.Amount != nil && *m.Amount < 0 {
		errs = append(errs, FieldError{"metadata.amount", "must be >= 0"})
	}
	if len(m.OldValue) > MaxValueLen {
		errs = append(errs, FieldError{"metadata.oldValue", fmt.Sprintf("max length %d", MaxValueLen)})
	}
	if len(m.NewValue) > MaxValueLen {
		errs = append(errs, FieldError{"metadata.newValue", fmt.Sprintf("max length %d", MaxValueLen)})
	}
	if len(m.IPAddress) > MaxIPAddressLen {
		errs = append(errs, FieldError{"metadata.ipAddress", fmt.Sprintf("max length %d", MaxIPAddressLen)})
	}
	if len(m.UserAgent) > MaxUserAgentLen {
		errs = append(errs, FieldError{"metadata.userAgent", fmt.Sprintf("max length %d", MaxUserAgentLen)})
	}
	return errs
}

// validateBulk checks the id list, the action name and the action/value shape
// pairing: tag actions need a tag, changePriority needs a priority, everything
// else must come without a value.
func validateBulk(req BulkRequest) []FieldError {
	var errs []FieldError

	if len(req.ActivityIDs) == 0 {
		errs = append(errs, FieldError{"activityIds", "required and must contain at least one item"})
	} else if len(req.ActivityIDs) > MaxBulkIDs {
		errs = append(errs, FieldError{"activityIds", fmt.Sprintf("max %d items", MaxBulkIDs)})
	}
	for i, id := range req.ActivityIDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, FieldError{fmt.Sprintf("activityIds[%d]", i), "must be non-empty"})
		}
	}

	switch req.Action {
	case BulkArchive, BulkHide, BulkShow, BulkDelete:
		if req.Value != "" {
			errs = append(errs, FieldError{"value", fmt.Sprintf("must be absent for action %q", req.Action)})
		}
	case BulkAddTag, BulkRemoveTag:
		if req.Value == "" {
			errs = append(errs, FieldError{"value", "tag value required"})
		} else if len(req.Value) > MaxTagLen {
			errs = append(errs, FieldError{"value", fmt.Sprintf("max length %d", MaxTagLen)})
		}
	case BulkChangePriority:
		if !ValidPriority(Priority(req.Value)) {
			errs = append(errs, FieldError{"value", "must be a valid priority"})
		}
	default:
		errs = append(errs, FieldError{"action", "unknown bulk action"})
	}

	return errs
}

// validateSearch enforces the two character minimum for free text search.
func validateSearch(q SearchQuery) []FieldError {
	if len(strings.TrimSpace(q.Query)) < MinSearchLen {
		return []FieldError{{"query", fmt.Sprintf("min length %d", MinSearchLen)}}
	}
	return nil
}
