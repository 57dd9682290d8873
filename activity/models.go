package activity

import (
	"time"

	"agencycrm/auth"
)

// Type classifies the business area an activity belongs to.
type Type string

const (
	TypeClient     Type = "client"
	TypePolicy     Type = "policy"
	TypeClaim      Type = "claim"
	TypeQuotation  Type = "quotation"
	TypeLead       Type = "lead"
	TypePayment    Type = "payment"
	TypeDocument   Type = "document"
	TypeCommission Type = "commission"
	TypeReminder   Type = "reminder"
	TypeSystem     Type = "system"
)

// EntityType names the kind of business object an activity references.
type EntityType string

const (
	EntityClient    EntityType = "client"
	EntityPolicy    EntityType = "policy"
	EntityClaim     EntityType = "claim"
	EntityQuotation EntityType = "quotation"
	EntityLead      EntityType = "lead"
	EntityAgent     EntityType = "agent"
	EntityUser      EntityType = "user"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusHidden   Status = "hidden"
)

// Metadata carries the optional contextual fields an activity can record.
// The request IP and user agent are filled in by the service on create.
// JSON tags double as the jsonb storage format and the wire format.
type Metadata struct {
	PolicyNumber    string   `json:"policyNumber,omitempty"`
	ClaimNumber     string   `json:"claimNumber,omitempty"`
	QuotationNumber string   `json:"quotationNumber,omitempty"`
	LeadNumber      string   `json:"leadNumber,omitempty"`
	Amount          *float64 `json:"amount,omitempty"`
	OldValue        string   `json:"oldValue,omitempty"`
	NewValue        string   `json:"newValue,omitempty"`
	IPAddress       string   `json:"ipAddress,omitempty"`
	UserAgent       string   `json:"userAgent,omitempty"`
}

// Activity is an audit/feed record describing an action taken on or by a
// business entity (client, policy, claim, ...). Activities are never
// physically deleted: delete means status=hidden and isVisible=false.
//
// entityType, entityId, createdBy and createdAt are immutable after creation.
type Activity struct {
	ID          string
	Type        Type
	EntityType  EntityType
	EntityID    string
	EntityName  string
	Action      string
	Description string
	Details     string

	AgentID   string
	AgentName string
	UserID    string
	UserName  string
	ClientID  *string

	Metadata          Metadata
	Priority          Priority
	Status            Status
	IsVisible         bool
	Tags              []string
	IsSystemGenerated bool

	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor is the authenticated identity a request runs as. Role gates deletion
// and scopes visibility: agents only see activities they own or attributed to
// themselves.
type Actor struct {
	ID        string
	Role      auth.Role
	FirstName string
	LastName  string
}

// FullName joins the actor's first and last name, used when defaulting the
// userName of a created activity.
func (a Actor) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Pagination describes the window a list response covers.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int
	HasNextPage bool
	HasPrevPage bool
	Limit       int
}

// ValidType reports whether t is a member of the activity type enumeration.
func ValidType(t Type) bool {
	switch t {
	case TypeClient, TypePolicy, TypeClaim, TypeQuotation, TypeLead,
		TypePayment, TypeDocument, TypeCommission, TypeReminder, TypeSystem:
		return true
	}
	return false
}

// ValidEntityType reports whether t is a member of the entity type enumeration.
func ValidEntityType(t EntityType) bool {
	switch t {
	case EntityClient, EntityPolicy, EntityClaim, EntityQuotation,
		EntityLead, EntityAgent, EntityUser:
		return true
	}
	return false
}

// ValidPriority reports whether p is a member of the priority enumeration.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ValidStatus reports whether s is a member of the status enumeration.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusArchived, StatusHidden:
		return true
	}
	return false
}
