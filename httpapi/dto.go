package httpapi

import (
	"time"

	"agencycrm/activity"
	"agencycrm/auth"
	"agencycrm/directory"
)

type personResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

type activityResponse struct {
	ID                string            `json:"id"`
	Type              activity.Type     `json:"type"`
	EntityType        string            `json:"entityType"`
	EntityID          string            `json:"entityId"`
	EntityName        string            `json:"entityName"`
	Action            string            `json:"action"`
	Description       string            `json:"description"`
	Details           string            `json:"details,omitempty"`
	AgentID           string            `json:"agentId"`
	AgentName         string            `json:"agentName"`
	UserID            string            `json:"userId"`
	UserName          string            `json:"userName"`
	ClientID          *string           `json:"clientId,omitempty"`
	Metadata          activity.Metadata `json:"metadata"`
	Priority          activity.Priority `json:"priority"`
	Status            activity.Status   `json:"status"`
	IsVisible         bool              `json:"isVisible"`
	Tags              []string          `json:"tags"`
	IsSystemGenerated bool              `json:"isSystemGenerated"`
	CreatedBy         string            `json:"createdBy"`
	UpdatedBy         string            `json:"updatedBy"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	Agent             *personResponse   `json:"agent,omitempty"`
	User              *personResponse   `json:"user,omitempty"`
	Client            *personResponse   `json:"client,omitempty"`
}

type paginationResponse struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
	Limit       int  `json:"limit"`
}

type listResponse struct {
	Activities []activityResponse `json:"activities"`
	Pagination paginationResponse `json:"pagination"`
}

type typeCountResponse struct {
	Type         activity.Type `json:"type"`
	Count        int           `json:"count"`
	HighPriority int           `json:"highPriority"`
}

type groupCountResponse struct {
	Key   string   `json:"key"`
	Count int      `json:"count"`
	Types []string `json:"types"`
}

type groupingResponse struct {
	Field string               `json:"field"`
	Data  []groupCountResponse `json:"data"`
}

type statsResponse struct {
	Total     int                 `json:"total"`
	Recent    int                 `json:"recent"`
	ByType    []typeCountResponse `json:"byType"`
	Period    string              `json:"period"`
	GroupedBy *groupingResponse   `json:"groupedBy"`
}

type bulkResponse struct {
	Affected int                 `json:"affected"`
	Action   activity.BulkAction `json:"action"`
	Value    string              `json:"value,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     *string   `json:"phone,omitempty"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toPersonResponse(p *directory.Person) *personResponse {
	if p == nil {
		return nil
	}
	return &personResponse{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone}
}

func toActivityResponse(e activity.Expanded) activityResponse {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return activityResponse{
		ID:                e.ID,
		Type:              e.Type,
		EntityType:        string(e.EntityType),
		EntityID:          e.EntityID,
		EntityName:        e.EntityName,
		Action:            e.Action,
		Description:       e.Description,
		Details:           e.Details,
		AgentID:           e.AgentID,
		AgentName:         e.AgentName,
		UserID:            e.UserID,
		UserName:          e.UserName,
		ClientID:          e.ClientID,
		Metadata:          e.Metadata,
		Priority:          e.Priority,
		Status:            e.Status,
		IsVisible:         e.IsVisible,
		Tags:              tags,
		IsSystemGenerated: e.IsSystemGenerated,
		CreatedBy:         e.CreatedBy,
		UpdatedBy:         e.UpdatedBy,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
		Agent:             toPersonResponse(e.Agent),
		User:              toPersonResponse(e.User),
		Client:            toPersonResponse(e.Client),
	}
}

func toActivityResponses(items []activity.Expanded) []activityResponse {
	out := make([]activityResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toActivityResponse(e))
	}
	return out
}

func toStatsResponse(st activity.Stats) statsResponse {
	byType := make([]typeCountResponse, 0, len(st.ByType))
	for _, tc := range st.ByType {
		byType = append(byType, typeCountResponse{Type: tc.Type, Count: tc.Count, HighPriority: tc.HighPriority})
	}

	var grouped *groupingResponse
	if st.GroupedBy != nil {
		data := make([]groupCountResponse, 0, len(st.GroupedBy.Data))
		for _, gc := range st.GroupedBy.Data {
			data = append(data, groupCountResponse{Key: gc.Key, Count: gc.Count, Types: gc.Types})
		}
		grouped = &groupingResponse{Field: st.GroupedBy.Field, Data: data}
	}

	return statsResponse{
		Total:     st.Total,
		Recent:    st.Recent,
		ByType:    byType,
		Period:    st.Period,
		GroupedBy: grouped,
	}
}

func toUserResponse(u auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
