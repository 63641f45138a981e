package api

type ResourceType struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

type QuotaDefault struct {
	ID           string       `json:"id,omitempty"`
	QuotaValue   float64      `json:"quota_value"`
	ResourceType ResourceType `json:"resource_type"`
}

type Plan struct {
	ID                string         `json:"id,omitempty"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	PlanQuotaDefaults []QuotaDefault `json:"plan_quota_defaults"`
}

type Quota struct {
	ID           string       `json:"id,omitempty"`
	Quota        float64      `json:"quota"`
	ResourceType ResourceType `json:"resource_type"`
}

type Usage struct {
	ID           string       `json:"id,omitempty"`
	Usage        float64      `json:"usage"`
	ResourceType ResourceType `json:"resource_type"`
}

// Subscription is a user's plan along with its effective quotas and current
// usages. The dates are passed through as the server formats them.
type Subscription struct {
	ID                 string  `json:"id,omitempty"`
	EffectiveStartDate string  `json:"effective_start_date"`
	EffectiveEndDate   string  `json:"effective_end_date"`
	Plan               Plan    `json:"plan"`
	Quotas             []Quota `json:"quotas"`
	Usages             []Usage `json:"usages"`
}

// Subject is a user or group returned by the subject search.
type Subject struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Institution string `json:"institution,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
}
