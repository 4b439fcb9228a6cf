package relay

// StationInfo describes a station as reported by its status endpoint.
type StationInfo struct {
	Name         string         `json:"name"`
	Announcement *string        `json:"announcement,omitempty"`
	APIURL       string         `json:"api_url"`
	Version      *string        `json:"version,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	QuotaPerUnit *int64         `json:"quota_per_unit,omitempty"`
}

// UserInfo describes the upstream account behind the station credential.
type UserInfo struct {
	UserID           string         `json:"user_id"`
	Username         *string        `json:"username,omitempty"`
	Email            *string        `json:"email,omitempty"`
	BalanceRemaining *float64       `json:"balance_remaining,omitempty"`
	AmountUsed       *float64       `json:"amount_used,omitempty"`
	RequestCount     *int64         `json:"request_count,omitempty"`
	Status           *string        `json:"status,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// LogEntry is one normalized usage log row fetched from a station.
type LogEntry struct {
	ID               string         `json:"id"`
	Timestamp        int64          `json:"timestamp"`
	Level            string         `json:"level"`
	Message          string         `json:"message"`
	UserID           *string        `json:"user_id,omitempty"`
	RequestID        *string        `json:"request_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	ModelName        *string        `json:"model_name,omitempty"`
	PromptTokens     *int64         `json:"prompt_tokens,omitempty"`
	CompletionTokens *int64         `json:"completion_tokens,omitempty"`
	Quota            *int64         `json:"quota,omitempty"`
	TokenName        *string        `json:"token_name,omitempty"`
	UseTime          *int64         `json:"use_time,omitempty"`
	IsStream         *bool          `json:"is_stream,omitempty"`
	Channel          *int64         `json:"channel,omitempty"`
	Group            *string        `json:"group,omitempty"`
}

// LogPage is one page of station log entries.
type LogPage struct {
	Items    []LogEntry `json:"items"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Total    int64      `json:"total"`
}

// LogFilters narrows a station log query. Time bounds use the
// "2006-01-02T15:04" layout and are interpreted as UTC.
type LogFilters struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	ModelName string `json:"modelName,omitempty"`
	Group     string `json:"group,omitempty"`
}

// Token is an API token managed on a station.
type Token struct {
	ID             string         `json:"id"`
	StationID      string         `json:"station_id"`
	Name           string         `json:"name"`
	Token          string         `json:"token"`
	UserID         *string        `json:"user_id,omitempty"`
	Enabled        bool           `json:"enabled"`
	ExpiresAt      *int64         `json:"expires_at,omitempty"`
	Group          *string        `json:"group,omitempty"`
	RemainQuota    *int64         `json:"remain_quota,omitempty"`
	UnlimitedQuota *bool          `json:"unlimited_quota,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      int64          `json:"created_at"`
}

// TokenPage is one page of station tokens.
type TokenPage struct {
	Items    []Token `json:"items"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Total    int64   `json:"total"`
}

// ConnectionTestResult reports the outcome of a station connectivity probe.
// ResponseTime is in milliseconds and absent when the request never completed.
type ConnectionTestResult struct {
	Success      bool           `json:"success"`
	ResponseTime *int64         `json:"response_time,omitempty"`
	Message      string         `json:"message"`
	StatusCode   *int           `json:"status_code,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// CreateTokenRequest carries the fields for provisioning a station token.
// Unset optionals fall back to the station defaults.
type CreateTokenRequest struct {
	Name               string  `json:"name"`
	RemainQuota        *int64  `json:"remain_quota,omitempty"`
	ExpiredTime        *int64  `json:"expired_time,omitempty"`
	UnlimitedQuota     *bool   `json:"unlimited_quota,omitempty"`
	ModelLimitsEnabled *bool   `json:"model_limits_enabled,omitempty"`
	ModelLimits        *string `json:"model_limits,omitempty"`
	Group              *string `json:"group,omitempty"`
	AllowIPs           *string `json:"allow_ips,omitempty"`
}

// UpdateTokenRequest carries a partial token update. Only set fields are
// forwarded to the station.
type UpdateTokenRequest struct {
	Name               *string `json:"name,omitempty"`
	RemainQuota        *int64  `json:"remain_quota,omitempty"`
	ExpiredTime        *int64  `json:"expired_time,omitempty"`
	UnlimitedQuota     *bool   `json:"unlimited_quota,omitempty"`
	ModelLimitsEnabled *bool   `json:"model_limits_enabled,omitempty"`
	ModelLimits        *string `json:"model_limits,omitempty"`
	Group              *string `json:"group,omitempty"`
	AllowIPs           *string `json:"allow_ips,omitempty"`
	Enabled            *bool   `json:"enabled,omitempty"`
}
