package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/router-for-me/RelayStationHub/internal/models"
)

const (
	defaultRequestTimeout = 30 * time.Second
	connectionTestTimeout = 10 * time.Second

	defaultPage     = 1
	defaultPageSize = 10

	// quotaPerUnit converts raw quota values into dollar amounts.
	quotaPerUnit = 500000.0

	defaultTokenQuota = 500000
	defaultTokenGroup = "Claude Code专用"

	userIDHeader  = "New-API-User"
	defaultUserID = "1"
)

// newAPIAdapter drives the standard station management API. The oneapi kind
// and unknown kinds share this implementation.
type newAPIAdapter struct {
	client     *http.Client
	testClient *http.Client
}

func newNewAPIAdapter() *newAPIAdapter {
	return &newAPIAdapter{
		client:     &http.Client{Timeout: defaultRequestTimeout},
		testClient: &http.Client{Timeout: connectionTestTimeout},
	}
}

// StationInfo fetches the public status endpoint of the station.
func (a *newAPIAdapter) StationInfo(ctx context.Context, station *models.Station) (*StationInfo, error) {
	resp, err := a.send(ctx, a.client, http.MethodGet, station.APIURL+"/api/status", station, stationUserID(station), false, nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if !successStatus(resp.StatusCode) {
		return nil, upstreamf(resp.StatusCode, "relay: station info: unexpected status %d", resp.StatusCode)
	}
	payload, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	data := asObject(payload["data"])
	if data == nil {
		return nil, upstreamf(resp.StatusCode, "relay: station info: invalid response format")
	}

	info := &StationInfo{
		Name:     station.Name,
		APIURL:   station.APIURL,
		Metadata: map[string]any{"response": payload["data"]},
	}
	if name, ok := objString(data, "system_name"); ok {
		info.Name = name
	}
	if announcements, ok := asArray(data["announcements"]); ok && len(announcements) > 0 {
		if content, ok := objString(asObject(announcements[0]), "content"); ok {
			info.Announcement = &content
		}
	}
	if version, ok := objString(data, "version"); ok {
		info.Version = &version
	}
	if quota, ok := objInt(data, "quota_per_unit"); ok {
		info.QuotaPerUnit = &quota
	}
	return info, nil
}

// UserInfo fetches the account behind the station credential. An empty
// userID falls back to the station's configured account.
func (a *newAPIAdapter) UserInfo(ctx context.Context, station *models.Station, userID string) (*UserInfo, error) {
	asUser := userID
	if asUser == "" {
		asUser = stationUserID(station)
	}
	resp, err := a.send(ctx, a.client, http.MethodGet, station.APIURL+"/api/user/self", station, asUser, true, nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if !successStatus(resp.StatusCode) {
		return nil, upstreamf(resp.StatusCode, "relay: user info: unexpected status %d", resp.StatusCode)
	}
	payload, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	user := asObject(payload["data"])
	if user == nil {
		return nil, upstreamf(resp.StatusCode, "relay: user info: invalid response format")
	}

	info := &UserInfo{
		UserID:   userID,
		Metadata: map[string]any{"response": payload["data"]},
	}
	if id, ok := objInt(user, "id"); ok {
		info.UserID = formatID(id)
	}
	if username, ok := objString(user, "username"); ok {
		info.Username = &username
	}
	if email, ok := objString(user, "email"); ok && email != "" {
		info.Email = &email
	}
	if quota, ok := objInt(user, "quota"); ok {
		balance := float64(quota) / quotaPerUnit
		info.BalanceRemaining = &balance
	}
	if used, ok := objInt(user, "used_quota"); ok {
		amount := float64(used) / quotaPerUnit
		info.AmountUsed = &amount
	}
	if count, ok := objInt(user, "request_count"); ok {
		info.RequestCount = &count
	}
	status := "unknown"
	if v, ok := objInt(user, "status"); ok {
		switch v {
		case 1:
			status = "active"
		case 0:
			status = "disabled"
		}
	}
	info.Status = &status
	return info, nil
}

// Logs fetches one page of usage logs. Zero page or pageSize select the
// defaults.
func (a *newAPIAdapter) Logs(ctx context.Context, station *models.Station, page, pageSize int, filters *LogFilters) (*LogPage, error) {
	if page <= 0 {
		page = defaultPage
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	startTimestamp := int64(0)
	endTimestamp := time.Now().Unix()
	modelName := ""
	group := ""
	if filters != nil {
		if ts, ok := parseFilterTime(filters.StartTime); ok {
			startTimestamp = ts
		}
		if ts, ok := parseFilterTime(filters.EndTime); ok {
			endTimestamp = ts
		}
		modelName = filters.ModelName
		group = filters.Group
	}

	logsURL := fmt.Sprintf(
		"%s/api/log/self?p=%d&page_size=%d&type=0&token_name=&model_name=%s&start_timestamp=%d&end_timestamp=%d&group=%s",
		station.APIURL, page, pageSize,
		url.QueryEscape(modelName), startTimestamp, endTimestamp, url.QueryEscape(group),
	)
	resp, err := a.send(ctx, a.client, http.MethodGet, logsURL, station, stationUserID(station), true, nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if !successStatus(resp.StatusCode) {
		return nil, upstreamf(resp.StatusCode, "relay: logs: unexpected status %d", resp.StatusCode)
	}
	payload, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	logData := asObject(payload["data"])
	if logData == nil {
		return nil, upstreamf(resp.StatusCode, "relay: logs: invalid response format")
	}

	items := []LogEntry{}
	if rows, ok := asArray(logData["items"]); ok {
		for _, row := range rows {
			items = append(items, decodeLogEntry(row))
		}
	}
	total, _ := objInt(logData, "total")
	return &LogPage{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// TestConnection probes the status endpoint with a short timeout. Network
// failures are reported in the result rather than as errors.
func (a *newAPIAdapter) TestConnection(ctx context.Context, station *models.Station) (*ConnectionTestResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client := a.testClient
	if client == nil {
		client = &http.Client{Timeout: connectionTestTimeout}
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, station.APIURL+"/api/status", nil)
	if err != nil {
		return &ConnectionTestResult{Success: false, Message: fmt.Sprintf("Connection failed: %v", err)}, nil
	}
	req.Header.Set(userIDHeader, stationUserID(station))

	resp, err := client.Do(req)
	if err != nil {
		return &ConnectionTestResult{Success: false, Message: fmt.Sprintf("Connection failed: %v", err)}, nil
	}
	defer closeBody(resp)

	elapsed := time.Since(start).Milliseconds()
	statusCode := resp.StatusCode
	if successStatus(statusCode) {
		return &ConnectionTestResult{
			Success:      true,
			ResponseTime: &elapsed,
			Message:      "Connection successful",
			StatusCode:   &statusCode,
		}, nil
	}
	return &ConnectionTestResult{
		Success:      false,
		ResponseTime: &elapsed,
		Message:      fmt.Sprintf("HTTP %d", statusCode),
		StatusCode:   &statusCode,
	}, nil
}

// ListTokens fetches one page of tokens.
func (a *newAPIAdapter) ListTokens(ctx context.Context, station *models.Station, page, size int) (*TokenPage, error) {
	if page <= 0 {
		page = defaultPage
	}
	if size <= 0 {
		size = defaultPageSize
	}

	listURL := fmt.Sprintf("%s/api/token/?p=%d&size=%d", station.APIURL, page, size)
	resp, err := a.send(ctx, a.client, http.MethodGet, listURL, station, stationUserID(station), true, nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if !successStatus(resp.StatusCode) {
		return nil, upstreamf(resp.StatusCode, "relay: list tokens: unexpected status %d", resp.StatusCode)
	}
	payload, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	tokenData := asObject(payload["data"])
	if tokenData == nil {
		return nil, upstreamf(resp.StatusCode, "relay: list tokens: invalid response format")
	}

	items := []Token{}
	if rows, ok := asArray(tokenData["items"]); ok {
		for _, row := range rows {
			token := decodeToken(station.ID, row, "", false)
			token.Metadata = listTokenMetadata(row)
			items = append(items, token)
		}
	}
	total, _ := objInt(tokenData, "total")
	return &TokenPage{Items: items, Page: page, PageSize: size, Total: total}, nil
}

// CreateToken provisions a token. The station replies without the token
// payload, so the result echoes the request until the list is refreshed.
func (a *newAPIAdapter) CreateToken(ctx context.Context, station *models.Station, req *CreateTokenRequest) (*Token, error) {
	if req == nil {
		req = &CreateTokenRequest{}
	}
	body := map[string]any{
		"name":                 req.Name,
		"remain_quota":         derefInt(req.RemainQuota, defaultTokenQuota),
		"expired_time":         derefInt(req.ExpiredTime, -1),
		"unlimited_quota":      derefBool(req.UnlimitedQuota, true),
		"model_limits_enabled": derefBool(req.ModelLimitsEnabled, false),
		"model_limits":         derefString(req.ModelLimits, ""),
		"group":                derefString(req.Group, defaultTokenGroup),
		"allow_ips":            derefString(req.AllowIPs, ""),
	}
	resp, err := a.send(ctx, a.client, http.MethodPost, station.APIURL+"/api/token/", station, stationUserID(station), true, body)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if !successStatus(resp.StatusCode) {
		return nil, upstreamf(resp.StatusCode, "relay: create token: unexpected status %d", resp.StatusCode)
	}
	payload, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if ok, _ := objBool(payload, "success"); !ok {
		message := "Unknown error"
		if m, has := objString(payload, "message"); has {
			message = m
		}
		return nil, upstreamf(resp.StatusCode, "relay: create token: %s", message)
	}

	userID := stationUserID(station)
	token := &Token{
		StationID:      station.ID,
		Name:           req.Name,
		UserID:         &userID,
		Enabled:        true,
		Group:          req.Group,
		RemainQuota:    req.RemainQuota,
		UnlimitedQuota: req.UnlimitedQuota,
		Metadata: map[string]any{
			"response": payload,
			"note":     "Token created successfully, refresh to see details",
		},
		CreatedAt: time.Now().Unix(),
	}
	if req.ExpiredTime != nil && *req.ExpiredTime != -1 {
		token.ExpiresAt = req.ExpiredTime
	}
	return token, nil
}

// UpdateToken forwards the set fields of req to the station. The token id
// must be numeric.
func (a *newAPIAdapter) UpdateToken(ctx context.Context, station *models.Station, tokenID string, req *UpdateTokenRequest) (*Token, error) {
	numericID, err := strconv.ParseInt(strings.TrimSpace(tokenID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("relay: invalid token id %q: %w", tokenID, ErrInvalidInput)
	}
	if req == nil {
		req = &UpdateTokenRequest{}
	}

	body := map[string]any{"id": numericID}
	if req.Name != nil {
		body["name"] = *req.Name
	}
	if req.RemainQuota != nil {
		body["remain_quota"] = *req.RemainQuota
	}
	if req.ExpiredTime != nil {
		body["expired_time"] = *req.ExpiredTime
	}
	if req.UnlimitedQuota != nil {
		body["unlimited_quota"] = *req.UnlimitedQuota
	}
	if req.ModelLimitsEnabled != nil {
		body["model_limits_enabled"] = *req.ModelLimitsEnabled
	}
	if req.ModelLimits != nil {
		body["model_limits"] = *req.ModelLimits
	}
	if req.Group != nil {
		body["group"] = *req.Group
	}
	if req.AllowIPs != nil {
		body["allow_ips"] = *req.AllowIPs
	}
	if req.Enabled != nil {
		status := int64(0)
		if *req.Enabled {
			status = 1
		}
		body["status"] = status
	}

	resp, err := a.send(ctx, a.client, http.MethodPut, station.APIURL+"/api/token/", station, stationUserID(station), true, body)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if !successStatus(resp.StatusCode) {
		return nil, upstreamf(resp.StatusCode, "relay: update token: unexpected status %d", resp.StatusCode)
	}
	payload, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if asObject(payload["data"]) == nil {
		return nil, upstreamf(resp.StatusCode, "relay: update token: invalid response format")
	}
	token := decodeToken(station.ID, payload["data"], tokenID, false)
	token.Metadata = map[string]any{"raw": payload["data"]}
	return &token, nil
}

// DeleteToken removes a token from the station.
func (a *newAPIAdapter) DeleteToken(ctx context.Context, station *models.Station, tokenID string) error {
	deleteURL := station.APIURL + "/api/token/" + url.PathEscape(tokenID)
	resp, err := a.send(ctx, a.client, http.MethodDelete, deleteURL, station, stationUserID(station), true, nil)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if !successStatus(resp.StatusCode) {
		return upstreamf(resp.StatusCode, "relay: delete token: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ToggleToken flips only the enabled state of a token. The token id must be
// numeric.
func (a *newAPIAdapter) ToggleToken(ctx context.Context, station *models.Station, tokenID string, enabled bool) (*Token, error) {
	numericID, err := strconv.ParseInt(strings.TrimSpace(tokenID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("relay: invalid token id %q: %w", tokenID, ErrInvalidInput)
	}

	status := int64(2)
	if enabled {
		status = 1
	}
	body := map[string]any{"id": numericID, "status": status}
	resp, err := a.send(ctx, a.client, http.MethodPut, station.APIURL+"/api/token/?status_only=true", station, stationUserID(station), true, body)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if !successStatus(resp.StatusCode) {
		return nil, upstreamf(resp.StatusCode, "relay: toggle token: unexpected status %d", resp.StatusCode)
	}
	payload, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if asObject(payload["data"]) == nil {
		return nil, upstreamf(resp.StatusCode, "relay: toggle token: invalid response format")
	}
	token := decodeToken(station.ID, payload["data"], tokenID, enabled)
	token.Metadata = map[string]any{"raw": payload["data"]}
	return &token, nil
}

// UserGroups returns the raw groups payload of the station account.
func (a *newAPIAdapter) UserGroups(ctx context.Context, station *models.Station) (map[string]any, error) {
	resp, err := a.send(ctx, a.client, http.MethodGet, station.APIURL+"/api/user/self/groups", station, stationUserID(station), true, nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if !successStatus(resp.StatusCode) {
		return nil, upstreamf(resp.StatusCode, "relay: user groups: unexpected status %d", resp.StatusCode)
	}
	payload, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (a *newAPIAdapter) send(ctx context.Context, client *http.Client, method, requestURL string, station *models.Station, asUser string, withAuth bool, body any) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}

	var reader io.Reader
	if body != nil {
		payload, errEncode := json.Marshal(body)
		if errEncode != nil {
			return nil, fmt.Errorf("relay: encode request: %w", errEncode)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("relay: build request: %w", err)
	}
	if withAuth {
		req.Header.Set("Authorization", "Bearer "+station.SystemToken)
	}
	req.Header.Set(userIDHeader, asUser)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, upstreamf(0, "relay: request failed: %v", err)
	}
	return resp, nil
}

func decodeEnvelope(resp *http.Response) (map[string]any, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstreamf(0, "relay: read response: %v", err)
	}
	payload := map[string]any{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, upstreamf(0, "relay: decode response: %v", err)
	}
	return payload, nil
}

func decodeLogEntry(raw any) LogEntry {
	row := asObject(raw)

	entry := LogEntry{Level: "info"}
	if id, ok := objInt(row, "id"); ok {
		entry.ID = formatID(id)
		requestID := entry.ID
		entry.RequestID = &requestID
	}
	entry.Timestamp, _ = objInt(row, "created_at")
	if kind, ok := objInt(row, "type"); ok {
		switch kind {
		case 2:
			entry.Level = "api"
		case 3:
			entry.Level = "warn"
		case 4:
			entry.Level = "error"
		}
	}

	modelName := "unknown"
	if name, ok := objString(row, "model_name"); ok {
		modelName = name
		entry.ModelName = &name
	}
	var prompt, completion, quota int64
	if v, ok := objInt(row, "prompt_tokens"); ok {
		prompt = v
		entry.PromptTokens = &v
	}
	if v, ok := objInt(row, "completion_tokens"); ok {
		completion = v
		entry.CompletionTokens = &v
	}
	if v, ok := objInt(row, "quota"); ok {
		quota = v
		entry.Quota = &v
	}
	entry.Message = fmt.Sprintf("API调用 - 模型: %s | 提示: %d | 补全: %d | 花费: %d", modelName, prompt, completion, quota)

	if uid, ok := objInt(row, "user_id"); ok {
		s := formatID(uid)
		entry.UserID = &s
	}
	if name, ok := objString(row, "token_name"); ok {
		entry.TokenName = &name
	}
	if v, ok := objInt(row, "use_time"); ok {
		entry.UseTime = &v
	}
	if v, ok := objBool(row, "is_stream"); ok {
		entry.IsStream = &v
	}
	if v, ok := objInt(row, "channel"); ok {
		entry.Channel = &v
	}
	if group, ok := objString(row, "group"); ok {
		entry.Group = &group
	}

	// Stations pack extra metrics into a JSON string column named "other".
	var other any
	if encoded, ok := objString(row, "other"); ok {
		var parsed any
		if err := json.Unmarshal([]byte(encoded), &parsed); err == nil {
			other = parsed
		}
	}
	entry.Metadata = map[string]any{"raw": raw, "other": other}
	return entry
}

func decodeToken(stationID string, raw any, fallbackID string, fallbackEnabled bool) Token {
	row := asObject(raw)

	token := Token{ID: fallbackID, StationID: stationID, Enabled: fallbackEnabled}
	if id, ok := objInt(row, "id"); ok {
		token.ID = formatID(id)
	}
	token.Name, _ = objString(row, "name")
	token.Token, _ = objString(row, "key")
	if uid, ok := objInt(row, "user_id"); ok {
		s := formatID(uid)
		token.UserID = &s
	}
	if status, ok := objInt(row, "status"); ok {
		token.Enabled = status == 1
	}
	if expires, ok := objInt(row, "expired_time"); ok && expires != -1 {
		token.ExpiresAt = &expires
	}
	if group, ok := objString(row, "group"); ok {
		token.Group = &group
	}
	if quota, ok := objInt(row, "remain_quota"); ok {
		token.RemainQuota = &quota
	}
	if unlimited, ok := objBool(row, "unlimited_quota"); ok {
		token.UnlimitedQuota = &unlimited
	}
	token.CreatedAt, _ = objInt(row, "created_time")
	return token
}

func listTokenMetadata(raw any) map[string]any {
	row := asObject(raw)
	return map[string]any{
		"raw":          raw,
		"used_quota":   objValue(row, "used_quota"),
		"remain_quota": objValue(row, "remain_quota"),
		"group":        objValue(row, "group"),
	}
}

// parseFilterTime accepts "2006-01-02T15:04" values and interprets them as
// UTC. Unparseable values are ignored.
func parseFilterTime(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	t, err := time.Parse(time.RFC3339, value+":00+00:00")
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

func stationUserID(station *models.Station) string {
	if station == nil {
		return defaultUserID
	}
	if id := strings.TrimSpace(station.UserID); id != "" {
		return id
	}
	return defaultUserID
}

func successStatus(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

func closeBody(resp *http.Response) {
	if errClose := resp.Body.Close(); errClose != nil {
		log.WithError(errClose).Warn("relay: close response body failed")
	}
}

func derefString(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func derefInt(v *int64, fallback int64) int64 {
	if v == nil {
		return fallback
	}
	return *v
}

func derefBool(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
