package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/router-for-me/RelayStationHub/internal/models"
)

func testStation(apiURL string) *models.Station {
	return &models.Station{
		ID:          "station-1",
		Name:        "Primary Relay",
		APIURL:      apiURL,
		Adapter:     models.AdapterNewAPI,
		AuthMethod:  models.AuthBearerToken,
		SystemToken: "system-token",
		Enabled:     true,
	}
}

func TestStationInfo_ParsesStatusPayload(t *testing.T) {
	var gotPath, gotAuth, gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUser = r.Header.Get("New-API-User")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"system_name":"Relay One","version":"v1.2.3","quota_per_unit":500000,"announcements":[{"content":"maintenance tonight"}]}}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	info, err := adapter.StationInfo(context.Background(), testStation(server.URL))
	if err != nil {
		t.Fatalf("station info: %v", err)
	}
	if gotPath != "/api/status" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "" {
		t.Fatalf("status endpoint must not send credentials, got %q", gotAuth)
	}
	if gotUser != "1" {
		t.Fatalf("expected default user header, got %q", gotUser)
	}
	if info.Name != "Relay One" {
		t.Fatalf("unexpected name: %s", info.Name)
	}
	if info.Version == nil || *info.Version != "v1.2.3" {
		t.Fatalf("unexpected version")
	}
	if info.Announcement == nil || *info.Announcement != "maintenance tonight" {
		t.Fatalf("unexpected announcement")
	}
	if info.QuotaPerUnit == nil || *info.QuotaPerUnit != 500000 {
		t.Fatalf("unexpected quota per unit")
	}
	if info.APIURL != server.URL {
		t.Fatalf("unexpected api url: %s", info.APIURL)
	}
}

func TestStationInfo_FallsBackToStoredName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	info, err := adapter.StationInfo(context.Background(), testStation(server.URL))
	if err != nil {
		t.Fatalf("station info: %v", err)
	}
	if info.Name != "Primary Relay" {
		t.Fatalf("expected stored name fallback, got %s", info.Name)
	}
}

func TestStationInfo_UpstreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	_, err := adapter.StationInfo(context.Background(), testStation(server.URL))
	if err == nil {
		t.Fatalf("expected error")
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected upstream error, got %T", err)
	}
	if upstream.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status code: %d", upstream.StatusCode)
	}
}

func TestUserInfo_ConvertsQuotaToDollars(t *testing.T) {
	var gotAuth, gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUser = r.Header.Get("New-API-User")
		_, _ = w.Write([]byte(`{"data":{"id":42,"username":"ops","email":"","quota":1000000,"used_quota":250000,"request_count":12,"status":1}}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	info, err := adapter.UserInfo(context.Background(), testStation(server.URL), "7")
	if err != nil {
		t.Fatalf("user info: %v", err)
	}
	if gotAuth != "Bearer system-token" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if gotUser != "7" {
		t.Fatalf("expected requested user header, got %q", gotUser)
	}
	if info.UserID != "42" {
		t.Fatalf("unexpected user id: %s", info.UserID)
	}
	if info.Username == nil || *info.Username != "ops" {
		t.Fatalf("unexpected username")
	}
	if info.Email != nil {
		t.Fatalf("empty email must be dropped")
	}
	if info.BalanceRemaining == nil || *info.BalanceRemaining != 2.0 {
		t.Fatalf("unexpected balance")
	}
	if info.AmountUsed == nil || *info.AmountUsed != 0.5 {
		t.Fatalf("unexpected amount used")
	}
	if info.RequestCount == nil || *info.RequestCount != 12 {
		t.Fatalf("unexpected request count")
	}
	if info.Status == nil || *info.Status != "active" {
		t.Fatalf("unexpected status")
	}
}

func TestUserInfo_StatusMapping(t *testing.T) {
	responses := map[string]string{
		"disabled": `{"data":{"id":1,"status":0}}`,
		"unknown":  `{"data":{"id":1,"status":9}}`,
	}
	for want, payload := range responses {
		body := payload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		adapter := &newAPIAdapter{client: server.Client()}
		info, err := adapter.UserInfo(context.Background(), testStation(server.URL), "")
		server.Close()
		if err != nil {
			t.Fatalf("user info: %v", err)
		}
		if info.Status == nil || *info.Status != want {
			t.Fatalf("expected status %q", want)
		}
	}
}

func TestLogs_BuildsQueryAndNormalizesRows(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"data":{"items":[{"id":7,"created_at":1700000000,"type":2,"model_name":"claude-3-5-sonnet","prompt_tokens":100,"completion_tokens":50,"quota":1234,"token_name":"cli","use_time":3,"is_stream":true,"channel":5,"group":"default","user_id":9,"other":"{\"frt\":0.5}"}],"total":37}}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	filters := &LogFilters{StartTime: "2024-01-02T15:04", ModelName: "claude-3-5-sonnet"}
	page, err := adapter.Logs(context.Background(), testStation(server.URL), 2, 25, filters)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	for _, fragment := range []string{"p=2", "page_size=25", "type=0", "model_name=claude-3-5-sonnet", "start_timestamp=1704207840"} {
		if !strings.Contains(gotQuery, fragment) {
			t.Fatalf("query %q missing %q", gotQuery, fragment)
		}
	}
	if page.Total != 37 || len(page.Items) != 1 {
		t.Fatalf("unexpected page shape: total=%d items=%d", page.Total, len(page.Items))
	}
	entry := page.Items[0]
	if entry.ID != "7" || entry.Level != "api" {
		t.Fatalf("unexpected entry id/level: %s/%s", entry.ID, entry.Level)
	}
	if entry.Message != "API调用 - 模型: claude-3-5-sonnet | 提示: 100 | 补全: 50 | 花费: 1234" {
		t.Fatalf("unexpected message: %s", entry.Message)
	}
	if entry.RequestID == nil || *entry.RequestID != "7" {
		t.Fatalf("unexpected request id")
	}
	if entry.UserID == nil || *entry.UserID != "9" {
		t.Fatalf("unexpected user id")
	}
	if entry.UseTime == nil || *entry.UseTime != 3 {
		t.Fatalf("unexpected use time")
	}
	other, ok := entry.Metadata["other"].(map[string]any)
	if !ok || other["frt"] != 0.5 {
		t.Fatalf("expected parsed other metrics, got %#v", entry.Metadata["other"])
	}
}

func TestLogs_DefaultsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"items":[{}],"total":1}}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	page, err := adapter.Logs(context.Background(), testStation(server.URL), 0, 0, nil)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	entry := page.Items[0]
	if entry.Level != "info" {
		t.Fatalf("expected default level, got %s", entry.Level)
	}
	if entry.Message != "API调用 - 模型: unknown | 提示: 0 | 补全: 0 | 花费: 0" {
		t.Fatalf("unexpected default message: %s", entry.Message)
	}
	if page.Page != 1 || page.PageSize != 10 {
		t.Fatalf("expected default paging, got %d/%d", page.Page, page.PageSize)
	}
}

func TestTestConnection_Outcomes(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer okServer.Close()

	adapter := &newAPIAdapter{testClient: okServer.Client()}
	result, err := adapter.TestConnection(context.Background(), testStation(okServer.URL))
	if err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if !result.Success || result.Message != "Connection successful" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.StatusCode == nil || *result.StatusCode != http.StatusOK {
		t.Fatalf("expected status code 200")
	}
	if result.ResponseTime == nil {
		t.Fatalf("expected response time")
	}

	failServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failServer.Close()

	adapter = &newAPIAdapter{testClient: failServer.Client()}
	result, err = adapter.TestConnection(context.Background(), testStation(failServer.URL))
	if err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if result.Success || result.Message != "HTTP 503" {
		t.Fatalf("unexpected result: %+v", result)
	}

	downServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := downServer.URL
	downServer.Close()

	adapter = &newAPIAdapter{}
	result, err = adapter.TestConnection(context.Background(), testStation(downURL))
	if err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if result.Success || !strings.HasPrefix(result.Message, "Connection failed:") {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.ResponseTime != nil || result.StatusCode != nil {
		t.Fatalf("transport failures carry no timing or status")
	}
}

func TestListTokens_ParsesPage(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"data":{"items":[{"id":3,"name":"alpha","key":"sk-abc","status":1,"expired_time":-1,"group":"default","remain_quota":100,"unlimited_quota":false,"used_quota":5,"created_time":1690000000,"user_id":42}],"total":12}}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	page, err := adapter.ListTokens(context.Background(), testStation(server.URL), 0, 0)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if gotQuery != "p=1&size=10" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if page.Total != 12 || len(page.Items) != 1 {
		t.Fatalf("unexpected page shape")
	}
	token := page.Items[0]
	if token.ID != "3" || token.Name != "alpha" || token.Token != "sk-abc" {
		t.Fatalf("unexpected token fields: %+v", token)
	}
	if !token.Enabled {
		t.Fatalf("status 1 must map to enabled")
	}
	if token.ExpiresAt != nil {
		t.Fatalf("expired_time -1 must map to no expiry")
	}
	if token.StationID != "station-1" {
		t.Fatalf("unexpected station id: %s", token.StationID)
	}
	if token.UserID == nil || *token.UserID != "42" {
		t.Fatalf("unexpected user id")
	}
	if token.CreatedAt != 1690000000 {
		t.Fatalf("unexpected created_at: %d", token.CreatedAt)
	}
	if token.Metadata["used_quota"] != 5.0 {
		t.Fatalf("expected used_quota in metadata")
	}
}

func TestCreateToken_AppliesDefaults(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	token, err := adapter.CreateToken(context.Background(), testStation(server.URL), &CreateTokenRequest{Name: "ci-token"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if gotBody["name"] != "ci-token" {
		t.Fatalf("unexpected name in body: %v", gotBody["name"])
	}
	if gotBody["remain_quota"] != 500000.0 {
		t.Fatalf("unexpected quota default: %v", gotBody["remain_quota"])
	}
	if gotBody["expired_time"] != -1.0 {
		t.Fatalf("unexpected expiry default: %v", gotBody["expired_time"])
	}
	if gotBody["unlimited_quota"] != true {
		t.Fatalf("unexpected unlimited default: %v", gotBody["unlimited_quota"])
	}
	if gotBody["group"] != "Claude Code专用" {
		t.Fatalf("unexpected group default: %v", gotBody["group"])
	}
	if token.Name != "ci-token" || !token.Enabled {
		t.Fatalf("unexpected placeholder token: %+v", token)
	}
	if token.ID != "" || token.Token != "" {
		t.Fatalf("placeholder token must not invent ids")
	}
	if token.Metadata["note"] != "Token created successfully, refresh to see details" {
		t.Fatalf("missing refresh note")
	}
	if token.CreatedAt == 0 {
		t.Fatalf("expected created_at to be set")
	}
}

func TestCreateToken_SurfacesUpstreamMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"quota exceeded"}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	_, err := adapter.CreateToken(context.Background(), testStation(server.URL), &CreateTokenRequest{Name: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected upstream error, got %T", err)
	}
	if !strings.Contains(upstream.Message, "quota exceeded") {
		t.Fatalf("unexpected message: %s", upstream.Message)
	}
}

func TestUpdateToken_SendsOnlySetFields(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"data":{"id":3,"name":"renamed","key":"sk-abc","status":1,"expired_time":-1}}`))
	}))
	defer server.Close()

	name := "renamed"
	adapter := &newAPIAdapter{client: server.Client()}
	token, err := adapter.UpdateToken(context.Background(), testStation(server.URL), "3", &UpdateTokenRequest{Name: &name})
	if err != nil {
		t.Fatalf("update token: %v", err)
	}
	if len(gotBody) != 2 {
		t.Fatalf("expected only id and name in body, got %v", gotBody)
	}
	if gotBody["id"] != 3.0 || gotBody["name"] != "renamed" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if token.Name != "renamed" || token.ID != "3" {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestUpdateToken_EnabledBecomesStatus(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"data":{"id":3,"status":0}}`))
	}))
	defer server.Close()

	enabled := false
	adapter := &newAPIAdapter{client: server.Client()}
	token, err := adapter.UpdateToken(context.Background(), testStation(server.URL), "3", &UpdateTokenRequest{Enabled: &enabled})
	if err != nil {
		t.Fatalf("update token: %v", err)
	}
	if gotBody["status"] != 0.0 {
		t.Fatalf("expected status 0 in body, got %v", gotBody["status"])
	}
	if _, hasEnabled := gotBody["enabled"]; hasEnabled {
		t.Fatalf("enabled must not be sent verbatim")
	}
	if token.Enabled {
		t.Fatalf("expected disabled token")
	}
}

func TestUpdateToken_RejectsNonNumericID(t *testing.T) {
	adapter := &newAPIAdapter{}
	_, err := adapter.UpdateToken(context.Background(), testStation("http://127.0.0.1:0"), "abc", nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDeleteToken_TargetsTokenPath(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	if err := adapter.DeleteToken(context.Background(), testStation(server.URL), "15"); err != nil {
		t.Fatalf("delete token: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/token/15" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
}

func TestToggleToken_SendsStatusOnly(t *testing.T) {
	var gotQuery string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"data":{"id":9,"name":"alpha","key":"sk","status":2}}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	token, err := adapter.ToggleToken(context.Background(), testStation(server.URL), "9", false)
	if err != nil {
		t.Fatalf("toggle token: %v", err)
	}
	if gotQuery != "status_only=true" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if gotBody["id"] != 9.0 || gotBody["status"] != 2.0 {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if token.Enabled {
		t.Fatalf("status 2 must map to disabled")
	}
}

func TestToggleToken_RejectsNonNumericID(t *testing.T) {
	adapter := &newAPIAdapter{}
	_, err := adapter.ToggleToken(context.Background(), testStation("http://127.0.0.1:0"), "not-a-number", true)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestUserGroups_ReturnsWholePayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"default":{"ratio":1,"desc":"base"}}}`))
	}))
	defer server.Close()

	adapter := &newAPIAdapter{client: server.Client()}
	payload, err := adapter.UserGroups(context.Background(), testStation(server.URL))
	if err != nil {
		t.Fatalf("user groups: %v", err)
	}
	if payload["success"] != true {
		t.Fatalf("expected full envelope, got %v", payload)
	}
	data := asObject(payload["data"])
	if asObject(data["default"])["ratio"] != 1.0 {
		t.Fatalf("unexpected groups payload: %v", payload)
	}
}
