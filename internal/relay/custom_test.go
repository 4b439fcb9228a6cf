package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/router-for-me/RelayStationHub/internal/models"
)

func customStation() *models.Station {
	return &models.Station{
		ID:          "station-2",
		Name:        "Self Hosted",
		APIURL:      "https://claude.example.com",
		Adapter:     models.AdapterCustom,
		AuthMethod:  models.AuthAPIKey,
		SystemToken: "sk-local",
	}
}

func TestCustomStationInfo_AnswersOffline(t *testing.T) {
	adapter := newCustomAdapter()
	info, err := adapter.StationInfo(context.Background(), customStation())
	if err != nil {
		t.Fatalf("station info: %v", err)
	}
	if info.Name != "Self Hosted" || info.APIURL != "https://claude.example.com" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Version == nil || *info.Version != "Custom" {
		t.Fatalf("unexpected version")
	}
	if info.Metadata["adapter_type"] != models.AdapterCustom {
		t.Fatalf("unexpected metadata: %v", info.Metadata)
	}
}

func TestCustomTestConnection_AlwaysSucceeds(t *testing.T) {
	adapter := newCustomAdapter()
	result, err := adapter.TestConnection(context.Background(), customStation())
	if err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if !result.Success {
		t.Fatalf("custom stations must not fail the probe")
	}
	if result.Message != "Custom configuration - connection testing not applicable" {
		t.Fatalf("unexpected message: %s", result.Message)
	}
	if result.ResponseTime != nil || result.StatusCode != nil {
		t.Fatalf("no probe means no timing or status")
	}
}

func TestCustomAdapter_DeclinesManagementOps(t *testing.T) {
	adapter := newCustomAdapter()
	station := customStation()
	ctx := context.Background()

	if _, err := adapter.UserInfo(ctx, station, ""); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("user info: expected unsupported, got %v", err)
	}
	if _, err := adapter.Logs(ctx, station, 1, 10, nil); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("logs: expected unsupported, got %v", err)
	}
	if _, err := adapter.ListTokens(ctx, station, 1, 10); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("list tokens: expected unsupported, got %v", err)
	}
	if _, err := adapter.CreateToken(ctx, station, &CreateTokenRequest{Name: "x"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("create token: expected unsupported, got %v", err)
	}
	if _, err := adapter.UpdateToken(ctx, station, "1", nil); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("update token: expected unsupported, got %v", err)
	}
	if err := adapter.DeleteToken(ctx, station, "1"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("delete token: expected unsupported, got %v", err)
	}
	if _, err := adapter.ToggleToken(ctx, station, "1", true); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("toggle token: expected unsupported, got %v", err)
	}
	if _, err := adapter.UserGroups(ctx, station); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("user groups: expected unsupported, got %v", err)
	}
}
