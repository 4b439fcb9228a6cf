package relay

import (
	"context"
	"fmt"

	"github.com/router-for-me/RelayStationHub/internal/models"
)

// customAdapter serves stations that carry only a URL and a key. It never
// calls out and declines every management operation.
type customAdapter struct{}

func newCustomAdapter() *customAdapter {
	return &customAdapter{}
}

// StationInfo answers from the stored row without touching the network.
func (a *customAdapter) StationInfo(ctx context.Context, station *models.Station) (*StationInfo, error) {
	version := "Custom"
	return &StationInfo{
		Name:    station.Name,
		APIURL:  station.APIURL,
		Version: &version,
		Metadata: map[string]any{
			"adapter_type": models.AdapterCustom,
			"note":         "This is a custom configuration that only provides URL and API key.",
		},
	}, nil
}

func (a *customAdapter) UserInfo(ctx context.Context, station *models.Station, userID string) (*UserInfo, error) {
	return nil, fmt.Errorf("relay: user info: %w", ErrUnsupported)
}

func (a *customAdapter) Logs(ctx context.Context, station *models.Station, page, pageSize int, filters *LogFilters) (*LogPage, error) {
	return nil, fmt.Errorf("relay: logs: %w", ErrUnsupported)
}

// TestConnection always succeeds because there is nothing to probe.
func (a *customAdapter) TestConnection(ctx context.Context, station *models.Station) (*ConnectionTestResult, error) {
	return &ConnectionTestResult{
		Success: true,
		Message: "Custom configuration - connection testing not applicable",
	}, nil
}

func (a *customAdapter) ListTokens(ctx context.Context, station *models.Station, page, size int) (*TokenPage, error) {
	return nil, fmt.Errorf("relay: token management: %w", ErrUnsupported)
}

func (a *customAdapter) CreateToken(ctx context.Context, station *models.Station, req *CreateTokenRequest) (*Token, error) {
	return nil, fmt.Errorf("relay: token management: %w", ErrUnsupported)
}

func (a *customAdapter) UpdateToken(ctx context.Context, station *models.Station, tokenID string, req *UpdateTokenRequest) (*Token, error) {
	return nil, fmt.Errorf("relay: token management: %w", ErrUnsupported)
}

func (a *customAdapter) DeleteToken(ctx context.Context, station *models.Station, tokenID string) error {
	return fmt.Errorf("relay: token management: %w", ErrUnsupported)
}

func (a *customAdapter) ToggleToken(ctx context.Context, station *models.Station, tokenID string, enabled bool) (*Token, error) {
	return nil, fmt.Errorf("relay: token management: %w", ErrUnsupported)
}

func (a *customAdapter) UserGroups(ctx context.Context, station *models.Station) (map[string]any, error) {
	return nil, fmt.Errorf("relay: user groups: %w", ErrUnsupported)
}
