package relay

import (
	"context"
	"strings"

	"github.com/router-for-me/RelayStationHub/internal/models"
)

// Adapter talks to one family of station management APIs. Implementations
// normalize upstream payloads into the shared wire types so callers never
// branch on the station kind.
type Adapter interface {
	StationInfo(ctx context.Context, station *models.Station) (*StationInfo, error)
	UserInfo(ctx context.Context, station *models.Station, userID string) (*UserInfo, error)
	Logs(ctx context.Context, station *models.Station, page, pageSize int, filters *LogFilters) (*LogPage, error)
	TestConnection(ctx context.Context, station *models.Station) (*ConnectionTestResult, error)
	ListTokens(ctx context.Context, station *models.Station, page, size int) (*TokenPage, error)
	CreateToken(ctx context.Context, station *models.Station, req *CreateTokenRequest) (*Token, error)
	UpdateToken(ctx context.Context, station *models.Station, tokenID string, req *UpdateTokenRequest) (*Token, error)
	DeleteToken(ctx context.Context, station *models.Station, tokenID string) error
	ToggleToken(ctx context.Context, station *models.Station, tokenID string, enabled bool) (*Token, error)
	UserGroups(ctx context.Context, station *models.Station) (map[string]any, error)
}

// ForStation selects the adapter implementation for a station. Unknown kinds
// fall back to the standard adapter so legacy rows keep working.
func ForStation(station *models.Station) Adapter {
	kind := ""
	if station != nil {
		kind = strings.ToLower(strings.TrimSpace(station.Adapter))
	}
	switch kind {
	case models.AdapterYourAPI:
		return newYourAPIAdapter()
	case models.AdapterCustom:
		return newCustomAdapter()
	default:
		return newNewAPIAdapter()
	}
}
