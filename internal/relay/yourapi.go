package relay

import (
	"context"
	"fmt"
	"net/http"

	"github.com/router-for-me/RelayStationHub/internal/models"
)

// yourAPIAdapter behaves like the standard adapter except for token listing,
// where the station expects zero-based pages and answers with a flat array.
type yourAPIAdapter struct {
	*newAPIAdapter
}

func newYourAPIAdapter() *yourAPIAdapter {
	return &yourAPIAdapter{newAPIAdapter: newNewAPIAdapter()}
}

// ListTokens fetches one page of tokens. The station reports no total, so one
// extra row is requested to detect further pages and the total is estimated
// from what was seen.
func (a *yourAPIAdapter) ListTokens(ctx context.Context, station *models.Station, page, size int) (*TokenPage, error) {
	if page <= 0 {
		page = defaultPage
	}
	if size <= 0 {
		size = defaultPageSize
	}

	fetchSize := size + 1
	listURL := fmt.Sprintf("%s/api/token/?p=%d&size=%d", station.APIURL, page-1, fetchSize)
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
	rows, ok := asArray(payload["data"])
	if !ok {
		return nil, upstreamf(resp.StatusCode, "relay: list tokens: data is not an array")
	}

	hasMore := len(rows) > size
	if hasMore {
		rows = rows[:size]
	}
	items := make([]Token, 0, len(rows))
	for _, row := range rows {
		token := decodeToken(station.ID, row, "", false)
		token.Metadata = yourAPITokenMetadata(row)
		items = append(items, token)
	}

	var total int64
	switch {
	case page == 1 && !hasMore:
		total = int64(len(items))
	case hasMore:
		total = int64(page*size + 1)
	default:
		total = int64((page-1)*size + len(items))
	}
	return &TokenPage{Items: items, Page: page, PageSize: size, Total: total}, nil
}

func yourAPITokenMetadata(raw any) map[string]any {
	row := asObject(raw)
	return map[string]any{
		"raw":           raw,
		"used_quota":    objValue(row, "used_quota"),
		"remain_quota":  objValue(row, "remain_quota"),
		"group":         objValue(row, "group"),
		"accessed_time": objValue(row, "accessed_time"),
	}
}
