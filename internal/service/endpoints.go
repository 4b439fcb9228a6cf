package service

import "context"

// Endpoint is one advertised API route on a station, as published in the
// station's status metadata.
type Endpoint struct {
	ID          int    `json:"id"`
	Route       string `json:"route"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

const (
	defaultEndpointRoute       = "默认端点"
	defaultEndpointDescription = "当前配置的端点"
)

// StationEndpoints derives the endpoint list for a station from its status
// metadata. Newer stations publish api_info under the response envelope,
// older ones at the top level. When neither parses, or the status call
// fails, the station's own base URL is returned as the single endpoint.
func (s *StationService) StationEndpoints(ctx context.Context, stationID string) ([]Endpoint, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	fallback := []Endpoint{{
		ID:          0,
		Route:       defaultEndpointRoute,
		URL:         station.APIURL,
		Description: defaultEndpointDescription,
		Color:       "blue",
	}}

	info, errInfo := adapter.StationInfo(ctx, station)
	if errInfo != nil || info == nil {
		return fallback, nil
	}
	if response, ok := info.Metadata["response"].(map[string]any); ok {
		if endpoints, parsed := parseEndpoints(response["api_info"]); parsed {
			return endpoints, nil
		}
	}
	if endpoints, parsed := parseEndpoints(info.Metadata["api_info"]); parsed {
		return endpoints, nil
	}
	return fallback, nil
}

// parseEndpoints decodes an api_info payload. Every element must carry the
// full field set, otherwise the payload is treated as unusable.
func parseEndpoints(v any) ([]Endpoint, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	endpoints := make([]Endpoint, 0, len(items))
	for _, item := range items {
		obj, okObj := item.(map[string]any)
		if !okObj {
			return nil, false
		}
		id, okID := endpointID(obj["id"])
		route, okRoute := obj["route"].(string)
		endpointURL, okURL := obj["url"].(string)
		description, okDescription := obj["description"].(string)
		color, okColor := obj["color"].(string)
		if !okID || !okRoute || !okURL || !okDescription || !okColor {
			return nil, false
		}
		endpoints = append(endpoints, Endpoint{
			ID:          id,
			Route:       route,
			URL:         endpointURL,
			Description: description,
			Color:       color,
		})
	}
	return endpoints, true
}

func endpointID(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
