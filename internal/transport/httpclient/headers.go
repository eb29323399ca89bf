package httpclient

// BuildHeaders assembles the header set sent with every outbound
// request: the explicit -H flags, plus a Bearer Authorization header
// derived from API_ACCESS_TOKEN when no explicit Authorization header
// was supplied.
func BuildHeaders(explicit map[string]string, accessToken string) Headers {
	h := make(Headers, len(explicit)+1)
	for k, v := range explicit {
		h.Set(k, v)
	}
	if accessToken != "" && h.Get("Authorization") == "" {
		h.Set("Authorization", "Bearer "+accessToken)
	}
	return h
}
