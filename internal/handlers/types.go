package handlers

// PingResponse is the response of the ping endpoint.
type PingResponse struct {
	Body struct {
		Message string `doc:"Always pong" example:"pong" json:"message"`
	}
}

// StatusRequest asks the status endpoint to answer with a given code.
type StatusRequest struct {
	Code int `doc:"HTTP status to respond with" example:"500" maximum:"599" minimum:"200" path:"code"`
}

// StatusResponse is the response of the status endpoint for non-error codes.
type StatusResponse struct {
	Status int
	Body   struct {
		Code int `doc:"The requested status" example:"204" json:"code"`
	}
}

// WhoamiResponse reports how the service sees the caller.
type WhoamiResponse struct {
	Body struct {
		ClientIP  string `doc:"Client IP after proxy headers"     example:"203.0.113.7" json:"clientIp"`
		UserAgent string `doc:"User-Agent header"                 example:"curl/8.0"    json:"userAgent"`
		APIKey    string `doc:"API key header, empty when absent" example:"k-123"       json:"apiKey,omitempty"`
		Tier      string `doc:"Quota tier header"                 example:"premium"     json:"tier,omitempty"`
	}
}

// RecordRequest looks up the rate record of an identifier key.
type RecordRequest struct {
	Key string `doc:"Identifier key" example:"203.0.113.7" path:"key"`
}

// RecordResponse is the stored rate record of an identifier key.
type RecordResponse struct {
	Body struct {
		Key      string `doc:"Identifier key"                         example:"203.0.113.7"   json:"key"`
		Requests int64  `doc:"Requests counted in the current window" example:"3"             json:"requests"`
		Expires  int64  `doc:"Window reset, unix milliseconds"        example:"1700000060000" json:"expires"`
		Stale    bool   `doc:"Whether the window already elapsed"     example:"false"         json:"stale"`
	}
}
