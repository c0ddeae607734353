package dto

// Meta carries the per-operation metadata of a versioned public response.
type Meta struct {
	GeneratedAt string `json:"generated_at"`
	Endpoint    string `json:"endpoint"`
	Days        *int   `json:"days,omitempty"`
	Limit       *int   `json:"limit,omitempty"`
	BatchID     *int   `json:"batch_id,omitempty"`
}

// Envelope is the versioned public response wrapper: exactly
// {ok, version, meta, data}.
type Envelope struct {
	OK      bool        `json:"ok"`
	Version string      `json:"version"`
	Meta    Meta        `json:"meta"`
	Data    interface{} `json:"data"`
}

// LegacyEnvelope is the bare pre-versioning shape still served under
// /public/<op>. Operation parameters sit at the top level and there is no
// version or meta key; existing consumers depend on this exact shape.
type LegacyEnvelope struct {
	OK      bool        `json:"ok"`
	Days    *int        `json:"days,omitempty"`
	Limit   *int        `json:"limit,omitempty"`
	BatchID *int        `json:"batch_id,omitempty"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the uniform error shape for every public route.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
