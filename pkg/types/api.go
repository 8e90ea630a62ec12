package types

// ExecuteRequest is the payload for POST /v1/execute/{task_type}.
type ExecuteRequest struct {
	// Identifier of the model to run.
	// example: meta-llama/Llama-3.2-1B
	ModelID string `json:"model_id" example:"meta-llama/Llama-3.2-1B"`
	// Task input. Text and TTS take a string; STT takes base64 audio;
	// image takes the prompt text.
	// example: Write a haiku about the ocean.
	Input any `json:"input" swaggertype:"string" example:"Write a haiku about the ocean."`
	// Optional task parameters (max_length, temperature, width, ...).
	Params map[string]any `json:"params,omitempty"`
	// Drop and reload the model even if it is already resident.
	// example: false
	ForceReload bool `json:"force_reload,omitempty" example:"false"`
}

// ExecuteResponse is returned by POST /v1/execute/{task_type}.
type ExecuteResponse struct {
	// Model that served the request.
	// example: meta-llama/Llama-3.2-1B
	ModelID string `json:"model_id" example:"meta-llama/Llama-3.2-1B"`
	// Task kind that was executed.
	// example: text
	TaskType TaskType `json:"task_type" example:"text"`
	// Task result. Shape depends on the task kind: text returns
	// {generated_text}, image {image_base64, format}, audio_tts
	// {audio_base64, format, sample_rate}, audio_stt {text}.
	Result any `json:"result"`
	// Device memory in use after the request, as a percentage of capacity.
	// example: 42.5
	VRAMUsagePercent float64 `json:"vram_usage_percent" example:"42.5"`
}

// FetchRequest is the payload for POST /v1/models/fetch.
type FetchRequest struct {
	// Identifier of the model artifact to download.
	// example: meta-llama/Llama-3.2-1B
	ModelID string `json:"model_id" example:"meta-llama/Llama-3.2-1B"`
}

// FetchResponse is returned by POST /v1/models/fetch.
type FetchResponse struct {
	// Identifier of the fetched model.
	// example: meta-llama/Llama-3.2-1B
	ModelID string `json:"model_id" example:"meta-llama/Llama-3.2-1B"`
	// Local directory the artifact was cached to.
	// example: /home/user/models/inferd/meta-llama--Llama-3.2-1B
	Path string `json:"path" example:"/home/user/models/inferd/meta-llama--Llama-3.2-1B"`
	// Human-readable outcome.
	// example: model cached
	Message string `json:"message" example:"model cached"`
}

// StatusResponse is returned by GET /v1/models/status.
type StatusResponse struct {
	// Known models: registry entries plus artifacts found on disk.
	Models []ModelStatus `json:"models"`
	// Device memory in use as a percentage of effective capacity.
	// example: 42.5
	VRAMUsagePercent float64 `json:"vram_usage_percent" example:"42.5"`
	// Identifiers with a download currently in flight.
	ActiveDownloads []string `json:"active_downloads,omitempty"`
	// Total models evicted to make room since startup.
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// Total successful model loads since startup.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// PurgeResponse is returned by DELETE /v1/models/purge.
type PurgeResponse struct {
	// Human-readable outcome.
	// example: all models purged
	Message string `json:"message" example:"all models purged"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Overall service health.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Compute device the service runs inference on.
	// example: cuda
	Device string `json:"device" example:"cuda"`
	// Device memory in use as a percentage of effective capacity.
	// example: 42.5
	VRAMUsagePercent float64 `json:"vram_usage_percent" example:"42.5"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
