package httpapi

// maxBodyBytes caps request bodies on the JSON endpoints. The default is
// 8 MiB; audio inputs arrive base64-encoded and outgrow 1 MiB quickly.
var maxBodyBytes int64 = 8 << 20

// SetMaxBodyBytes configures the request body cap. Non-positive restores
// the default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 8 << 20
		return
	}
	maxBodyBytes = n
}

// executeTimeout bounds how long one execute request may run, including a
// cold download and load. Zero disables the bound.
var executeTimeout = int64(0) // seconds

// SetExecuteTimeoutSeconds sets the execute timeout in seconds (0 disables).
func SetExecuteTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	executeTimeout = sec
}

// CORS is opt-in; when disabled no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
