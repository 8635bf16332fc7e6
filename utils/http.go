// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound API clients. Gateway calls fail fast;
// there is no retry layer above it.
var HTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}
