package wordpress

import "fmt"

// ConnectionError reports that a site's content could not be loaded.
// It is returned for network failures, non-2xx responses and malformed bodies alike.
type ConnectionError struct {
	SiteURL string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to WordPress site %q: ensure the URL is correct and the REST API is enabled: %v", e.SiteURL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StatusError is the cause recorded when a collection endpoint answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}
