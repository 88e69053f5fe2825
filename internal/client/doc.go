// Package client is the HTTP client used by API tests. It wraps resty with
// retries and exponential backoff, optional throttling, request IDs and
// structured request logging, and returns Response values with JSON path
// accessors for assertions.
package client
