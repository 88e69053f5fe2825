// Package auth builds the credentials API tests send. A Handler is selected
// by auth.type (bearer, basic, api_key, jwt) and contributes request headers
// to the HTTP client.
package auth
