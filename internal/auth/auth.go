package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/jingweijiang/annotation-api-test/internal/config"
)

const (
	TypeNone   = "none"
	TypeBearer = "bearer"
	TypeBasic  = "basic"
	TypeAPIKey = "api_key"
	TypeJWT    = "jwt"

	defaultAPIKeyHeader = "X-API-Key"
	defaultTokenType    = "Bearer"
)

var (
	// ErrUnsupportedType is returned for an unknown auth.type.
	ErrUnsupportedType = errors.New("unsupported authentication type")
	// ErrMissingCredentials is returned when the selected type lacks its secret.
	ErrMissingCredentials = errors.New("missing credentials")
)

// Handler contributes authentication headers to outgoing requests.
type Handler interface {
	// Type is the auth.type value the handler was built for.
	Type() string
	// Headers returns the headers to set on every request.
	Headers() map[string]string
	// Validate reports whether the credentials are usable right now.
	Validate() error
}

// BearerHandler sends "Authorization: <TokenType> <Token>".
type BearerHandler struct {
	Token     string
	TokenType string
}

func (h *BearerHandler) Type() string { return TypeBearer }

func (h *BearerHandler) Headers() map[string]string {
	tokenType := h.TokenType
	if tokenType == "" {
		tokenType = defaultTokenType
	}
	return map[string]string{"Authorization": tokenType + " " + h.Token}
}

func (h *BearerHandler) Validate() error {
	if h.Token == "" {
		return fmt.Errorf("bearer token: %w", ErrMissingCredentials)
	}
	return nil
}

// BasicHandler sends HTTP basic credentials.
type BasicHandler struct {
	Username string
	Password string
}

func (h *BasicHandler) Type() string { return TypeBasic }

func (h *BasicHandler) Headers() map[string]string {
	encoded := base64.StdEncoding.EncodeToString([]byte(h.Username + ":" + h.Password))
	return map[string]string{"Authorization": "Basic " + encoded}
}

func (h *BasicHandler) Validate() error {
	if h.Username == "" || h.Password == "" {
		return fmt.Errorf("basic auth: %w", ErrMissingCredentials)
	}
	return nil
}

// APIKeyHandler sends the key in a custom header, X-API-Key by default.
type APIKeyHandler struct {
	Key    string
	Header string
}

func (h *APIKeyHandler) Type() string { return TypeAPIKey }

func (h *APIKeyHandler) Headers() map[string]string {
	header := h.Header
	if header == "" {
		header = defaultAPIKeyHeader
	}
	return map[string]string{header: h.Key}
}

func (h *APIKeyHandler) Validate() error {
	if h.Key == "" {
		return fmt.Errorf("api key: %w", ErrMissingCredentials)
	}
	return nil
}

// FromResolver reads the auth section. It returns a nil Handler when
// auth.type is "none", or when it is absent and no token is configured. An
// absent type with a token means bearer.
func FromResolver(r *config.Resolver) (Handler, error) {
	section := config.New("", r.Section("auth"))
	authType := strings.ToLower(strings.TrimSpace(section.String("type", "")))
	token := section.String("token", "")

	if authType == "" {
		if token == "" {
			return nil, nil
		}
		authType = TypeBearer
	}

	var handler Handler
	switch authType {
	case TypeNone:
		return nil, nil
	case TypeBearer:
		handler = &BearerHandler{Token: token, TokenType: section.String("token_type", defaultTokenType)}
	case TypeBasic:
		handler = &BasicHandler{Username: section.String("username", ""), Password: section.String("password", "")}
	case TypeAPIKey:
		handler = &APIKeyHandler{Key: section.String("api_key", ""), Header: section.String("header_name", defaultAPIKeyHeader)}
	case TypeJWT:
		handler = &JWTHandler{
			Token:     token,
			Secret:    section.String("secret_key", ""),
			Algorithm: section.String("algorithm", defaultAlgorithm),
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, authType)
	}

	// JWT expiry is time-dependent; it is checked when a session starts.
	if jwtHandler, ok := handler.(*JWTHandler); ok {
		if jwtHandler.Token == "" {
			return nil, fmt.Errorf("jwt: %w", ErrMissingCredentials)
		}
		return handler, nil
	}
	if err := handler.Validate(); err != nil {
		return nil, err
	}
	return handler, nil
}
