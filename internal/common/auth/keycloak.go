// internal/common/auth/keycloak.go
package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tour-estimate-workers/internal/common/errors"
	httpclient "tour-estimate-workers/internal/common/http"
)

// KeycloakClient resolves the identity behind a user's access token.
type KeycloakClient struct {
	baseURL string
	realm   string
	http    *httpclient.Client
}

// UserInfo is the subset of the OIDC userinfo response used to link sessions.
type UserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	Username      string `json:"preferred_username,omitempty"`
}

func NewKeycloakClient(baseURL, realm string) *KeycloakClient {
	return &KeycloakClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		realm:   realm,
		http:    httpclient.NewClient(10*time.Second, httpclient.WithRetries(2, 200*time.Millisecond)),
	}
}

// UserInfo calls the realm's userinfo endpoint with the caller's access token.
func (k *KeycloakClient) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.NewAuthenticationError("access token is empty")
	}

	url := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/userinfo", k.baseURL, k.realm)
	var info UserInfo
	err := k.http.GetJSON(ctx, url, map[string]string{"Authorization": "Bearer " + accessToken}, &info)
	if err != nil {
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) && !statusErr.Retryable() {
			if statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden {
				return nil, errors.NewAuthenticationError("access token rejected by keycloak")
			}
		}
		return nil, errors.NewUpstreamUnavailableError("keycloak", err)
	}
	if info.Subject == "" {
		return nil, errors.NewAuthenticationError("userinfo response has no subject")
	}
	return &info, nil
}
