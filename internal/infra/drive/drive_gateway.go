package drive

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"github.com/rs/zerolog"

	"sheets-access-control/internal/domain/ports/adapter"
	"sheets-access-control/internal/infra/metrics"
)

const driveScope = "https://www.googleapis.com/auth/drive"

// Gateway implements adapter.ResourceGateway against the Google Drive v3
// permissions API using direct HTTP calls. Each successful grant makes Drive
// send its native notification email to the principal.
type Gateway struct {
	baseURL string
	client  *http.Client
	log     *zerolog.Logger
}

var _ adapter.ResourceGateway = (*Gateway)(nil)

// NewGateway builds a gateway from service-account credentials. Credentials
// come either from GOOGLE_SERVICE_ACCOUNT_JSON_BASE64 (deployments) or from
// the configured file path (local development).
//
// timeout bounds every call to Drive; a stuck external system surfaces as a
// failed outcome instead of blocking the webhook request.
func NewGateway(serviceAccountFile string, timeout time.Duration, logger *zerolog.Logger) (*Gateway, error) {
	raw, err := loadCredentials(serviceAccountFile)
	if err != nil {
		return nil, err
	}
	jwtCfg, err := google.JWTConfigFromJSON(raw, driveScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	return newGatewayWithConfig(jwtCfg, "https://www.googleapis.com/drive/v3", timeout, logger), nil
}

func newGatewayWithConfig(jwtCfg *jwt.Config, baseURL string, timeout time.Duration, logger *zerolog.Logger) *Gateway {
	client := jwtCfg.Client(context.Background())
	client.Timeout = timeout
	return &Gateway{baseURL: baseURL, client: client, log: logger}
}

func loadCredentials(serviceAccountFile string) ([]byte, error) {
	if b64 := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON_BASE64"); b64 != "" {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode base64 service account credentials: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return raw, nil
}

type permissionResponse struct {
	ID           string `json:"id"`
	EmailAddress string `json:"emailAddress"`
}

type permissionList struct {
	Permissions []permissionResponse `json:"permissions"`
}

// GrantMany grants viewer access on every resource for the principal,
// best-effort and in input order. One outcome per requested resource; no
// retries here, retry policy belongs to the caller.
func (g *Gateway) GrantMany(ctx context.Context, resourceIDs []string, principal string) []adapter.GrantOutcome {
	outcomes := make([]adapter.GrantOutcome, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		grantID, err := g.grant(ctx, id, principal)
		if err != nil {
			g.log.Error().Err(err).Str("resource", id).Msg("grant failed")
			metrics.IncGrantFailed()
		} else {
			metrics.IncGrant()
		}
		outcomes = append(outcomes, adapter.GrantOutcome{ResourceID: id, GrantID: grantID, Err: err})
	}
	return outcomes
}

func (g *Gateway) grant(ctx context.Context, resourceID, principal string) (string, error) {
	body := map[string]string{
		"type":         "user",
		"role":         "reader",
		"emailAddress": principal,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal permission body: %w", err)
	}

	q := url.Values{}
	q.Set("sendNotificationEmail", "true")
	q.Set("emailMessage", fmt.Sprintf("You now have access to this resource. Please log in with %s to view.", principal))
	endpoint := fmt.Sprintf("%s/files/%s/permissions?%s", g.baseURL, url.PathEscape(resourceID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create grant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send grant request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read grant response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("drive grant error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var perm permissionResponse
	if err := json.Unmarshal(respBody, &perm); err != nil {
		return "", fmt.Errorf("unmarshal grant response: %w, body: %s", err, string(respBody))
	}
	if perm.ID == "" {
		return "", fmt.Errorf("drive grant returned no permission id")
	}

	g.log.Info().Str("resource", resourceID).Str("grant_id", perm.ID).Msg("granted access")
	return perm.ID, nil
}

// Revoke removes the principal's grant on one resource. Drive, not the
// ledger, is the source of truth: the current permission is looked up first
// and false is returned when none exists or removal fails.
func (g *Gateway) Revoke(ctx context.Context, resourceID, principal string) bool {
	removed := g.revoke(ctx, resourceID, principal)
	metrics.IncRevocation(removed)
	return removed
}

func (g *Gateway) revoke(ctx context.Context, resourceID, principal string) bool {
	permID, err := g.findPermission(ctx, resourceID, principal)
	if err != nil {
		g.log.Error().Err(err).Str("resource", resourceID).Msg("permission lookup failed")
		return false
	}
	if permID == "" {
		g.log.Warn().Str("resource", resourceID).Msg("no permission found for principal")
		return false
	}

	endpoint := fmt.Sprintf("%s/files/%s/permissions/%s", g.baseURL, url.PathEscape(resourceID), url.PathEscape(permID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Error().Err(err).Str("resource", resourceID).Msg("revoke failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.log.Error().Int("status", resp.StatusCode).Str("resource", resourceID).Msg("revoke failed")
		return false
	}

	g.log.Info().Str("resource", resourceID).Msg("revoked access")
	return true
}

func (g *Gateway) findPermission(ctx context.Context, resourceID, principal string) (string, error) {
	q := url.Values{}
	q.Set("fields", "permissions(id,emailAddress)")
	endpoint := fmt.Sprintf("%s/files/%s/permissions?%s", g.baseURL, url.PathEscape(resourceID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send list request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read list response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("drive list error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var list permissionList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return "", fmt.Errorf("unmarshal list response: %w", err)
	}
	for _, perm := range list.Permissions {
		if perm.EmailAddress == principal {
			return perm.ID, nil
		}
	}
	return "", nil
}
