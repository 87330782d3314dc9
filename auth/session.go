package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const DefaultSessionServer = "https://sessionserver.mojang.com"

type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

// Profile is an authenticated player identity.
type Profile struct {
	ID         uuid.UUID  `json:"-"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// SessionVerifier asks the session service whether a player really joined with the given server
// hash.
type SessionVerifier interface {
	HasJoined(ctx context.Context, name, serverHash string) (*Profile, error)
}

// MojangVerifier queries the Mojang session server over HTTP.
type MojangVerifier struct {
	BaseURL string
	Client  *http.Client
}

func NewMojangVerifier() *MojangVerifier {
	return &MojangVerifier{
		BaseURL: DefaultSessionServer,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type hasJoinedResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

func (v *MojangVerifier) HasJoined(ctx context.Context, name, serverHash string) (*Profile, error) {
	q := url.Values{}
	q.Set("username", name)
	q.Set("serverId", serverHash)
	endpoint := strings.TrimRight(v.BaseURL, "/") + "/session/minecraft/hasJoined?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacting session server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, fmt.Errorf("%w: %s has not joined", ErrAuthentication, name)
	default:
		return nil, fmt.Errorf("session server returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var joined hasJoinedResponse
	if err := json.Unmarshal(body, &joined); err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}
	id, err := uuid.Parse(joined.ID)
	if err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}
	if joined.Name != name {
		return nil, fmt.Errorf("%w: session server knows %s as %s", ErrAuthentication, name, joined.Name)
	}
	return &Profile{ID: id, Name: joined.Name, Properties: joined.Properties}, nil
}

// OfflineProfile is the profile used when authentication is turned off.
func OfflineProfile(name string) *Profile {
	return &Profile{ID: OfflineUUID(name), Name: name}
}
