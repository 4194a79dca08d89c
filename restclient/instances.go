package restclient

import (
	"context"
	"fmt"

	"github.com/gladysassistant/gateway-client/directory"
)

// Instance is one entry of "GET /instances" (spec §6).
type Instance struct {
	ID              string `json:"id"`
	PrimaryInstance bool   `json:"primary_instance"`
	RSAPublicKey    string `json:"rsa_public_key"`
	ECDSAPublicKey  string `json:"ecdsa_public_key"`
}

// ListInstances lists every instance the authenticated user owns.
func (c *Client) ListInstances(ctx context.Context) ([]Instance, error) {
	var out []Instance
	if err := c.Get(ctx, "/instances", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PrimaryInstance returns the single instance with primary_instance ===
// true, the instance a user session's peer-instance public keys are
// populated from on connect (spec §4.5 step 2).
func (c *Client) PrimaryInstance(ctx context.Context) (*Instance, error) {
	instances, err := c.ListInstances(ctx)
	if err != nil {
		return nil, err
	}
	for i := range instances {
		if instances[i].PrimaryInstance {
			return &instances[i], nil
		}
	}
	return nil, fmt.Errorf("restclient: no primary instance found")
}

// FetchPeers implements directory.Fetcher for an instance session's
// PeerDirectory: the peer users of the authenticated instance (spec §6
// "GET /instances/users").
func (c *Client) FetchPeers(ctx context.Context) ([]directory.PeerEntryData, error) {
	var out []directory.PeerEntryData
	if err := c.Get(ctx, "/instances/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}
