package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/astei/voxelwire/auth"
	"go.uber.org/zap"
)

// AcceptHandshake reads the intention packet and moves the connection to the state it asks for.
func AcceptHandshake(c *Conn) (*Intention, error) {
	p, err := c.ReadPacket()
	if err != nil {
		return nil, err
	}
	intent, ok := p.(*Intention)
	if !ok {
		return nil, violation("expected intention, got %s", p.PacketName())
	}
	next, err := intent.NextState()
	if err != nil {
		return nil, err
	}
	if err := c.SetState(next); err != nil {
		return nil, err
	}
	return intent, nil
}

// ServeStatus answers the status request and the ping of a server list query, then closes the
// connection. Any other packet is a protocol violation.
func ServeStatus(c *Conn, status func() ServerStatus) error {
	answered := false
	for {
		p, err := c.ReadPacket()
		if err != nil {
			return err
		}
		switch p := p.(type) {
		case *StatusRequest:
			if answered {
				return violation("second status request")
			}
			answered = true
			if err := c.WritePacket(&StatusResponse{Status: status()}); err != nil {
				return err
			}
		case *PingRequest:
			if err := c.WritePacket(&PongResponse{Payload: p.Payload}); err != nil {
				return err
			}
			if err := c.SetState(Closed); err != nil {
				return err
			}
			return c.Close()
		default:
			return violation("unexpected %s", p.PacketName())
		}
	}
}

// LoginConfig controls how AcceptLogin authenticates players.
type LoginConfig struct {
	OnlineMode bool
	Keys       *auth.KeyPair
	Verifier   auth.SessionVerifier
	// CompressionThreshold is announced to the client before the login finishes; negative leaves
	// compression off.
	CompressionThreshold int
}

// AcceptLogin runs the login state: it authenticates the player, encrypting the connection in
// online mode, turns on compression and waits for the client to acknowledge the login. It returns
// with the connection in the configuration state.
//
// An authentication failure is reported to the client before the error is returned.
func AcceptLogin(ctx context.Context, c *Conn, cfg LoginConfig) (*auth.Profile, error) {
	p, err := c.ReadPacket()
	if err != nil {
		return nil, err
	}
	hello, ok := p.(*Hello)
	if !ok {
		return nil, violation("expected hello, got %s", p.PacketName())
	}
	log := c.log.With(zap.String("player", hello.Name))

	var profile *auth.Profile
	if cfg.OnlineMode {
		profile, err = authenticate(ctx, c, cfg, hello.Name)
		if err != nil {
			if errors.Is(err, auth.ErrAuthentication) {
				log.Warn("authentication failed", zap.Error(err))
				_ = c.Disconnect(PlainText("Failed to verify username!"))
			}
			return nil, err
		}
	} else {
		profile = auth.OfflineProfile(hello.Name)
	}

	if cfg.CompressionThreshold >= 0 {
		if err := c.WritePacket(&LoginCompression{Threshold: int32(cfg.CompressionThreshold)}); err != nil {
			return nil, err
		}
		c.SetCompression(cfg.CompressionThreshold)
	}
	if err := c.WritePacket(&LoginFinished{Profile: *profile}); err != nil {
		return nil, err
	}

	for {
		p, err := c.ReadPacket()
		if err != nil {
			return nil, err
		}
		switch p.(type) {
		case *LoginAcknowledged:
			if err := c.SetState(Configuration); err != nil {
				return nil, err
			}
			log.Info("logged in", zap.Stringer("uuid", profile.ID), zap.Bool("online", cfg.OnlineMode))
			return profile, nil
		case *CustomQueryAnswer:
			// no queries are sent, so answers are ignored
		default:
			return nil, violation("expected login acknowledgement, got %s", p.PacketName())
		}
	}
}

func authenticate(ctx context.Context, c *Conn, cfg LoginConfig, name string) (*auth.Profile, error) {
	if cfg.Keys == nil {
		return nil, errors.New("protocol: online mode needs a key pair")
	}
	challenge, err := auth.NewChallenge()
	if err != nil {
		return nil, err
	}
	err = c.WritePacket(&EncryptionRequest{
		PublicKey:          cfg.Keys.PublicDER(),
		VerifyToken:        challenge.Token(),
		ShouldAuthenticate: true,
	})
	if err != nil {
		return nil, err
	}

	p, err := c.ReadPacket()
	if err != nil {
		return nil, err
	}
	key, ok := p.(*Key)
	if !ok {
		return nil, violation("expected encryption response, got %s", p.PacketName())
	}
	secret, err := challenge.Verify(cfg.Keys, key.SharedSecret, key.VerifyToken)
	if err != nil {
		return nil, err
	}
	if err := c.EnableEncryption(secret); err != nil {
		return nil, err
	}

	verifier := cfg.Verifier
	if verifier == nil {
		verifier = auth.NewMojangVerifier()
	}
	profile, err := verifier.HasJoined(ctx, name, auth.ServerHash("", secret, cfg.Keys.PublicDER()))
	if err != nil {
		return nil, fmt.Errorf("verifying session of %s: %w", name, err)
	}
	return profile, nil
}
