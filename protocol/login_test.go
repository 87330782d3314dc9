package protocol

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"io"
	"net"
	"testing"

	"github.com/astei/voxelwire/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func pipe(t *testing.T) (server, client *Conn) {
	a, b := net.Pipe()
	server = NewConn(a, DefaultRegistry(), zaptest.NewLogger(t))
	client = NewClientConn(b, DefaultRegistry(), nil)
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

func handshake(t *testing.T, c *Conn, intent int32) {
	require.NoError(t, c.WritePacket(&Intention{
		ProtocolVersion: Version,
		ServerAddress:   "localhost",
		ServerPort:      25565,
		Intent:          intent,
	}))
	next := Status
	if intent != IntentStatus {
		next = Login
	}
	require.NoError(t, c.SetState(next))
}

func TestStatusExchange(t *testing.T) {
	server, client := pipe(t)
	done := make(chan error, 1)
	go func() {
		intent, err := AcceptHandshake(server)
		if err != nil {
			done <- err
			return
		}
		if intent.Intent != IntentStatus || server.State() != Status {
			done <- violation("wrong state %s", server.State())
			return
		}
		done <- ServeStatus(server, func() ServerStatus {
			return ServerStatus{
				Version:     StatusVersion{Name: VersionName, Protocol: Version},
				Players:     StatusPlayers{Max: 20, Online: 1},
				Description: PlainText("A voxelwire server"),
			}
		})
	}()

	handshake(t, client, IntentStatus)
	require.NoError(t, client.WritePacket(&StatusRequest{}))
	p, err := client.ReadPacket()
	require.NoError(t, err)
	status := p.(*StatusResponse).Status
	assert.Equal(t, int32(770), status.Version.Protocol)
	assert.Equal(t, 20, status.Players.Max)
	assert.Equal(t, "A voxelwire server", status.Description.String())

	require.NoError(t, client.WritePacket(&PingRequest{Payload: 12345}))
	p, err = client.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, &PongResponse{Payload: 12345}, p)

	require.NoError(t, <-done)
	assert.Equal(t, Closed, server.State())
	_, err = client.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStatusRejectsOtherPackets(t *testing.T) {
	server, client := pipe(t)
	done := make(chan error, 1)
	go func() {
		if _, err := AcceptHandshake(server); err != nil {
			done <- err
			return
		}
		done <- ServeStatus(server, func() ServerStatus { return ServerStatus{} })
	}()

	handshake(t, client, IntentStatus)
	require.NoError(t, client.Framer().WriteFrame([]byte{0x05, 0x00}))
	assert.ErrorIs(t, <-done, ErrProtocolViolation)
}

func TestHandshakeRejectsUnknownIntent(t *testing.T) {
	server, client := pipe(t)
	done := make(chan error, 1)
	go func() {
		_, err := AcceptHandshake(server)
		done <- err
	}()
	require.NoError(t, client.WritePacket(&Intention{ProtocolVersion: Version, ServerAddress: "x", Intent: 7}))
	assert.ErrorIs(t, <-done, ErrProtocolViolation)
	assert.Equal(t, Handshake, server.State())
}

type fakeVerifier struct {
	profile    *auth.Profile
	name, hash string
}

func (v *fakeVerifier) HasJoined(_ context.Context, name, serverHash string) (*auth.Profile, error) {
	v.name, v.hash = name, serverHash
	return v.profile, nil
}

func encryptWith(t *testing.T, der, msg []byte) []byte {
	pub, err := x509.ParsePKIXPublicKey(der)
	require.NoError(t, err)
	out, err := rsa.EncryptPKCS1v15(rand.Reader, pub.(*rsa.PublicKey), msg)
	require.NoError(t, err)
	return out
}

type loginResult struct {
	profile *auth.Profile
	info    Packet
	err     error
}

func TestOnlineLogin(t *testing.T) {
	keys, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	steve := &auth.Profile{
		ID:         uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"),
		Name:       "Steve",
		Properties: []auth.Property{{Name: "textures", Value: "e30=", Signature: "c2ln"}},
	}
	verifier := &fakeVerifier{profile: steve}

	server, client := pipe(t)
	done := make(chan loginResult, 1)
	go func() {
		var res loginResult
		defer func() { done <- res }()
		if _, res.err = AcceptHandshake(server); res.err != nil {
			return
		}
		cfg := LoginConfig{OnlineMode: true, Keys: keys, Verifier: verifier, CompressionThreshold: 64}
		if res.profile, res.err = AcceptLogin(context.Background(), server, cfg); res.err != nil {
			return
		}
		if res.err = server.WritePacket(BrandPayload("voxelwire")); res.err != nil {
			return
		}
		res.info, res.err = server.ReadPacket()
	}()

	handshake(t, client, IntentLogin)
	require.NoError(t, client.WritePacket(&Hello{Name: "Steve", UUID: auth.OfflineUUID("Steve")}))

	p, err := client.ReadPacket()
	require.NoError(t, err)
	req, ok := p.(*EncryptionRequest)
	require.True(t, ok, "got %T", p)
	assert.True(t, req.ShouldAuthenticate)
	assert.Equal(t, keys.PublicDER(), req.PublicKey)

	secret := bytes.Repeat([]byte{0x42}, auth.SecretSize)
	require.NoError(t, client.WritePacket(&Key{
		SharedSecret: encryptWith(t, req.PublicKey, secret),
		VerifyToken:  encryptWith(t, req.PublicKey, req.VerifyToken),
	}))
	require.NoError(t, client.EnableEncryption(secret))

	p, err = client.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, &LoginCompression{Threshold: 64}, p)
	client.SetCompression(64)

	p, err = client.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, &LoginFinished{Profile: *steve}, p)

	require.NoError(t, client.WritePacket(&LoginAcknowledged{}))
	require.NoError(t, client.SetState(Configuration))

	p, err = client.ReadPacket()
	require.NoError(t, err)
	brand, ok := p.(*CustomPayload).Brand()
	assert.True(t, ok)
	assert.Equal(t, "voxelwire", brand)

	info := &ClientInformation{Locale: "en_us", ViewDistance: 10, ChatColors: true, DisplayedSkinParts: 0x7F, MainHand: 1}
	require.NoError(t, client.WritePacket(info))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, steve, res.profile)
	assert.Equal(t, info, res.info)
	assert.Equal(t, Configuration, server.State())
	assert.True(t, server.Framer().Encrypted())
	assert.Equal(t, "Steve", verifier.name)
	assert.Equal(t, auth.ServerHash("", secret, keys.PublicDER()), verifier.hash)
}

func TestOnlineLoginRejectsWrongToken(t *testing.T) {
	keys, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	server, client := pipe(t)
	done := make(chan error, 1)
	go func() {
		if _, err := AcceptHandshake(server); err != nil {
			done <- err
			return
		}
		_, err := AcceptLogin(context.Background(), server, LoginConfig{
			OnlineMode: true, Keys: keys, Verifier: &fakeVerifier{}, CompressionThreshold: -1,
		})
		done <- err
	}()

	handshake(t, client, IntentLogin)
	require.NoError(t, client.WritePacket(&Hello{Name: "Steve"}))
	p, err := client.ReadPacket()
	require.NoError(t, err)
	req := p.(*EncryptionRequest)
	require.NoError(t, client.WritePacket(&Key{
		SharedSecret: encryptWith(t, req.PublicKey, make([]byte, auth.SecretSize)),
		VerifyToken:  encryptWith(t, req.PublicKey, []byte{1, 2, 3, 4}),
	}))

	p, err = client.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "Failed to verify username!", p.(*LoginDisconnect).Reason.String())

	assert.ErrorIs(t, <-done, auth.ErrAuthentication)
	assert.Equal(t, Closed, server.State())
	_, err = client.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOfflineLogin(t *testing.T) {
	server, client := pipe(t)
	done := make(chan loginResult, 1)
	go func() {
		var res loginResult
		defer func() { done <- res }()
		if _, res.err = AcceptHandshake(server); res.err != nil {
			return
		}
		res.profile, res.err = AcceptLogin(context.Background(), server, LoginConfig{CompressionThreshold: -1})
		if res.err == nil {
			res.err = server.Disconnect(PlainText("bye"))
		}
	}()

	handshake(t, client, IntentLogin)
	require.NoError(t, client.WritePacket(&Hello{Name: "Notch"}))

	p, err := client.ReadPacket()
	require.NoError(t, err)
	finished, ok := p.(*LoginFinished)
	require.True(t, ok, "got %T", p)
	assert.Equal(t, auth.OfflineUUID("Notch"), finished.Profile.ID)
	assert.Empty(t, finished.Profile.Properties)

	require.NoError(t, client.WritePacket(&CustomQueryAnswer{MessageID: 1}))
	require.NoError(t, client.WritePacket(&LoginAcknowledged{}))
	require.NoError(t, client.SetState(Configuration))

	p, err = client.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, &Disconnect{Reason: PlainText("bye")}, p)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "Notch", res.profile.Name)
	assert.False(t, server.Framer().Encrypted())
}

func TestLoginRejectsPacketBeforeHello(t *testing.T) {
	server, client := pipe(t)
	done := make(chan error, 1)
	go func() {
		if _, err := AcceptHandshake(server); err != nil {
			done <- err
			return
		}
		_, err := AcceptLogin(context.Background(), server, LoginConfig{CompressionThreshold: -1})
		done <- err
	}()

	handshake(t, client, IntentLogin)
	require.NoError(t, client.WritePacket(&LoginAcknowledged{}))
	assert.ErrorIs(t, <-done, ErrProtocolViolation)
}
