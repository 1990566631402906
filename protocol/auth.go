package protocol

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"

	"github.com/mickamy/voltgo/errs"
	"github.com/mickamy/voltgo/wire"
)

// AuthRequest is the authentication handshake sent immediately after
// connect (and after the TLS upgrade, when enabled).
type AuthRequest struct {
	Service      string
	Username     string
	HashScheme   HashScheme
	PasswordHash []byte
}

func expectedHashLen(scheme HashScheme) (int, error) {
	switch scheme {
	case HashSHA1:
		return sha1.Size, nil
	case HashSHA256:
		return sha256.Size, nil
	default:
		return 0, errs.New(errs.UnsupportedType, fmt.Sprintf("unknown hash scheme %d", scheme))
	}
}

// HashPassword digests password with scheme, producing the raw bytes
// AuthRequest.PasswordHash expects.
func HashPassword(scheme HashScheme, password string) ([]byte, error) {
	switch scheme {
	case HashSHA1:
		sum := sha1.Sum([]byte(password))
		return sum[:], nil
	case HashSHA256:
		sum := sha256.Sum256([]byte(password))
		return sum[:], nil
	default:
		return nil, errs.New(errs.UnsupportedType, fmt.Sprintf("unknown hash scheme %d", scheme))
	}
}

// EncodeAuthRequest serializes req as a length-prefixed authentication
// request frame, per spec.md §4.3.
func EncodeAuthRequest(req AuthRequest) ([]byte, error) {
	want, err := expectedHashLen(req.HashScheme)
	if err != nil {
		return nil, err
	}
	if len(req.PasswordHash) != want {
		return nil, errs.New(errs.ParamMismatch, fmt.Sprintf("password hash is %d bytes, want %d for scheme %d", len(req.PasswordHash), want, req.HashScheme))
	}

	service := req.Service
	if service == "" {
		service = DefaultServiceName
	}

	buf := wire.NewOwned(0)
	if err := buf.WriteInt32(0); err != nil { // length placeholder
		return nil, err
	}
	if err := buf.WriteInt8(0); err != nil { // version
		return nil, err
	}
	if err := buf.WriteString(service, false); err != nil {
		return nil, err
	}
	if err := buf.WriteString(req.Username, false); err != nil {
		return nil, err
	}
	if err := buf.WriteInt8(int8(req.HashScheme)); err != nil {
		return nil, err
	}
	if err := buf.WriteBytesRaw(req.PasswordHash); err != nil {
		return nil, err
	}
	if err := buf.PatchLengthPrefix(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AuthResponse is the server's reply to an AuthRequest.
type AuthResponse struct {
	Version          int8
	ResultCode       int8
	HostID           int32
	ConnectionID     int64
	ClusterStartTime int64
	LeaderAddress    int32
	BuildString      string
}

// Success reports whether the server accepted the handshake.
func (r *AuthResponse) Success() bool { return r.ResultCode == 0 }

// DecodeAuthResponse parses b, which must contain exactly one
// authentication response body (the bytes following the frame's length
// prefix).
func DecodeAuthResponse(b *wire.Buffer) (*AuthResponse, error) {
	resp := &AuthResponse{}
	var err error
	if resp.Version, err = b.ReadInt8(); err != nil {
		return nil, err
	}
	if resp.ResultCode, err = b.ReadInt8(); err != nil {
		return nil, err
	}
	if resp.HostID, err = b.ReadInt32(); err != nil {
		return nil, err
	}
	if resp.ConnectionID, err = b.ReadInt64(); err != nil {
		return nil, err
	}
	if resp.ClusterStartTime, err = b.ReadInt64(); err != nil {
		return nil, err
	}
	if resp.LeaderAddress, err = b.ReadInt32(); err != nil {
		return nil, err
	}
	build, isNull, err := b.ReadString()
	if err != nil {
		return nil, err
	}
	if !isNull {
		resp.BuildString = build
	}
	return resp, nil
}
