// Package tokensvc implements the C2 JWK/JWT service: RSA key-pair
// generation, JWT signing/verification (RS256), at_hash computation, and
// JWK export. It is deliberately key-store agnostic — its functions take
// PEM-encoded keys, and callers resolve a realm's key themselves (KeyStore
// (C3) names that lookup).
package tokensvc

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoActiveSigningKey is returned by a KeyStore when a realm has no
// active signing key.
var ErrNoActiveSigningKey = errors.New("no active signing key for realm")

// ErrInvalidToken covers signature failure, malformed compact serialization,
// and any other non-expiry validation failure.
var ErrInvalidToken = errors.New("invalid token")

// ErrExpiredToken is returned when the token's exp claim has passed.
var ErrExpiredToken = errors.New("token has expired")

// SigningKey is the subset of domain.SigningKey the token service needs,
// kept local to avoid an import cycle with the domain package's broader
// realm/client types.
type SigningKey struct {
	Kid        string
	PublicPem  string
	PrivatePem string
}

// KeyStore resolves the active signing key for a realm, and the named key
// (active or retired) for verification.
type KeyStore interface {
	ActiveKey(realmID uuid.UUID) (SigningKey, error)
	KeyByKid(realmID uuid.UUID, kid string) (SigningKey, error)
}

// JWK is a single entry of a JSON Web Key Set.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg"`
}

// JWKS is the discovery-document JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// GenerateRsaKeyPair creates a fresh 2048-bit RSA key pair, PEM-encoded
// (SPKI for the public key, PKCS8 for the private key), with a random kid.
func GenerateRsaKeyPair() (kid string, publicPem string, privatePem string, err error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	privPem := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	pubPem := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return uuid.NewString(), string(pubPem), string(privPem), nil
}

// SignJwt signs payload as a compact RS256 JWT, setting iat, exp = iat +
// ttlSeconds, a random jti (unless the caller already supplied one), and
// header {alg:"RS256", kid, typ:"JWT"}.
func SignJwt(payload map[string]any, privatePem string, kid string, ttlSeconds int64) (string, error) {
	priv, err := parsePrivateKey(privatePem)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}

	now := time.Now()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(time.Duration(ttlSeconds) * time.Second).Unix()
	if _, ok := claims["jti"]; !ok {
		claims["jti"] = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	token.Header["typ"] = "JWT"

	signed, err := token.SignedString(priv)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// VerifyJwt validates the signature, exp and nbf (with a 30s leeway for
// clock skew) of compact, and returns its claim payload; iat is not
// checked.
func VerifyJwt(compact string, publicPem string) (map[string]any, error) {
	pub, err := parsePublicKey(publicPem)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(compact, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return pub, nil
	}, jwt.WithLeeway(30*time.Second))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return map[string]any(claims), nil
}

// KidFromCompact extracts the kid header from a compact JWT without
// verifying its signature, so the caller can resolve the right public key
// first via KeyStore.KeyByKid.
func KidFromCompact(compact string) (string, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(compact, jwt.MapClaims{})
	if err != nil {
		return "", ErrInvalidToken
	}
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return "", ErrInvalidToken
	}
	return kid, nil
}

// ComputeAtHash implements OIDC's at_hash: left-half SHA-256 of the ASCII
// bytes of the access token, base64url-encoded without padding.
func ComputeAtHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	half := sum[:len(sum)/2]
	return base64.RawURLEncoding.EncodeToString(half)
}

// PublicKeyToJwk parses an SPKI-encoded RSA public key PEM and renders it
// as a JWK for the discovery JWKS endpoint.
func PublicKeyToJwk(publicPem string, kid string) (JWK, error) {
	pub, err := parsePublicKey(publicPem)
	if err != nil {
		return JWK{}, err
	}

	eBuf := big.NewInt(int64(pub.E)).Bytes()
	n := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(eBuf)

	return JWK{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		N:   n,
		E:   e,
		Alg: "RS256",
	}, nil
}

func parsePrivateKey(privatePem string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privatePem))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block containing the private key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is not of type *rsa.PrivateKey")
		}
		return priv, nil
	}

	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return priv, nil
}

func parsePublicKey(publicPem string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicPem))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block containing the public key")
	}

	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("key is not of type *rsa.PublicKey")
		}
		return pub, nil
	}

	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub, nil
}
