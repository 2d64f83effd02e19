package auth

import (
	"errors"
	"maps"

	"github.com/golang-jwt/jwt/v5"

	"conf-compose/pkg/model"
)

var ErrInvalid = errors.New("invalid manifest signature")

// ManifestClaims binds a manifest's digest set to the build that produced it.
type ManifestClaims struct {
	Build   string            `json:"build"`
	Digests map[string]string `json:"digests"`
	jwt.RegisteredClaims
}

// SignManifest returns an HS256 token over the manifest's digests.
func SignManifest(secret []byte, m model.Manifest) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	claims := ManifestClaims{
		Build:   m.Build,
		Digests: m.Digests(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       m.RunID,
			Subject:  "conf-compose manifest",
			IssuedAt: jwt.NewNumericDate(m.CreatedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseManifest checks the token signature and returns its claims.
func ParseManifest(secret []byte, tokenStr string) (*ManifestClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ManifestClaims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalid
	}
	if claims, ok := token.Claims.(*ManifestClaims); ok {
		return claims, nil
	}
	return nil, ErrInvalid
}

// VerifyManifest checks that m.Signature is valid for secret and covers
// exactly the digests listed in m.
func VerifyManifest(secret []byte, m model.Manifest) error {
	claims, err := ParseManifest(secret, m.Signature)
	if err != nil {
		return err
	}
	if claims.Build != m.Build || !maps.Equal(claims.Digests, m.Digests()) {
		return ErrInvalid
	}
	return nil
}
