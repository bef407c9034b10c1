package auth

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Token kinds carried in the "typ" claim.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrWrongTokenKind  = errors.New("wrong token kind")
	ErrBadPairingCode  = errors.New("pairing code rejected")
	ErrMissingDeviceID = errors.New("device id required")
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	AccessExp    time.Time `json:"accessExpiresAt"`
	RefreshExp   time.Time `json:"refreshExpiresAt"`
}

// Claims represents JWT payload of a paired device.
type Claims struct {
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies device tokens with HS256.
type Issuer struct {
	name        string
	key         []byte
	pairingCode string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
}

// NewIssuer creates an issuer. pairingCode gates Pair.
func NewIssuer(name, signingKey, pairingCode string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		name:        name,
		key:         []byte(signingKey),
		pairingCode: pairingCode,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		now:         time.Now,
	}
}

// Pair checks the pairing code and issues tokens for deviceID.
func (i *Issuer) Pair(deviceID, code string) (TokenPair, error) {
	if deviceID == "" {
		return TokenPair{}, ErrMissingDeviceID
	}
	if i.pairingCode == "" || subtle.ConstantTimeCompare([]byte(code), []byte(i.pairingCode)) != 1 {
		return TokenPair{}, ErrBadPairingCode
	}
	return i.issue(deviceID)
}

// Refresh exchanges a valid refresh token for a new pair.
func (i *Issuer) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := i.Parse(refreshToken, KindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return i.issue(claims.Subject)
}

func (i *Issuer) issue(subject string) (TokenPair, error) {
	now := i.now()
	accessExp := now.Add(i.accessTTL)
	refreshExp := now.Add(i.refreshTTL)

	access, err := i.sign(subject, KindAccess, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(subject, KindRefresh, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, AccessExp: accessExp, RefreshExp: refreshExp}, nil
}

func (i *Issuer) sign(subject, kind string, now, exp time.Time) (string, error) {
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.name,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	return token, errors.Wrap(err, "auth.sign")
}

// Parse validates a token of the given kind and returns its claims.
func (i *Issuer) Parse(tokenStr, kind string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Claims{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Kind != kind {
		return Claims{}, ErrWrongTokenKind
	}
	return *claims, nil
}
