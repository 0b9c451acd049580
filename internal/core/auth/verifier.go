package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Verifier 以 HS256 驗證存取權杖
type Verifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewVerifier 創建驗證器；issuer 為空時不檢查 iss
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify 驗證權杖並回傳 session
func (v *Verifier) Verify(token string) (Session, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if claims.ExpiresAt == nil {
		return Session{}, fmt.Errorf("%w: exp claim is required", ErrInvalidSession)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Session{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidSession, claims.Issuer)
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("%w: sub claim is required", ErrInvalidSession)
	}

	return Session{
		UserID:      claims.Subject,
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Issue 簽發權杖，供 CLI 與測試使用
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
