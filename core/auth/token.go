package auth

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

var errInvalidToken = errors.New("invalid token")

// Claims represents the authorization claims transmitted via a JWT.
// Id carries the session id and Subject the account id.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
}

// Token generates a signed JWT token string for the session.
func (svc *Service) Token(sess Session) (string, error) {
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        sess.ID,
			Issuer:    svc.conf.AppName,
			Subject:   sess.UserID,
			ExpiresAt: sess.ExpiresAt.Unix(),
			IssuedAt:  core.NowFunc().Unix(),
		},
		Email: sess.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(svc.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken validates a token issued by Token and returns its claims.
func (svc *Service) ParseToken(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(svc.conf.SecretKey), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}
	if !token.Valid || claims.Id == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}
