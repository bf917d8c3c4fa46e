package account

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	AccountId string
}

func (s service) generateJWT(accountId string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": accountId,
	})

	return token.SignedString([]byte(s.secret))
}

func (s service) parseJWT(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}

		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	accountId, ok := mapClaims["account_id"].(string)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	return &claims{AccountId: accountId}, nil
}
