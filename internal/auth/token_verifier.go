// Package auth はアクセストークンと外部IdPトークンの検証を提供する。
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/yatai/internal/model"
)

// TokenClaims は検証済みアクセストークンから取り出した利用者情報。
type TokenClaims struct {
	// UserID はトークンのsubクレーム。プロフィールの主キーと一致する。
	UserID string
	// Name はトークンのuser_metadataに含まれる表示名。無い場合は空文字列。
	Name string
}

// TokenVerifier はBearerアクセストークンの検証インターフェース。
type TokenVerifier interface {
	// Verify はトークンを検証し、クレームを返す。
	// 署名不正・期限切れ・発行者不一致は *model.APIError (UNAUTHORIZED) を返す。
	Verify(tokenString string) (*TokenClaims, error)
}

// accessTokenClaims はHS256アクセストークンのクレーム構造。
// user_metadataは認証基盤がサインアップ時に付与するプロフィール情報を保持する。
type accessTokenClaims struct {
	jwt.RegisteredClaims
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

// JWTVerifier はHS256共有鍵で署名されたアクセストークンを検証する。
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier はJWTVerifierを生成する。
// issuerが空でない場合、issクレームの一致も検証する。
func NewJWTVerifier(secret []byte, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: secret, issuer: issuer}
}

// Verify はトークンを検証し、クレームを返す。
func (v *JWTVerifier) Verify(tokenString string) (*TokenClaims, error) {
	claims := &accessTokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, model.NewUnauthorizedError(fmt.Sprintf("invalid token: %v", err))
	}
	if !token.Valid {
		return nil, model.NewUnauthorizedError("invalid token")
	}

	if claims.Subject == "" {
		return nil, model.NewUnauthorizedError("token has no subject")
	}

	return &TokenClaims{
		UserID: claims.Subject,
		Name:   claims.UserMetadata.Name,
	}, nil
}

// compile-time interface check
var _ TokenVerifier = (*JWTVerifier)(nil)
