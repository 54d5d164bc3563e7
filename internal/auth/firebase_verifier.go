package auth

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/yatai/internal/model"
)

// firebaseCertsURL はFirebase IDトークンの署名検証用公開鍵の配布URL。
const firebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// FirebaseVerifier はFirebase IDトークンの検証インターフェース。
// identityの追加連携時、申告されたprovider_user_idの所有確認に使用する。
type FirebaseVerifier interface {
	// VerifyIDToken はIDトークンを検証し、FirebaseのUIDを返す。
	// 未設定の場合は *model.APIError (NOT_IMPLEMENTED) を返す。
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// NewFirebaseVerifier はFirebaseVerifierを生成する。
// projectIDが空の場合、常にNOT_IMPLEMENTEDを返す無効実装を返す。
func NewFirebaseVerifier(projectID string, httpClient *http.Client) FirebaseVerifier {
	if projectID == "" {
		return &disabledFirebaseVerifier{}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &googleFirebaseVerifier{
		projectID:  projectID,
		httpClient: httpClient,
	}
}

// disabledFirebaseVerifier はFirebase未設定環境向けの実装。
type disabledFirebaseVerifier struct{}

func (v *disabledFirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	return "", model.NewNotImplementedError("firebase verification is not configured")
}

// googleFirebaseVerifier はGoogleの公開鍵でIDトークンの署名を検証する実装。
// 公開鍵はkidごとのx509証明書として配布され、取得結果をキャッシュする。
type googleFirebaseVerifier struct {
	projectID  string
	httpClient *http.Client

	mu        sync.Mutex
	certs     map[string]string
	expiresAt time.Time
}

// VerifyIDToken はIDトークンを検証し、FirebaseのUIDを返す。
// 発行者は https://securetoken.google.com/<projectID>、audienceはprojectID。
func (v *googleFirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		certPEM, err := v.certForKid(ctx, kid)
		if err != nil {
			return nil, err
		}
		return parseRSAPublicKey(certPEM)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
	)
	if err != nil {
		return "", model.NewUnauthorizedError(fmt.Sprintf("invalid firebase token: %v", err))
	}
	if !token.Valid || claims.Subject == "" {
		return "", model.NewUnauthorizedError("invalid firebase token")
	}

	return claims.Subject, nil
}

// certForKid は指定kidの証明書を返す。キャッシュが有効な間は再取得しない。
func (v *googleFirebaseVerifier) certForKid(ctx context.Context, kid string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.certs == nil || time.Now().After(v.expiresAt) {
		certs, ttl, err := v.fetchCerts(ctx)
		if err != nil {
			return "", err
		}
		v.certs = certs
		v.expiresAt = time.Now().Add(ttl)
	}

	cert, ok := v.certs[kid]
	if !ok {
		return "", fmt.Errorf("no certificate for kid %s", kid)
	}
	return cert, nil
}

// fetchCerts はGoogleから公開鍵証明書の一覧を取得する。
func (v *googleFirebaseVerifier) fetchCerts(ctx context.Context) (map[string]string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, firebaseCertsURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build certs request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch firebase certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status fetching firebase certs: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read certs response: %w", err)
	}

	certs := map[string]string{}
	if err := json.Unmarshal(body, &certs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode certs response: %w", err)
	}

	// 鍵のローテーションに追従するため短めの固定TTLでキャッシュする
	return certs, 30 * time.Minute, nil
}

// parseRSAPublicKey はPEMエンコードされたx509証明書からRSA公開鍵を取り出す。
func parseRSAPublicKey(certPEM string) (any, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, fmt.Errorf("failed to decode certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert.PublicKey, nil
}

// compile-time interface checks
var (
	_ FirebaseVerifier = (*disabledFirebaseVerifier)(nil)
	_ FirebaseVerifier = (*googleFirebaseVerifier)(nil)
)
