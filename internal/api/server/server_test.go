package server_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-asset-syncer/internal/api/middleware"
	"github.com/feral-file/ff-asset-syncer/internal/api/server"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
	"github.com/feral-file/ff-asset-syncer/internal/mocks"
	"github.com/feral-file/ff-asset-syncer/internal/reconcile"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

type testServerMocks struct {
	ctrl    *gomock.Controller
	engine  *mocks.MockReconcileEngine
	gateway *mocks.MockGateway
	handler http.Handler
}

func setupTest(t *testing.T, auth middleware.AuthConfig) *testServerMocks {
	ctrl := gomock.NewController(t)
	tm := &testServerMocks{
		ctrl:    ctrl,
		engine:  mocks.NewMockReconcileEngine(ctrl),
		gateway: mocks.NewMockGateway(ctrl),
	}
	srv := server.New(server.Config{Auth: auth}, tm.engine, tm.gateway)
	tm.handler = srv.Router()
	return tm
}

func (tm *testServerMocks) do(method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	tm.handler.ServeHTTP(rec, req)
	return rec
}

func validationReport() *reconcile.ValidationReport {
	return &reconcile.ValidationReport{
		RunID:       "01JTESTRUN",
		TotalAssets: 3,
		Issues: []reconcile.Issue{
			{
				AssetID:   2,
				AssetName: "Harbor Loft",
				TokenID:   "2",
				Field:     reconcile.FieldTotalTokenSupply,
				Issue:     "total supply mismatch: cached 900, chain 1000",
				Severity:  reconcile.SeverityHigh,
			},
		},
	}
}

func TestValidate(t *testing.T) {
	tm := setupTest(t, middleware.AuthConfig{})
	defer tm.ctrl.Finish()

	tm.engine.EXPECT().Validate(gomock.Any()).Return(validationReport(), nil)

	rec := tm.do(http.MethodPost, "/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["totalAssets"])
	assert.Equal(t, float64(1), body["issuesFound"])

	issues := body["issues"].([]any)
	require.Len(t, issues, 1)
	issue := issues[0].(map[string]any)
	assert.Equal(t, float64(2), issue["assetId"])
	assert.Equal(t, "Harbor Loft", issue["assetName"])
	assert.Equal(t, "high", issue["severity"])
	assert.Equal(t, "total supply mismatch: cached 900, chain 1000", issue["issue"])
}

func TestValidate_EmptyIssuesIsArray(t *testing.T) {
	tm := setupTest(t, middleware.AuthConfig{})
	defer tm.ctrl.Finish()

	tm.engine.EXPECT().Validate(gomock.Any()).Return(&reconcile.ValidationReport{TotalAssets: 1}, nil)

	rec := tm.do(http.MethodPost, "/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"issues":[]`)
}

func TestRepair(t *testing.T) {
	tm := setupTest(t, middleware.AuthConfig{})
	defer tm.ctrl.Finish()

	tm.engine.EXPECT().Repair(gomock.Any()).Return(&reconcile.RepairReport{
		TotalChecked: 2,
		Repaired: []reconcile.AssetRepair{
			{
				AssetID:   2,
				AssetName: "Harbor Loft",
				Changes: []reconcile.Change{
					{Field: reconcile.FieldTotalTokenSupply, Before: "900", After: "1000"},
					{Field: reconcile.FieldTokensSold, Before: "50", After: "100"},
				},
			},
		},
	}, nil)

	rec := tm.do(http.MethodPost, "/repair", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TotalChecked  int `json:"totalChecked"`
		TotalRepaired int `json:"totalRepaired"`
		Repaired      []struct {
			AssetID   uint64   `json:"assetId"`
			AssetName string   `json:"assetName"`
			Changes   []string `json:"changes"`
		} `json:"repaired"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.TotalChecked)
	assert.Equal(t, 1, body.TotalRepaired)
	require.Len(t, body.Repaired, 1)
	assert.Equal(t, []string{"totalTokenSupply: 900 -> 1000", "tokensSold: 50 -> 100"}, body.Repaired[0].Changes)
}

func TestReconcileFailure(t *testing.T) {
	tm := setupTest(t, middleware.AuthConfig{})
	defer tm.ctrl.Finish()

	tm.engine.EXPECT().Validate(gomock.Any()).Return(nil, errors.New("failed to list fractionalized assets"))

	rec := tm.do(http.MethodPost, "/validate", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"internal_error"`)
}

func TestHealthCheck(t *testing.T) {
	t.Run("chain reachable", func(t *testing.T) {
		tm := setupTest(t, middleware.AuthConfig{})
		defer tm.ctrl.Finish()

		tm.gateway.EXPECT().LatestBlock(gomock.Any()).Return(uint64(123456), nil)

		rec := tm.do(http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
		assert.Contains(t, rec.Body.String(), `"latestBlock":123456`)
	})

	t.Run("chain unreachable", func(t *testing.T) {
		tm := setupTest(t, middleware.AuthConfig{})
		defer tm.ctrl.Finish()

		tm.gateway.EXPECT().LatestBlock(gomock.Any()).Return(uint64(0), errors.New("no chain endpoints configured"))

		rec := tm.do(http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"service_error"`)
	})
}

func TestMetrics(t *testing.T) {
	tm := setupTest(t, middleware.AuthConfig{})
	defer tm.ctrl.Finish()

	rec := tm.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "asset_syncer_last_delivered_block")
}

func TestRequestID(t *testing.T) {
	tm := setupTest(t, middleware.AuthConfig{})
	defer tm.ctrl.Finish()

	tm.gateway.EXPECT().LatestBlock(gomock.Any()).Return(uint64(1), nil).Times(2)

	rec := tm.do(http.MethodGet, "/health", map[string]string{middleware.REQUEST_ID_HEADER: "req-42"})
	assert.Equal(t, "req-42", rec.Header().Get(middleware.REQUEST_ID_HEADER))

	rec = tm.do(http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get(middleware.REQUEST_ID_HEADER))
}

func TestAuth_APIKey(t *testing.T) {
	tm := setupTest(t, middleware.AuthConfig{APIKeys: []string{"k1"}})
	defer tm.ctrl.Finish()

	rec := tm.do(http.MethodPost, "/validate", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = tm.do(http.MethodPost, "/validate", map[string]string{"Authorization": "ApiKey wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tm.engine.EXPECT().Validate(gomock.Any()).Return(&reconcile.ValidationReport{}, nil)
	rec = tm.do(http.MethodPost, "/validate", map[string]string{"Authorization": "ApiKey k1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays open
	tm.gateway.EXPECT().LatestBlock(gomock.Any()).Return(uint64(1), nil)
	rec = tm.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_JWT(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	sign := func(expiresAt time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		})
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	tm := setupTest(t, middleware.AuthConfig{JWTPublicKey: publicPEM})
	defer tm.ctrl.Finish()

	tm.engine.EXPECT().Repair(gomock.Any()).Return(&reconcile.RepairReport{}, nil)
	rec := tm.do(http.MethodPost, "/repair", map[string]string{"Authorization": "Bearer " + sign(time.Now().Add(time.Hour))})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = tm.do(http.MethodPost, "/repair", map[string]string{"Authorization": "Bearer " + sign(time.Now().Add(-time.Hour))})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "unauthorized"))
}
