package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vibex365/luna-heart-guide-sub005/internal/voice"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	startResult *StartResult
	startErr    error
	endResult   *EndResult
	endErr      error
	tokenErr    error
}

func (s *stubService) Start(ctx context.Context, userID int, sessionType string, pairLinkID *string) (*StartResult, error) {
	return s.startResult, s.startErr
}

func (s *stubService) End(ctx context.Context, callerID int, sessionID string, durationSeconds int, transcript json.RawMessage) (*EndResult, error) {
	return s.endResult, s.endErr
}

func (s *stubService) IssueToken(ctx context.Context, callerID int, sessionID string) (json.RawMessage, error) {
	if s.tokenErr != nil {
		return nil, s.tokenErr
	}
	return json.RawMessage(`{"client_secret":{"value":"ek_test"}}`), nil
}

func (s *stubService) History(ctx context.Context, userID, limit, offset int) ([]Session, error) {
	return []Session{}, nil
}

func postJSON(t *testing.T, body interface{}, path string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", path, bytes.NewReader(data))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("user_id", 1)
	return w, c
}

func TestStartHandler_Created(t *testing.T) {
	h := NewHandler(&stubService{
		startResult: &StartResult{SessionID: "sess-1", MinutesBalance: 30, DisplayName: "Ana"},
	})

	w, c := postJSON(t, StartRequest{Type: TypeSolo}, "/sessions")
	h.Start(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var got StartResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, 30, got.MinutesBalance)
}

func TestStartHandler_InsufficientMinutes(t *testing.T) {
	h := NewHandler(&stubService{startErr: ErrInsufficientMinutes})

	w, c := postJSON(t, StartRequest{Type: TypeSolo}, "/sessions")
	h.Start(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient_minutes")
}

func TestStartHandler_InvalidPairing(t *testing.T) {
	h := NewHandler(&stubService{startErr: ErrInvalidPairing})

	link := "link-1"
	w, c := postJSON(t, StartRequest{Type: TypePaired, PairLinkID: &link}, "/sessions")
	h.Start(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartHandler_BadType(t *testing.T) {
	h := NewHandler(&stubService{})

	w, c := postJSON(t, map[string]string{"type": "group"}, "/sessions")
	h.Start(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEndHandler_OK(t *testing.T) {
	h := NewHandler(&stubService{endResult: &EndResult{MinutesBilled: 3, NewBalance: 27}})

	w, c := postJSON(t, EndRequest{DurationSeconds: 125}, "/sessions/sess-1/end")
	c.Params = gin.Params{{Key: "sessionID", Value: "sess-1"}}
	h.End(c)

	require.Equal(t, http.StatusOK, w.Code)

	var got EndResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 3, got.MinutesBilled)
	assert.Equal(t, 27, got.NewBalance)
}

func TestEndHandler_NotFound(t *testing.T) {
	h := NewHandler(&stubService{endErr: ErrSessionNotFound})

	w, c := postJSON(t, EndRequest{DurationSeconds: 60}, "/sessions/missing/end")
	c.Params = gin.Params{{Key: "sessionID", Value: "missing"}}
	h.End(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEndHandler_Forbidden(t *testing.T) {
	h := NewHandler(&stubService{endErr: ErrForbidden})

	w, c := postJSON(t, EndRequest{DurationSeconds: 60}, "/sessions/sess-1/end")
	c.Params = gin.Params{{Key: "sessionID", Value: "sess-1"}}
	h.End(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestIssueTokenHandler_PassesPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(&stubService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/sessions/sess-1/token", nil)
	c.Set("user_id", 1)
	c.Params = gin.Params{{Key: "sessionID", Value: "sess-1"}}

	h.IssueToken(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"client_secret":{"value":"ek_test"}}`, w.Body.String())
}

func TestIssueTokenHandler_ProviderUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(&stubService{tokenErr: voice.ErrProviderUnavailable})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/sessions/sess-1/token", nil)
	c.Set("user_id", 1)
	c.Params = gin.Params{{Key: "sessionID", Value: "sess-1"}}

	h.IssueToken(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
