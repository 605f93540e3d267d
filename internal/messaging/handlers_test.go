// internal/messaging/handlers_test.go

package messaging

import (
    "bytes"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/gorilla/mux"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/auth"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/utils"
)

func newTestRouter(t *testing.T) (*mux.Router, *fakeRepo) {
    t.Helper()
    service, repo, _, _, _ := newTestService(t)
    handler := NewHandler(service, nil)

    router := mux.NewRouter()
    RegisterRoutes(router, handler, func(next http.Handler) http.Handler { return next })
    return router, repo
}

func authedRequest(t *testing.T, method, target, userID string, body []byte) *http.Request {
    t.Helper()
    req := httptest.NewRequest(method, target, bytes.NewReader(body))
    return req.WithContext(auth.ContextWithUserID(req.Context(), userID))
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) utils.Response {
    t.Helper()
    var response utils.Response
    require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
    return response
}

func TestSendMessageHandler(t *testing.T) {
    router, _ := newTestRouter(t)

    body := []byte(`{"recipient_id":"bob","text":"hello"}`)
    recorder := httptest.NewRecorder()
    router.ServeHTTP(recorder, authedRequest(t, http.MethodPost, "/api/v1/messages", "alice", body))

    assert.Equal(t, http.StatusCreated, recorder.Code)
    response := decodeResponse(t, recorder)
    assert.True(t, response.Success)
    assert.NotNil(t, response.Data)
}

func TestSendMessageHandlerHeldFirstContact(t *testing.T) {
    router, repo := newTestRouter(t)
    repo.verified["bob"] = true

    body := []byte(`{"recipient_id":"bob","text":"hello"}`)
    recorder := httptest.NewRecorder()
    router.ServeHTTP(recorder, authedRequest(t, http.MethodPost, "/api/v1/messages", "alice", body))

    // The held message is stored and echoed to the sender with 202
    assert.Equal(t, http.StatusAccepted, recorder.Code)
    response := decodeResponse(t, recorder)
    assert.True(t, response.Success)
    assert.NotNil(t, response.Data)
}

func TestSendMessageHandlerRequiresAuth(t *testing.T) {
    router, _ := newTestRouter(t)

    recorder := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader([]byte(`{"recipient_id":"bob","text":"hi"}`)))
    router.ServeHTTP(recorder, req)

    assert.Equal(t, http.StatusUnauthorized, recorder.Code)
    response := decodeResponse(t, recorder)
    assert.False(t, response.Success)
    assert.Equal(t, "Authentication required", response.Error)
}

func TestSendMessageHandlerEmptyText(t *testing.T) {
    router, _ := newTestRouter(t)

    recorder := httptest.NewRecorder()
    router.ServeHTTP(recorder, authedRequest(t, http.MethodPost, "/api/v1/messages", "alice", []byte(`{"recipient_id":"bob","text":"  "}`)))

    assert.Equal(t, http.StatusBadRequest, recorder.Code)
    assert.False(t, decodeResponse(t, recorder).Success)
}

func TestListConversationsHandler(t *testing.T) {
    router, _ := newTestRouter(t)

    sendRecorder := httptest.NewRecorder()
    router.ServeHTTP(sendRecorder, authedRequest(t, http.MethodPost, "/api/v1/messages", "alice", []byte(`{"recipient_id":"bob","text":"hello"}`)))
    require.Equal(t, http.StatusCreated, sendRecorder.Code)

    recorder := httptest.NewRecorder()
    router.ServeHTTP(recorder, authedRequest(t, http.MethodGet, "/api/v1/conversations", "alice", nil))

    assert.Equal(t, http.StatusOK, recorder.Code)
    assert.True(t, decodeResponse(t, recorder).Success)
}

func TestMarkDeliveredHandlerInvalidMessageID(t *testing.T) {
    router, _ := newTestRouter(t)

    recorder := httptest.NewRecorder()
    router.ServeHTTP(recorder, authedRequest(t, http.MethodPost, "/api/v1/conversations/alice_bob/messages/nope/delivered", "bob", nil))

    assert.Equal(t, http.StatusBadRequest, recorder.Code)
    response := decodeResponse(t, recorder)
    assert.False(t, response.Success)
    assert.Equal(t, "Invalid message ID", response.Error)
}
