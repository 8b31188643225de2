package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/weak-excuse/api-go/config"
	"github.com/weak-excuse/api-go/models"
	"github.com/weak-excuse/api-go/services"
	"github.com/weak-excuse/api-go/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "route-test-secret"

type apiHarness struct {
	t      *testing.T
	router *gin.Engine
	group  uuid.UUID
	users  map[string]uuid.UUID
}

func newHarness(t *testing.T, members ...string) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(gormsqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := services.NewIncidentService(db, types.GetIncidentRules(), nil)
	h := &apiHarness{t: t, group: uuid.New(), users: map[string]uuid.UUID{}}
	for _, name := range members {
		display := name
		user := models.User{Email: name + "@example.com", Name: &display}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
		h.users[name] = user.ID
	}
	if err := db.Create(&models.Group{ID: h.group, Name: "Brunch club", CreatedBy: h.users[members[0]]}).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, name := range members {
		if _, err := svc.Members().Join(context.Background(), h.group, h.users[name], models.MemberRoleMember); err != nil {
			t.Fatalf("join: %v", err)
		}
	}

	h.router = gin.New()
	SetupRoutes(h.router, svc, testSecret)
	return h
}

func (h *apiHarness) token(name string) string {
	h.t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": h.users[name].String(),
		"email":   name + "@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		h.t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (h *apiHarness) do(method, path, as string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+h.token(as))
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func (h *apiHarness) accuse(accuser, accused string) models.Incident {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/incidents", accuser, gin.H{
		"group_id":   h.group.String(),
		"accused_id": h.users[accused].String(),
		"type":       "late_af",
		"severity":   "bad",
		"note":       "45 minutes, no text",
	})
	if w.Code != http.StatusCreated {
		h.t.Fatalf("create incident status = %d, body %s", w.Code, w.Body.String())
	}
	return decode[models.Incident](h.t, w)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, "ana")
	if w := h.do(http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
}

func TestIncidentLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, "ana", "ben", "cai")
	incident := h.accuse("ana", "ben")
	if incident.Status != types.StatusPending || incident.Note == nil {
		t.Fatalf("created incident = %+v", incident)
	}
	base := "/api/incidents/" + incident.ID.String()

	if w := h.do(http.MethodPost, base+"/deny", "cai", nil); w.Code != http.StatusForbidden {
		t.Fatalf("deny by bystander = %d, want 403", w.Code)
	}
	w := h.do(http.MethodPost, base+"/deny", "ben", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deny = %d, body %s", w.Code, w.Body.String())
	}
	if got := decode[models.Incident](t, w); got.Status != types.StatusDisputed {
		t.Fatalf("status after deny = %s", got.Status)
	}

	view := decode[services.IncidentView](t, h.do(http.MethodGet, base, "cai", nil))
	if view.Confirm != 1 || view.MajorityThreshold != 2 {
		t.Fatalf("view = %+v", view)
	}

	if w := h.do(http.MethodPost, base+"/votes", "cai", gin.H{}); w.Code != http.StatusBadRequest {
		t.Fatalf("vote without confirm = %d, want 400", w.Code)
	}
	w = h.do(http.MethodPost, base+"/votes", "cai", gin.H{"confirm": true})
	if w.Code != http.StatusOK {
		t.Fatalf("vote = %d, body %s", w.Code, w.Body.String())
	}
	result := decode[services.VoteResult](t, w)
	if result.Status != types.StatusConfirmed || result.Resolution != types.ResolutionConfirmed {
		t.Fatalf("vote result = %+v", result)
	}
	if w := h.do(http.MethodPost, base+"/votes", "cai", gin.H{"confirm": false}); w.Code != http.StatusConflict {
		t.Fatalf("vote after resolution = %d, want 409", w.Code)
	}

	votes := decode[[]models.Vote](t, h.do(http.MethodGet, base+"/votes", "ben", nil))
	if len(votes) != 2 {
		t.Fatalf("votes = %d, want 2", len(votes))
	}

	board := decode[struct {
		Leaderboard []services.LeaderboardEntry `json:"leaderboard"`
	}](t, h.do(http.MethodGet, "/api/groups/"+h.group.String()+"/leaderboard?window=30", "ana", nil))
	if len(board.Leaderboard) != 3 {
		t.Fatalf("leaderboard rows = %d, want 3", len(board.Leaderboard))
	}
	top := board.Leaderboard[0]
	if top.UserID != h.users["ben"] || top.TotalPoints != types.BAD_POINTS || top.Rank != 1 {
		t.Fatalf("leaderboard top = %+v", top)
	}

	feed := decode[struct {
		Success bool                    `json:"success"`
		Data    []services.IncidentView `json:"data"`
	}](t, h.do(http.MethodGet, "/api/incidents?group_id="+h.group.String(), "ana", nil))
	if !feed.Success || len(feed.Data) != 1 || feed.Data[0].Status != types.StatusConfirmed {
		t.Fatalf("feed = %+v", feed)
	}
}

func TestAcceptOverHTTP(t *testing.T) {
	h := newHarness(t, "ana", "ben")
	incident := h.accuse("ana", "ben")
	path := "/api/incidents/" + incident.ID.String() + "/accept"

	w := h.do(http.MethodPost, path, "ben", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept = %d, body %s", w.Code, w.Body.String())
	}
	if got := decode[models.Incident](t, w); got.Status != types.StatusAccepted || got.Points != types.BAD_POINTS {
		t.Fatalf("accepted = %+v", got)
	}
	if w := h.do(http.MethodPost, path, "ben", nil); w.Code != http.StatusConflict {
		t.Fatalf("second accept = %d, want 409", w.Code)
	}
}

func TestRequestErrors(t *testing.T) {
	h := newHarness(t, "ana", "ben")

	tests := []struct {
		name   string
		method string
		path   string
		as     string
		body   any
		want   int
	}{
		{"missing token", http.MethodGet, "/api/incidents?group_id=" + h.group.String(), "", nil, http.StatusUnauthorized},
		{"feed without group", http.MethodGet, "/api/incidents", "ana", nil, http.StatusBadRequest},
		{"feed page too large", http.MethodGet, "/api/incidents?limit=500&group_id=" + h.group.String(), "ana", nil, http.StatusBadRequest},
		{"unknown incident", http.MethodGet, "/api/incidents/" + uuid.NewString(), "ana", nil, http.StatusNotFound},
		{"malformed incident id", http.MethodPost, "/api/incidents/nope/accept", "ana", nil, http.StatusNotFound},
		{"missing type", http.MethodPost, "/api/incidents", "ana", gin.H{"group_id": h.group.String(), "accused_id": h.users["ben"].String()}, http.StatusBadRequest},
		{"unknown type", http.MethodPost, "/api/incidents", "ana", gin.H{"group_id": h.group.String(), "accused_id": h.users["ben"].String(), "type": "rude"}, http.StatusBadRequest},
		{"foreign group", http.MethodPost, "/api/incidents", "ana", gin.H{"group_id": uuid.NewString(), "accused_id": h.users["ben"].String(), "type": "ghosted"}, http.StatusForbidden},
		{"leaderboard of foreign group", http.MethodGet, "/api/groups/" + uuid.NewString() + "/leaderboard", "ana", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := h.do(tt.method, tt.path, tt.as, tt.body); w.Code != tt.want {
				t.Fatalf("%s %s = %d, want %d (body %s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAccusationLimitOverHTTP(t *testing.T) {
	h := newHarness(t, "ana", "ben")
	for i := 0; i < types.DAILY_ACCUSATION_LIMIT; i++ {
		h.accuse("ana", "ben")
	}
	w := h.do(http.MethodPost, "/api/incidents", "ana", gin.H{
		"group_id":   h.group.String(),
		"accused_id": h.users["ben"].String(),
		"type":       "ghosted",
	})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("4th accusation = %d, want 429", w.Code)
	}
}
