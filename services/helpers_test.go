package services

import (
	"context"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/weak-excuse/api-go/config"
	"github.com/weak-excuse/api-go/models"
	"github.com/weak-excuse/api-go/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var baseTime = time.Date(2026, time.March, 2, 18, 30, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
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
	return db
}

// fixture is one group with named members and a service on a fake clock.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	svc   *IncidentService
	clock *fakeClock
	group uuid.UUID
	users map[string]uuid.UUID
}

func newFixture(t *testing.T, members ...string) *fixture {
	t.Helper()

	db := newTestDB(t)
	clock := &fakeClock{now: baseTime}
	svc := NewIncidentService(db, types.GetIncidentRules(), nil)
	svc.SetClock(clock.Now)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		svc:   svc,
		clock: clock,
		group: uuid.New(),
		users: map[string]uuid.UUID{},
	}
	owner := uuid.Nil
	for _, name := range members {
		id := f.addUser(name)
		if owner == uuid.Nil {
			owner = id
		}
	}
	if err := db.Create(&models.Group{ID: f.group, Name: "Friday crew", Emoji: "🍕", CreatedBy: owner}).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	for i, name := range members {
		role := models.MemberRoleMember
		if i == 0 {
			role = models.MemberRoleOwner
		}
		if _, err := svc.Members().Join(f.ctx, f.group, f.users[name], role); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}
	return f
}

func (f *fixture) addUser(name string) uuid.UUID {
	f.t.Helper()
	display := name
	user := models.User{Email: name + "@example.com", Name: &display}
	if err := f.db.Create(&user).Error; err != nil {
		f.t.Fatalf("create user %s: %v", name, err)
	}
	f.users[name] = user.ID
	return user.ID
}

func (f *fixture) accuse(accuser, accused string, severity types.Severity) *models.Incident {
	f.t.Helper()
	incident, err := f.svc.CreateIncident(f.ctx, CreateIncidentInput{
		GroupID:   f.group,
		AccuserID: f.users[accuser],
		AccusedID: f.users[accused],
		Type:      string(types.TypeLateAF),
		Severity:  string(severity),
	})
	if err != nil {
		f.t.Fatalf("CreateIncident(%s -> %s) error = %v", accuser, accused, err)
	}
	return incident
}

func (f *fixture) vote(incident *models.Incident, voter string, confirm bool) *VoteResult {
	f.t.Helper()
	result, err := f.svc.CastVote(f.ctx, incident.ID, f.users[voter], confirm)
	if err != nil {
		f.t.Fatalf("CastVote(%s, %v) error = %v", voter, confirm, err)
	}
	return result
}

func (f *fixture) reload(id uuid.UUID) models.Incident {
	f.t.Helper()
	var incident models.Incident
	if err := f.db.Where("id = ?", id).Take(&incident).Error; err != nil {
		f.t.Fatalf("reload incident: %v", err)
	}
	return incident
}

func (f *fixture) activities(id uuid.UUID) []string {
	f.t.Helper()
	var rows []models.ActivityLog
	if err := f.db.Where("incident_id = ?", id).Order("id ASC").Find(&rows).Error; err != nil {
		f.t.Fatalf("load activity: %v", err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Activity
	}
	return out
}
