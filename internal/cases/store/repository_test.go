package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"casework/internal/cases/models"
	"casework/internal/cases/store"
	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/sentinel"
)

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// repositorySuite is the behaviour every Repository implementation must show. Concrete suites
// set newRepo; reset runs before each test.
type repositorySuite struct {
	suite.Suite
	newRepo func() store.Repository
	reset   func()
	repo    store.Repository
	ctx     context.Context
	now     time.Time
	ids     *domain.SeededIDs
}

func (s *repositorySuite) SetupTest() {
	if s.reset != nil {
		s.reset()
	}
	s.repo = s.newRepo()
	s.ctx = context.Background()
	s.now = baseTime
	s.ids = domain.NewSeededIDs(7)
}

func (s *repositorySuite) cmd() models.Command {
	s.now = s.now.Add(time.Minute + 123456789*time.Nanosecond)
	return models.Command{
		Actor: models.Actor{ID: "sup-1", Name: "Dana Supervisor"},
		At:    s.now,
		IDs:   s.ids,
	}
}

func (s *repositorySuite) newCase(number string) *models.ConflictCase {
	c, err := models.NewCase(models.NewCaseParams{
		CaseNumber:   number,
		Type:         models.CaseTypeInterpersonal,
		IncidentDate: baseTime.Add(-24 * time.Hour),
		Location:     "Warehouse B",
		Department:   "Logistics",
	}, s.cmd())
	s.Require().NoError(err)
	return c
}

func (s *repositorySuite) TestCreateAndLoad() {
	c := s.newCase("CR-20250601-1001")
	s.Require().NoError(s.repo.Create(s.ctx, c))
	s.True(c.PersistedUpdatedAt().Equal(c.UpdatedAt()), "create marks the case persisted")

	s.Run("by id", func() {
		got, err := s.repo.Load(s.ctx, c.ID())
		s.Require().NoError(err)
		s.Equal(c.CaseNumber(), got.CaseNumber())
		s.Equal(c.AuditLog(), got.AuditLog())
		s.True(got.PersistedUpdatedAt().Equal(c.UpdatedAt()))
	})

	s.Run("by number", func() {
		got, err := s.repo.FindByNumber(s.ctx, "CR-20250601-1001")
		s.Require().NoError(err)
		s.Equal(c.ID(), got.ID())
	})

	s.Run("loaded cases are independent", func() {
		a, err := s.repo.Load(s.ctx, c.ID())
		s.Require().NoError(err)
		s.Require().NoError(a.UpdateNotes("first look", s.cmd()))

		b, err := s.repo.Load(s.ctx, c.ID())
		s.Require().NoError(err)
		s.Empty(b.SupervisorNotes())
	})
}

func (s *repositorySuite) TestNotFound() {
	_, err := s.repo.Load(s.ctx, domain.CaseID(s.ids.NewUUID()))
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.repo.FindByNumber(s.ctx, "CR-20250601-9999")
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.repo.Save(s.ctx, s.newCase("CR-20250601-1002"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *repositorySuite) TestCaseNumberIsUnique() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newCase("CR-20250601-2000")))

	dup := s.newCase("CR-20250601-2000")
	err := s.repo.Create(s.ctx, dup)
	s.ErrorIs(err, models.ErrCaseNumberTaken)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.repo.Load(s.ctx, dup.ID())
	s.ErrorIs(err, sentinel.ErrNotFound, "the losing case is not stored")
}

func (s *repositorySuite) TestSaveAdvancesVersion() {
	c := s.newCase("CR-20250601-3000")
	s.Require().NoError(s.repo.Create(s.ctx, c))

	_, err := c.AddEmployee(models.InvolvedEmployee{Name: "Alex Rivera", Role: "Picker", IsComplainant: true}, s.cmd())
	s.Require().NoError(err)
	s.Require().NoError(c.Open(s.cmd()))
	s.Require().NoError(c.UpdateNotes("spoke to both parties", s.cmd()))
	s.Require().NoError(s.repo.Save(s.ctx, c))
	s.True(c.PersistedUpdatedAt().Equal(c.UpdatedAt()))

	s.Require().NoError(c.UpdateNotes("follow-up booked", s.cmd()))
	s.Require().NoError(s.repo.Save(s.ctx, c), "a second save from the same instance is not stale")

	got, err := s.repo.Load(s.ctx, c.ID())
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, got.Status())
	s.Equal("follow-up booked", got.SupervisorNotes())
	s.Equal(5, got.AuditLen())
}

func (s *repositorySuite) TestConcurrentExportIsStale() {
	c := s.newCase("CR-20250601-4500")
	s.Require().NoError(s.repo.Create(s.ctx, c))

	first, err := s.repo.Load(s.ctx, c.ID())
	s.Require().NoError(err)
	second, err := s.repo.Load(s.ctx, c.ID())
	s.Require().NoError(err)

	s.Require().NoError(first.RecordExport("pdf", s.cmd()))
	s.Require().NoError(s.repo.Save(s.ctx, first))

	s.Require().NoError(second.RecordExport("json", s.cmd()))
	s.True(c.UpdatedAt().Equal(second.UpdatedAt()), "an export leaves updatedAt alone")
	err = s.repo.Save(s.ctx, second)
	s.ErrorIs(err, models.ErrStaleWrite, "the audit log moved even though updatedAt did not")

	got, err := s.repo.Load(s.ctx, c.ID())
	s.Require().NoError(err)
	s.Equal(2, got.AuditLen())
	s.True(got.UpdatedAt().Equal(c.UpdatedAt()))
}

func (s *repositorySuite) TestConcurrentWriterIsStale() {
	c := s.newCase("CR-20250601-4000")
	s.Require().NoError(s.repo.Create(s.ctx, c))

	first, err := s.repo.Load(s.ctx, c.ID())
	s.Require().NoError(err)
	second, err := s.repo.Load(s.ctx, c.ID())
	s.Require().NoError(err)

	s.Require().NoError(first.UpdateNotes("first writer", s.cmd()))
	s.Require().NoError(s.repo.Save(s.ctx, first))

	s.Require().NoError(second.UpdateNotes("second writer", s.cmd()))
	err = s.repo.Save(s.ctx, second)
	s.ErrorIs(err, models.ErrStaleWrite)
	s.ErrorIs(err, sentinel.ErrConflict)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	got, err := s.repo.Load(s.ctx, c.ID())
	s.Require().NoError(err)
	s.Equal("first writer", got.SupervisorNotes(), "the stale write changed nothing")
}

func (s *repositorySuite) TestParallelSavesHaveOneWinner() {
	c := s.newCase("CR-20250601-5000")
	s.Require().NoError(s.repo.Create(s.ctx, c))

	const writers = 8
	cases := make([]*models.ConflictCase, writers)
	for i := range cases {
		loaded, err := s.repo.Load(s.ctx, c.ID())
		s.Require().NoError(err)
		s.Require().NoError(loaded.UpdateNotes("writer", s.cmd()))
		cases[i] = loaded
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		won    int
		others []error
	)
	for _, cc := range cases {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.repo.Save(s.ctx, cc)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
				return
			}
			others = append(others, err)
		}()
	}
	wg.Wait()

	s.Equal(1, won)
	for _, err := range others {
		s.True(errors.Is(err, models.ErrStaleWrite), "unexpected error: %v", err)
	}
}

func TestMemoryRepository(t *testing.T) {
	suite.Run(t, &repositorySuite{newRepo: func() store.Repository { return store.NewMemory() }})
}

func TestRedisRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	suite.Run(t, &repositorySuite{
		newRepo: func() store.Repository { return store.NewRedis(client, "test:") },
		reset:   mr.FlushAll,
	})
}

func TestRedisKeyLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c, err := models.NewCase(models.NewCaseParams{
		CaseNumber:   "CR-20250601-6000",
		Type:         models.CaseTypePolicyViolation,
		IncidentDate: baseTime,
		Location:     "Yard",
		Department:   "Security",
	}, models.Command{Actor: models.Actor{ID: "sup-2"}, At: baseTime, IDs: domain.NewSeededIDs(1)})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.NewRedis(client, "").Create(context.Background(), c); err != nil {
		t.Fatal(err)
	}

	if got, _ := mr.Get("casework:case-number:CR-20250601-6000"); got != c.ID().String() {
		t.Errorf("number index = %q, want %q", got, c.ID())
	}
	if !mr.Exists("casework:case:" + c.ID().String()) {
		t.Error("case document key missing")
	}
}
