package rules

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type EngineSuite struct {
	suite.Suite
	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.engine = NewEngine()
}

func (s *EngineSuite) TestDefaultRules() {
	s.Run("sensors are world readable", func() {
		s.True(s.engine.ValidateRead("sensors", "", nil))
		s.True(s.engine.ValidateRead("sensors", "alice", nil))
	})

	s.Run("sensor writes require ownership when the record exists", func() {
		resource := &Resource{ID: "sensors:d1_100", Owner: "alice"}
		s.True(s.engine.ValidateWrite("sensors", "alice", resource))
		s.False(s.engine.ValidateWrite("sensors", "bob", resource))
	})

	s.Run("sensor write pre-check without a resource denies", func() {
		// resource.owner == auth.uid cannot hold with no resource loaded.
		s.False(s.engine.ValidateWrite("sensors", "alice", nil))
	})

	s.Run("devices require authentication", func() {
		s.False(s.engine.ValidateRead("devices", "", nil))
		s.True(s.engine.ValidateRead("devices", "alice", nil))
		s.False(s.engine.ValidateWrite("devices", "", nil))
		s.True(s.engine.ValidateWrite("devices", "mqtt_bridge", nil))
	})

	s.Run("admin collection is admin only", func() {
		s.False(s.engine.ValidateRead("admin", "alice", nil))
		s.True(s.engine.ValidateRead("admin", "admin", nil))
		s.False(s.engine.ValidateWrite("admin", "", nil))
		s.True(s.engine.ValidateWrite("admin", "admin", nil))
	})
}

func (s *EngineSuite) TestUnknownCollectionDefaults() {
	s.Run("unauthenticated denied", func() {
		s.False(s.engine.ValidateRead("inventory", "", nil))
		s.False(s.engine.ValidateWrite("inventory", "", nil))
	})

	s.Run("any authenticated principal allowed", func() {
		s.True(s.engine.ValidateRead("inventory", "alice", nil))
		s.True(s.engine.ValidateWrite("inventory", "bob", nil))
	})
}

func (s *EngineSuite) TestUpdate() {
	s.Run("valid update replaces the predicate", func() {
		write := "auth.uid == 'admin'"
		s.Require().NoError(s.engine.Update("devices", nil, &write))

		s.False(s.engine.ValidateWrite("devices", "alice", nil))
		s.True(s.engine.ValidateWrite("devices", "admin", nil))
		// Read side untouched.
		s.True(s.engine.ValidateRead("devices", "alice", nil))
	})

	s.Run("invalid expression is rejected and table untouched", func() {
		bad := "resource.owner != auth.uid || true"
		err := s.engine.Update("devices", &bad, nil)
		s.Require().Error(err)
		s.True(s.engine.ValidateRead("devices", "alice", nil))
	})

	s.Run("new collection gains fail-closed defaults for missing side", func() {
		read := "true"
		s.Require().NoError(s.engine.Update("telemetry", &read, nil))
		s.True(s.engine.ValidateRead("telemetry", "", nil))
		// Write was never specified, so it denies everyone.
		s.False(s.engine.ValidateWrite("telemetry", "admin", nil))
	})
}

func (s *EngineSuite) TestSnapshot() {
	snap := s.engine.Snapshot()
	s.Equal("true", snap["sensors"].Read)
	s.Equal("resource.owner == auth.uid", snap["sensors"].Write)
	s.Equal("auth.uid == 'admin'", snap["admin"].Read)
}

func (s *EngineSuite) TestConcurrentEvaluationDuringUpdate() {
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				s.engine.ValidateRead("sensors", "alice", nil)
				s.engine.ValidateWrite("sensors", "alice", &Resource{Owner: "alice"})
			}
		}()
	}
	for range 50 {
		write := "auth != null"
		s.Require().NoError(s.engine.Update("sensors", nil, &write))
		write = "resource.owner == auth.uid"
		s.Require().NoError(s.engine.Update("sensors", nil, &write))
	}
	wg.Wait()
}

func TestParse(t *testing.T) {
	valid := []string{
		"true",
		"false",
		"auth != null",
		"auth == null",
		"resource.owner == auth.uid",
		"resource.id == auth.uid",
		"auth.uid == 'admin'",
		"auth.uid == 'service-account'",
	}
	for _, source := range valid {
		expr, err := Parse(source)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error %v", source, err)
		}
		if expr.String() != source {
			t.Fatalf("Parse(%q).String() = %q, want round-trip", source, expr.String())
		}
	}

	invalid := []string{
		"",
		"True",
		"auth.uid == admin",
		"auth.uid == ''",
		"resource.owner == auth.uid && auth != null",
		"allow all",
	}
	for _, source := range invalid {
		if _, err := Parse(source); err == nil {
			t.Fatalf("Parse(%q): expected error, got none", source)
		}
	}
}
